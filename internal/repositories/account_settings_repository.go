package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"futures_engine/internal/models"
)

type AccountSettingsRepository struct {
	db *gorm.DB
}

func NewAccountSettingsRepository(db *gorm.DB) *AccountSettingsRepository {
	return &AccountSettingsRepository{db: db}
}

func (r *AccountSettingsRepository) GetByExchange(ctx context.Context, exchangeID uint) (*models.AccountSettings, error) {
	var s models.AccountSettings
	err := r.db.WithContext(ctx).Where("exchange_id = ?", exchangeID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *AccountSettingsRepository) Update(ctx context.Context, settings *models.AccountSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}
