package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"futures_engine/internal/models"
)

type ExchangeRepository struct {
	db *gorm.DB
}

func NewExchangeRepository(db *gorm.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

func (r *ExchangeRepository) GetByName(ctx context.Context, name string) (*models.Exchange, error) {
	var ex models.Exchange
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&ex).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

func (r *ExchangeRepository) Create(ctx context.Context, ex *models.Exchange) error {
	return r.db.WithContext(ctx).Create(ex).Error
}
