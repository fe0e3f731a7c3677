package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"futures_engine/internal/models"
)

type ClosedPositionRepository struct {
	db *gorm.DB
}

func NewClosedPositionRepository(db *gorm.DB) *ClosedPositionRepository {
	return &ClosedPositionRepository{db: db}
}

func (r *ClosedPositionRepository) Create(ctx context.Context, cp *models.ClosedPosition) error {
	return r.db.WithContext(ctx).Create(cp).Error
}

func (r *ClosedPositionRepository) ListRecent(ctx context.Context, exchangeID uint, since time.Time) ([]models.ClosedPosition, error) {
	var rows []models.ClosedPosition
	err := r.db.WithContext(ctx).
		Where("exchange_id = ? AND exit_time >= ?", exchangeID, since).
		Order("exit_time desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
