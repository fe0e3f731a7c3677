package repositories

import (
	"context"

	"gorm.io/gorm"

	"futures_engine/internal/models"
)

type SystemEventRepository struct {
	db *gorm.DB
}

func NewSystemEventRepository(db *gorm.DB) *SystemEventRepository {
	return &SystemEventRepository{db: db}
}

func (r *SystemEventRepository) Create(ctx context.Context, ev *models.SystemEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *SystemEventRepository) Recent(ctx context.Context, limit int) ([]models.SystemEvent, error) {
	var events []models.SystemEvent
	err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
