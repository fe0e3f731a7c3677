package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"futures_engine/internal/models"
)

type PerformanceMetricRepository struct {
	db *gorm.DB
}

func NewPerformanceMetricRepository(db *gorm.DB) *PerformanceMetricRepository {
	return &PerformanceMetricRepository{db: db}
}

func (r *PerformanceMetricRepository) Upsert(ctx context.Context, m *models.PerformanceMetric) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exchange_id"}, {Name: "date"}},
		UpdateAll: true,
	}).Create(m).Error
}

func (r *PerformanceMetricRepository) Range(ctx context.Context, exchangeID uint, from, to time.Time) ([]models.PerformanceMetric, error) {
	var rows []models.PerformanceMetric
	err := r.db.WithContext(ctx).
		Where("exchange_id = ? AND date BETWEEN ? AND ?", exchangeID, from, to).
		Order("date asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
