package repositories

import (
	"context"

	"gorm.io/gorm"

	"futures_engine/internal/models"
)

type DecisionRecordRepository struct {
	db *gorm.DB
}

func NewDecisionRecordRepository(db *gorm.DB) *DecisionRecordRepository {
	return &DecisionRecordRepository{db: db}
}

func (r *DecisionRecordRepository) Create(ctx context.Context, rec *models.DecisionRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}
