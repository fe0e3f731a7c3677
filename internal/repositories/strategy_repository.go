package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"futures_engine/internal/models"
)

type StrategyRepository struct {
	db *gorm.DB
}

func NewStrategyRepository(db *gorm.DB) *StrategyRepository {
	return &StrategyRepository{db: db}
}

func (r *StrategyRepository) Active(ctx context.Context) (*models.Strategy, error) {
	var s models.Strategy
	err := r.db.WithContext(ctx).Where("active = ?", true).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StrategyRepository) List(ctx context.Context) ([]models.Strategy, error) {
	var strategies []models.Strategy
	err := r.db.WithContext(ctx).Find(&strategies).Error
	if err != nil {
		return nil, err
	}
	return strategies, nil
}

type ExperienceRepository struct {
	db *gorm.DB
}

func NewExperienceRepository(db *gorm.DB) *ExperienceRepository {
	return &ExperienceRepository{db: db}
}

func (r *ExperienceRepository) Create(ctx context.Context, exp *models.Experience) error {
	return r.db.WithContext(ctx).Create(exp).Error
}

func (r *ExperienceRepository) RecentForSymbol(ctx context.Context, symbol string, limit int) ([]models.Experience, error) {
	var rows []models.Experience
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
