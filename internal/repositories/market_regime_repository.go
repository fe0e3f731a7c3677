package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"futures_engine/internal/models"
)

type MarketRegimeRepository struct {
	db *gorm.DB
}

func NewMarketRegimeRepository(db *gorm.DB) *MarketRegimeRepository {
	return &MarketRegimeRepository{db: db}
}

func (r *MarketRegimeRepository) Create(ctx context.Context, regime *models.MarketRegime) error {
	return r.db.WithContext(ctx).Create(regime).Error
}

func (r *MarketRegimeRepository) Latest(ctx context.Context) (*models.MarketRegime, error) {
	var regime models.MarketRegime
	err := r.db.WithContext(ctx).Order("generated_at desc").First(&regime).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &regime, nil
}
