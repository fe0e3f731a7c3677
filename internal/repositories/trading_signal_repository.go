package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"futures_engine/internal/models"
)

type TradingSignalRepository struct {
	db *gorm.DB
}

func NewTradingSignalRepository(db *gorm.DB) *TradingSignalRepository {
	return &TradingSignalRepository{db: db}
}

func (r *TradingSignalRepository) Create(ctx context.Context, sig *models.TradingSignal) error {
	return r.db.WithContext(ctx).Create(sig).Error
}

// LatestForSymbol returns the newest executed signal for symbol generated at
// or after since, or nil if there is none. The Executor's 10-minute
// trade-action dedup window does not use it; that window is kept in the
// trade-action cache.
func (r *TradingSignalRepository) LatestForSymbol(ctx context.Context, symbol string, since time.Time) (*models.TradingSignal, error) {
	var sig models.TradingSignal
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND generated_at >= ? AND executed = ?", symbol, since, true).
		Order("generated_at desc").
		First(&sig).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

// ListRecent returns every signal generated since the given time, newest
// first, for the read API's signal feed.
func (r *TradingSignalRepository) ListRecent(ctx context.Context, since time.Time, limit int) ([]models.TradingSignal, error) {
	var signals []models.TradingSignal
	err := r.db.WithContext(ctx).
		Where("generated_at >= ?", since).
		Order("generated_at desc").
		Limit(limit).
		Find(&signals).Error
	return signals, err
}
