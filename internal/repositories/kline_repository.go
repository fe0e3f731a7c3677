package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"futures_engine/internal/models"
)

type KlineRepository struct {
	db *gorm.DB
}

func NewKlineRepository(db *gorm.DB) *KlineRepository {
	return &KlineRepository{db: db}
}

// Upsert writes a candle keyed by (exchange_id, symbol, timeframe,
// timestamp), per SPEC_FULL §4.8 — re-polling a partially-formed candle
// overwrites it in place rather than duplicating rows.
func (r *KlineRepository) Upsert(ctx context.Context, k *models.Kline) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exchange_id"}, {Name: "symbol"}, {Name: "timeframe"}, {Name: "timestamp"}},
		UpdateAll: true,
	}).Create(k).Error
}

func (r *KlineRepository) Recent(ctx context.Context, exchangeID uint, symbol, timeframe string, limit int) ([]models.Kline, error) {
	var klines []models.Kline
	err := r.db.WithContext(ctx).
		Where("exchange_id = ? AND symbol = ? AND timeframe = ?", exchangeID, symbol, timeframe).
		Order("timestamp desc").
		Limit(limit).
		Find(&klines).Error
	if err != nil {
		return nil, err
	}
	// reverse to ascending order for indicator math
	for i, j := 0, len(klines)-1; i < j; i, j = i+1, j-1 {
		klines[i], klines[j] = klines[j], klines[i]
	}
	return klines, nil
}

// DeleteOlderThan implements Kline's per-timeframe optional retention
// (§3 Kline).
func (r *KlineRepository) DeleteOlderThan(ctx context.Context, timeframe string, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("timeframe = ? AND timestamp < ?", timeframe, before).
		Delete(&models.Kline{})
	return res.RowsAffected, res.Error
}
