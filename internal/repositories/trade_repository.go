package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"futures_engine/internal/models"
)

type TradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create is idempotent on the trade ID: duplicate fills reported by the
// exchange on repeated fetches are silently ignored rather than erroring.
func (r *TradeRepository) Create(ctx context.Context, trade *models.Trade) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(trade).Error
}

func (r *TradeRepository) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Trade{}).Where("order_id = ?", orderID).Count(&count).Error
	return count > 0, err
}

func (r *TradeRepository) ListByOrder(ctx context.Context, orderID string) ([]models.Trade, error) {
	var trades []models.Trade
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("timestamp asc").Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *TradeRepository) SumAmountForOrder(ctx context.Context, orderID string) (string, error) {
	var sum string
	err := r.db.WithContext(ctx).Model(&models.Trade{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("order_id = ?", orderID).
		Scan(&sum).Error
	if err != nil {
		return "0", err
	}
	return sum, nil
}
