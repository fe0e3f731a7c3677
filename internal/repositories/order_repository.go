package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"futures_engine/internal/models"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Upsert writes an order keyed by its exchange ID, per §3 Order.
func (r *OrderRepository) Upsert(ctx context.Context, order *models.Order) error {
	order.NormalizeStatus()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(order).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) GetByClientID(ctx context.Context, clientID string) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Where("client_id = ?", clientID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) ListOpen(ctx context.Context, exchangeID uint, symbol string) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).Where("exchange_id = ? AND status IN ?", exchangeID,
		[]models.OrderStatus{models.OrderStatusPending, models.OrderStatusOpen, models.OrderStatusPartiallyFilled})
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	if err := q.Order("timestamp desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) ListBySymbol(ctx context.Context, exchangeID uint, symbol string, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("exchange_id = ? AND symbol = ?", exchangeID, symbol).
		Order("timestamp desc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
