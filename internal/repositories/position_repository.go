package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"futures_engine/internal/models"
)

type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

func (r *PositionRepository) GetOpen(ctx context.Context, exchangeID uint, symbol string, side models.OrderSide) (*models.Position, error) {
	var pos models.Position
	err := r.db.WithContext(ctx).
		Where("exchange_id = ? AND symbol = ? AND side = ? AND is_open = ?", exchangeID, symbol, side, true).
		First(&pos).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

func (r *PositionRepository) ListOpen(ctx context.Context, exchangeID uint) ([]models.Position, error) {
	var positions []models.Position
	err := r.db.WithContext(ctx).Where("exchange_id = ? AND is_open = ?", exchangeID, true).Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// Upsert relies on the partial unique index over (exchange_id, symbol,
// side) WHERE is_open, created by the migration (gorm struct tags can't
// express a partial index directly, see DESIGN.md).
func (r *PositionRepository) Upsert(ctx context.Context, pos *models.Position) error {
	if pos.ID != 0 {
		return r.db.WithContext(ctx).Save(pos).Error
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exchange_id"}, {Name: "symbol"}, {Name: "side"}},
		UpdateAll: true,
	}).Create(pos).Error
}

func (r *PositionRepository) Close(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Position{}).Where("id = ?", id).Update("is_open", false).Error
}
