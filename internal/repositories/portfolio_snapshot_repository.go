package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"futures_engine/internal/models"
)

type PortfolioSnapshotRepository struct {
	db *gorm.DB
}

func NewPortfolioSnapshotRepository(db *gorm.DB) *PortfolioSnapshotRepository {
	return &PortfolioSnapshotRepository{db: db}
}

func (r *PortfolioSnapshotRepository) Create(ctx context.Context, snap *models.PortfolioSnapshot) error {
	return r.db.WithContext(ctx).Create(snap).Error
}

// Upsert mutates the single is_latest=true row for this exchange in place,
// creating it on the first call (§4.6 dual-write: one row updated every
// sync tick, independent of the periodic archive rows Create writes).
func (r *PortfolioSnapshotRepository) Upsert(ctx context.Context, snap *models.PortfolioSnapshot) error {
	var existing models.PortfolioSnapshot
	err := r.db.WithContext(ctx).
		Where("exchange_id = ? AND is_latest = ?", snap.ExchangeID, true).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		snap.IsLatest = true
		return r.db.WithContext(ctx).Create(snap).Error
	}
	if err != nil {
		return err
	}
	snap.ID = existing.ID
	snap.IsLatest = true
	return r.db.WithContext(ctx).Model(&models.PortfolioSnapshot{}).Where("id = ?", existing.ID).Updates(snap).Error
}

func (r *PortfolioSnapshotRepository) Latest(ctx context.Context, exchangeID uint) (*models.PortfolioSnapshot, error) {
	var snap models.PortfolioSnapshot
	err := r.db.WithContext(ctx).
		Where("exchange_id = ?", exchangeID).
		Order("timestamp desc").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
