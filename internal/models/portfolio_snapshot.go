package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is a periodic roll-up of account equity written by the
// account-sync loop (§3 PortfolioSnapshot, §4.6).
type PortfolioSnapshot struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ExchangeID       uint            `gorm:"not null;index" json:"exchange_id"`
	TotalEquity      decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"total_equity"`
	AvailableBalance decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"available_balance"`
	UnrealizedPnl    decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"unrealized_pnl"`
	OpenPositions    int             `gorm:"not null" json:"open_positions"`
	MarginUsed       decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"margin_used"`
	MarginRatio      decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"margin_ratio"`
	RawBalances      JSONB           `gorm:"type:jsonb" json:"raw_balances,omitempty"`
	Timestamp        time.Time       `gorm:"not null;index" json:"timestamp"`
	// IsLatest marks the one row per exchange that Upsert mutates on every
	// sync tick, distinct from the periodic archive rows Create writes
	// (§4.6 update_portfolio_snapshot's dual-write mode).
	IsLatest bool `gorm:"not null;default:false;index" json:"-"`
}

func (PortfolioSnapshot) TableName() string { return "portfolio_snapshots" }
