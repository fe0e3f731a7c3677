package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSettings holds the risk limits and capital baseline the risk
// pipeline checks orders against (§3 AccountSettings, §4.7). One row per
// exchange; paper mode starts the ledger at InitialCapital.
type AccountSettings struct {
	ID                     uint            `gorm:"primaryKey" json:"id"`
	ExchangeID             uint            `gorm:"not null;uniqueIndex" json:"exchange_id"`
	PaperMode              bool            `gorm:"default:true" json:"paper_mode"`
	EnableTrading          bool            `gorm:"default:false" json:"enable_trading"`
	InitialCapital         decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"initial_capital"`
	MaxPositionSizePct     decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"max_position_size_pct"`
	MaxLeverage            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"max_leverage"`
	MaxOpenPositions       int             `gorm:"not null" json:"max_open_positions"`
	MaxPortfolioExposurePct decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"max_portfolio_exposure_pct"`
	DefaultStopLossPct     decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"default_stop_loss_pct"`
	DefaultTakeProfitPct   decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"default_take_profit_pct"`
	MaxDailyLossPct        decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"max_daily_loss_pct"`
	UpdatedAt              time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AccountSettings) TableName() string { return "account_settings" }
