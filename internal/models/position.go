package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a live, open exchange position (§3 Position). Uniqueness:
// (exchange_id, symbol, side, is_open=true) is unique — hedge mode allows a
// long and a short on the same symbol simultaneously but never two of the
// same side.
type Position struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	ExchangeID       uint             `gorm:"not null;uniqueIndex:idx_open_position" json:"exchange_id"`
	Symbol           string           `gorm:"size:32;not null;uniqueIndex:idx_open_position" json:"symbol"`
	Side             OrderSide        `gorm:"size:8;not null;uniqueIndex:idx_open_position" json:"side"`
	Amount           decimal.Decimal  `gorm:"type:decimal(36,18);not null" json:"amount"`
	EntryPrice       decimal.Decimal  `gorm:"type:decimal(36,18);not null" json:"entry_price"`
	CurrentPrice     decimal.Decimal  `gorm:"type:decimal(36,18);not null" json:"current_price"`
	UnrealizedPnl    decimal.Decimal  `gorm:"type:decimal(36,18);not null" json:"unrealized_pnl"`
	UnrealizedPnlPct decimal.Decimal  `gorm:"type:decimal(10,4);not null" json:"unrealized_pnl_pct"`
	StopLoss         *decimal.Decimal `gorm:"type:decimal(36,18)" json:"stop_loss,omitempty"`
	TakeProfit       *decimal.Decimal `gorm:"type:decimal(36,18)" json:"take_profit,omitempty"`
	Leverage         *decimal.Decimal `gorm:"type:decimal(10,2)" json:"leverage,omitempty"`
	LiquidationPrice *decimal.Decimal `gorm:"type:decimal(36,18)" json:"liquidation_price,omitempty"`
	EntryFee         decimal.Decimal  `gorm:"type:decimal(36,18);not null;default:0" json:"entry_fee"`
	EntryOrderID     *string          `gorm:"size:64" json:"entry_order_id,omitempty"`
	OpenedAt         time.Time        `gorm:"not null" json:"opened_at"`
	IsOpen           bool             `gorm:"not null;default:true;uniqueIndex:idx_open_position" json:"is_open"`
	CreatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Position) TableName() string { return "positions" }

// Value is amount * current_price (§3 Position).
func (p *Position) Value() decimal.Decimal {
	return p.Amount.Mul(p.CurrentPrice)
}

// Recalculate refreshes unrealized PnL fields from the current mark price.
func (p *Position) Recalculate(currentPrice decimal.Decimal) {
	p.CurrentPrice = currentPrice
	entryValue := p.Amount.Mul(p.EntryPrice)
	if p.Side == OrderSideBuy {
		p.UnrealizedPnl = currentPrice.Sub(p.EntryPrice).Mul(p.Amount)
	} else {
		p.UnrealizedPnl = p.EntryPrice.Sub(currentPrice).Mul(p.Amount)
	}
	if entryValue.IsPositive() {
		p.UnrealizedPnlPct = p.UnrealizedPnl.Div(entryValue).Mul(decimal.NewFromInt(100))
	}
}
