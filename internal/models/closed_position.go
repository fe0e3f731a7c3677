package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CloseReason string

const (
	CloseReasonManual      CloseReason = "manual"
	CloseReasonStopLoss    CloseReason = "stop_loss"
	CloseReasonTakeProfit  CloseReason = "take_profit"
	CloseReasonLiquidation CloseReason = "liquidation"
	CloseReasonSystem      CloseReason = "system"
	CloseReasonUnknown     CloseReason = "unknown"
)

// ClosedPosition is the append-only realized-PnL ledger row (§3
// ClosedPosition). realized_pnl = (exit-entry)*amount for longs, the
// negation for shorts; pct is w.r.t. entry_value (invariant 2, spec.md §8).
type ClosedPosition struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	ExchangeID            uint            `gorm:"not null;index" json:"exchange_id"`
	Symbol                string          `gorm:"size:32;not null;index" json:"symbol"`
	Side                  OrderSide       `gorm:"size:8;not null" json:"side"`
	EntryOrderID          *string         `gorm:"size:64" json:"entry_order_id,omitempty"`
	EntryPrice            decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"entry_price"`
	EntryTime             time.Time       `gorm:"not null" json:"entry_time"`
	ExitOrderID           *string         `gorm:"size:64" json:"exit_order_id,omitempty"`
	ExitPrice             decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"exit_price"`
	ExitTime              time.Time       `gorm:"not null" json:"exit_time"`
	Amount                decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"amount"`
	EntryValue            decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"entry_value"`
	ExitValue             decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"exit_value"`
	RealizedPnl           decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"realized_pnl"`
	RealizedPnlPct        decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"realized_pnl_pct"`
	TotalFee              decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"total_fee"`
	FeeCurrency           string          `gorm:"size:16" json:"fee_currency"`
	CloseReason           CloseReason     `gorm:"size:20;not null" json:"close_reason"`
	HoldingDurationSecond int64           `gorm:"not null" json:"holding_duration_seconds"`
	Leverage              *decimal.Decimal `gorm:"type:decimal(10,2)" json:"leverage,omitempty"`
	CreatedAt             time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ClosedPosition) TableName() string { return "closed_positions" }

// NewClosedPosition computes realized PnL per §3 ClosedPosition and §8
// invariant 2, from a (possibly partial) closed amount of a live position.
func NewClosedPosition(pos *Position, closedAmount, exitPrice, totalFee decimal.Decimal, exitTime time.Time, exitOrderID *string, reason CloseReason) *ClosedPosition {
	entryValue := closedAmount.Mul(pos.EntryPrice)
	exitValue := closedAmount.Mul(exitPrice)

	var realized decimal.Decimal
	if pos.Side == OrderSideBuy {
		realized = exitPrice.Sub(pos.EntryPrice).Mul(closedAmount)
	} else {
		realized = pos.EntryPrice.Sub(exitPrice).Mul(closedAmount)
	}

	pct := decimal.Zero
	if entryValue.IsPositive() {
		pct = realized.Div(entryValue).Mul(decimal.NewFromInt(100))
	}

	return &ClosedPosition{
		ExchangeID:            pos.ExchangeID,
		Symbol:                pos.Symbol,
		Side:                  pos.Side,
		EntryOrderID:          pos.EntryOrderID,
		EntryPrice:            pos.EntryPrice,
		EntryTime:             pos.OpenedAt,
		ExitOrderID:           exitOrderID,
		ExitPrice:             exitPrice,
		ExitTime:              exitTime,
		Amount:                closedAmount,
		EntryValue:            entryValue,
		ExitValue:             exitValue,
		RealizedPnl:           realized,
		RealizedPnlPct:        pct,
		TotalFee:              totalFee,
		CloseReason:           reason,
		HoldingDurationSecond: int64(exitTime.Sub(pos.OpenedAt).Seconds()),
		Leverage:              pos.Leverage,
	}
}
