package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one fill against an Order (§3 Trade). Invariant: sum of
// trade.amount for an order never exceeds order.amount.
type Trade struct {
	ID          string          `gorm:"primaryKey;size:80" json:"id"`
	OrderID     string          `gorm:"size:64;not null;index" json:"order_id"`
	ExchangeID  uint            `gorm:"not null;index" json:"exchange_id"`
	Symbol      string          `gorm:"size:32;not null;index" json:"symbol"`
	Side        OrderSide       `gorm:"size:8;not null" json:"side"`
	Price       decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"price"`
	Amount      decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"amount"`
	Cost        decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"cost"`
	Fee         *decimal.Decimal `gorm:"type:decimal(36,18)" json:"fee,omitempty"`
	FeeCurrency *string         `gorm:"size:16" json:"fee_currency,omitempty"`
	Timestamp   time.Time       `gorm:"not null;index" json:"timestamp"`
	Raw         JSONB           `gorm:"type:jsonb" json:"raw,omitempty"`
	CreatedAt   time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Trade) TableName() string { return "trades" }

// SyntheticTrade fabricates a fill row for an order the exchange reports as
// filled but returns no trade rows for, per §3 Trade.
func SyntheticTrade(order *Order) *Trade {
	price := order.Price
	if order.Average != nil {
		price = order.Average
	}
	var p decimal.Decimal
	if price != nil {
		p = *price
	}
	return &Trade{
		ID:         fmt.Sprintf("%s_synthetic", order.ID),
		OrderID:    order.ID,
		ExchangeID: order.ExchangeID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Price:      p,
		Amount:     order.Filled,
		Cost:       p.Mul(order.Filled),
		Timestamp:  order.Timestamp,
	}
}
