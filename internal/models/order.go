package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderTypeMarket             OrderType = "market"
	OrderTypeLimit              OrderType = "limit"
	OrderTypeStopLoss           OrderType = "stop_loss"
	OrderTypeStopLossLimit      OrderType = "stop_loss_limit"
	OrderTypeTakeProfit         OrderType = "take_profit"
	OrderTypeTakeProfitLimit    OrderType = "take_profit_limit"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

// Order mirrors the exchange's order record (§3 Order). UPSERTed by ID;
// filled >= amount always normalizes Status to OrderStatusFilled regardless
// of what the exchange reported (invariant 3 in spec.md §8).
type Order struct {
	ID              string           `gorm:"primaryKey;size:64" json:"id"`
	ClientID        string           `gorm:"size:64;index" json:"client_id"`
	ExchangeID      uint             `gorm:"not null;index" json:"exchange_id"`
	Symbol          string           `gorm:"size:32;not null;index" json:"symbol"`
	Side            OrderSide        `gorm:"size:8;not null" json:"side"`
	Type            OrderType        `gorm:"size:24;not null" json:"type"`
	Status          OrderStatus      `gorm:"size:20;not null" json:"status"`
	Price           *decimal.Decimal `gorm:"type:decimal(36,18)" json:"price,omitempty"`
	Amount          decimal.Decimal  `gorm:"type:decimal(36,18);not null" json:"amount"`
	Filled          decimal.Decimal  `gorm:"type:decimal(36,18);not null;default:0" json:"filled"`
	Remaining       decimal.Decimal  `gorm:"type:decimal(36,18);not null" json:"remaining"`
	Cost            decimal.Decimal  `gorm:"type:decimal(36,18);not null;default:0" json:"cost"`
	Average         *decimal.Decimal `gorm:"type:decimal(36,18)" json:"average,omitempty"`
	Fee             *decimal.Decimal `gorm:"type:decimal(36,18)" json:"fee,omitempty"`
	FeeCurrency     *string          `gorm:"size:16" json:"fee_currency,omitempty"`
	StopPrice       *decimal.Decimal `gorm:"type:decimal(36,18)" json:"stop_price,omitempty"`
	TakeProfitPrice *decimal.Decimal `gorm:"type:decimal(36,18)" json:"take_profit_price,omitempty"`
	StopLossPrice   *decimal.Decimal `gorm:"type:decimal(36,18)" json:"stop_loss_price,omitempty"`
	Timestamp       time.Time        `gorm:"not null" json:"timestamp"`
	RawBlob         JSONB            `gorm:"type:jsonb" json:"raw_blob,omitempty"`
	CreatedAt       time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// NormalizeStatus applies the filled>=amount invariant before persistence.
func (o *Order) NormalizeStatus() {
	if o.Filled.GreaterThanOrEqual(o.Amount) && o.Amount.IsPositive() {
		o.Status = OrderStatusFilled
		o.Remaining = decimal.Zero
		return
	}
	o.Remaining = o.Amount.Sub(o.Filled)
	if o.Remaining.IsNegative() {
		o.Remaining = decimal.Zero
	}
}
