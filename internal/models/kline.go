package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kline is one OHLCV candle cached from the market-data poller (§3 Kline,
// SPEC_FULL §4.8). UPSERTed on (exchange_id, symbol, timeframe, timestamp).
type Kline struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ExchangeID uint            `gorm:"not null;uniqueIndex:idx_kline_key" json:"exchange_id"`
	Symbol     string          `gorm:"size:32;not null;uniqueIndex:idx_kline_key" json:"symbol"`
	Timeframe  string          `gorm:"size:8;not null;uniqueIndex:idx_kline_key" json:"timeframe"`
	Timestamp  time.Time       `gorm:"not null;uniqueIndex:idx_kline_key" json:"timestamp"`
	Open       decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"open"`
	High       decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"high"`
	Low        decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"low"`
	Close      decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"close"`
	Volume     decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"volume"`
}

func (Kline) TableName() string { return "klines" }
