package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceMetric is a daily rollup of realized performance (SUPPLEMENT —
// grounded on the teacher's strategy-metrics math in
// internal/services/trading_service.go: Sharpe ratio, win rate, max
// drawdown, generalized from per-strategy to per-exchange/day).
type PerformanceMetric struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ExchangeID    uint            `gorm:"not null;uniqueIndex:idx_perf_day" json:"exchange_id"`
	Date          time.Time       `gorm:"not null;uniqueIndex:idx_perf_day" json:"date"`
	TradesClosed  int             `gorm:"not null;default:0" json:"trades_closed"`
	WinCount      int             `gorm:"not null;default:0" json:"win_count"`
	LossCount     int             `gorm:"not null;default:0" json:"loss_count"`
	WinRate       decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"win_rate"`
	RealizedPnl   decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"realized_pnl"`
	SharpeRatio   decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"sharpe_ratio"`
	MaxDrawdownPct decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"max_drawdown_pct"`
	EndingEquity  decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"ending_equity"`
	TotalReturnPct decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"total_return_pct"`
}

func (PerformanceMetric) TableName() string { return "performance_metrics" }
