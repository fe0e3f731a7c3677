// Package performance computes the daily PerformanceMetric rollup (SUPPLEMENT,
// SPEC_FULL.md §3) from the realized-PnL ledger. Grounded on the teacher's
// internal/trading/metrics.go MetricsCalculator: win rate, max drawdown, and
// an annualized Sharpe ratio over per-trade returns, generalized from
// per-strategy virtual trades to per-exchange closed_positions rows.
package performance

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/models"
)

const tradingDaysPerYear = 252
const riskFreeRateDaily = 0.04 / tradingDaysPerYear

// ComputeDailyMetric rolls up closed's realized PnL for exchangeID/date into
// a PerformanceMetric. endingEquity is the portfolio's total value as of the
// end of that day (from the latest PortfolioSnapshot at or before day's end).
// initialCapital is the account's total-return baseline (spec.md §3 Account
// settings: "used only for total-return baseline"); zero skips the ratio
// rather than dividing by it.
func ComputeDailyMetric(exchangeID uint, date time.Time, closed []models.ClosedPosition, endingEquity, initialCapital decimal.Decimal) *models.PerformanceMetric {
	m := &models.PerformanceMetric{
		ExchangeID:   exchangeID,
		Date:         date,
		EndingEquity: endingEquity,
	}
	if initialCapital.IsPositive() {
		m.TotalReturnPct = endingEquity.Sub(initialCapital).Div(initialCapital).Mul(decimal.NewFromInt(100))
	}
	if len(closed) == 0 {
		return m
	}

	returns := make([]float64, 0, len(closed))
	var realizedTotal decimal.Decimal

	for _, cp := range closed {
		realizedTotal = realizedTotal.Add(cp.RealizedPnl)
		if cp.RealizedPnl.IsPositive() {
			m.WinCount++
		} else if cp.RealizedPnl.IsNegative() {
			m.LossCount++
		}
		returns = append(returns, cp.RealizedPnlPct.InexactFloat64())
	}

	m.TradesClosed = len(closed)
	m.RealizedPnl = realizedTotal
	if closedDecisive := m.WinCount + m.LossCount; closedDecisive > 0 {
		m.WinRate = decimal.NewFromInt(int64(m.WinCount)).
			Div(decimal.NewFromInt(int64(closedDecisive))).
			Mul(decimal.NewFromInt(100))
	}
	m.MaxDrawdownPct = decimal.NewFromFloat(maxDrawdownPct(closed))
	m.SharpeRatio = decimal.NewFromFloat(sharpeRatio(returns))

	return m
}

// maxDrawdownPct walks closures in exit-time order and finds the largest
// peak-to-trough decline in cumulative realized PnL (teacher's
// calculateMaxDrawdown, percent-of-peak form).
func maxDrawdownPct(closed []models.ClosedPosition) float64 {
	ordered := make([]models.ClosedPosition, len(closed))
	copy(ordered, closed)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].ExitTime.Before(ordered[j-1].ExitTime); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	var cumulative, peak, maxDD float64
	for _, cp := range ordered {
		cumulative += cp.RealizedPnl.InexactFloat64()
		if cumulative > peak {
			peak = cumulative
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - cumulative) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpeRatio is the teacher's annualized Sharpe over per-trade percent
// returns: (mean - risk_free) / sample stddev, scaled by sqrt(252).
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	stdDev := math.Sqrt(variance)

	if stdDev == 0 {
		if mean > 0 {
			return 10.0
		}
		return 0
	}

	return (mean - riskFreeRateDaily) / stdDev * math.Sqrt(tradingDaysPerYear)
}
