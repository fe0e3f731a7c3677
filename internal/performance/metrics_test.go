package performance_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/models"
	"futures_engine/internal/performance"
)

func closedAt(pnl, pnlPct float64, exitTime time.Time) models.ClosedPosition {
	return models.ClosedPosition{
		RealizedPnl:    decimal.NewFromFloat(pnl),
		RealizedPnlPct: decimal.NewFromFloat(pnlPct),
		ExitTime:       exitTime,
	}
}

func TestComputeDailyMetric_EmptyDayIsZeroRow(t *testing.T) {
	m := performance.ComputeDailyMetric(1, time.Now(), nil, decimal.NewFromInt(10000), decimal.Zero)
	if m.TradesClosed != 0 || m.WinCount != 0 || m.LossCount != 0 {
		t.Fatalf("expected an all-zero row for a day with no closures, got %+v", m)
	}
	if !m.EndingEquity.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected ending equity to be carried through, got %s", m.EndingEquity)
	}
}

func TestComputeDailyMetric_TotalReturnAgainstInitialCapital(t *testing.T) {
	m := performance.ComputeDailyMetric(1, time.Now(), nil, decimal.NewFromInt(11000), decimal.NewFromInt(10000))
	expected := decimal.NewFromInt(10)
	if !m.TotalReturnPct.Equal(expected) {
		t.Errorf("expected total return pct %s, got %s", expected, m.TotalReturnPct)
	}
}

func TestComputeDailyMetric_ZeroInitialCapitalSkipsReturn(t *testing.T) {
	m := performance.ComputeDailyMetric(1, time.Now(), nil, decimal.NewFromInt(11000), decimal.Zero)
	if !m.TotalReturnPct.Equal(decimal.Zero) {
		t.Errorf("expected zero total return when no baseline is set, got %s", m.TotalReturnPct)
	}
}

func TestComputeDailyMetric_WinRateAndRealizedPnl(t *testing.T) {
	base := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	closed := []models.ClosedPosition{
		closedAt(100, 2, base),
		closedAt(-50, -1, base.Add(time.Hour)),
		closedAt(200, 4, base.Add(2*time.Hour)),
	}

	m := performance.ComputeDailyMetric(1, base, closed, decimal.NewFromInt(10000), decimal.Zero)

	if m.TradesClosed != 3 {
		t.Errorf("expected 3 trades closed, got %d", m.TradesClosed)
	}
	if m.WinCount != 2 || m.LossCount != 1 {
		t.Errorf("expected 2 wins / 1 loss, got %d/%d", m.WinCount, m.LossCount)
	}
	if !m.RealizedPnl.Equal(decimal.NewFromInt(250)) {
		t.Errorf("expected realized pnl 250, got %s", m.RealizedPnl)
	}
	expectedWinRate := decimal.NewFromInt(2).Div(decimal.NewFromInt(3)).Mul(decimal.NewFromInt(100))
	if !m.WinRate.Equal(expectedWinRate) {
		t.Errorf("expected win rate %s, got %s", expectedWinRate, m.WinRate)
	}
}

func TestComputeDailyMetric_DrawdownTracksPeakToTrough(t *testing.T) {
	base := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	closed := []models.ClosedPosition{
		closedAt(100, 2, base.Add(1*time.Hour)),
		closedAt(-80, -1.6, base.Add(2*time.Hour)),
		closedAt(30, 0.6, base.Add(3*time.Hour)),
	}

	m := performance.ComputeDailyMetric(1, base, closed, decimal.Zero, decimal.Zero)

	if !m.MaxDrawdownPct.GreaterThan(decimal.Zero) {
		t.Fatalf("expected a nonzero drawdown after a peak followed by a decline, got %s", m.MaxDrawdownPct)
	}
}

func TestComputeDailyMetric_SingleTradeHasZeroSharpe(t *testing.T) {
	base := time.Now()
	closed := []models.ClosedPosition{closedAt(100, 2, base)}

	m := performance.ComputeDailyMetric(1, base, closed, decimal.Zero, decimal.Zero)
	if !m.SharpeRatio.Equal(decimal.Zero) {
		t.Errorf("expected a single-trade day to have zero Sharpe (needs at least 2 returns), got %s", m.SharpeRatio)
	}
}
