package risk_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"futures_engine/internal/models"
	"futures_engine/internal/risk"
)

func TestCheckOrderRisk_RejectsConflictingDirection(t *testing.T) {
	existing := &models.Position{Side: models.OrderSideBuy, IsOpen: true}
	result := risk.CheckOrderRisk(risk.OrderRiskInput{
		Symbol:            "BTC/USDT:USDT",
		SignalType:        models.SignalOpenShort,
		SuggestedAmount:   decimal.NewFromFloat(0.1),
		SuggestedPrice:    decimal.NewFromInt(50000),
		SuggestedLeverage: decimal.NewFromInt(5),
		ExistingPosition:  existing,
	}, risk.PortfolioState{}, risk.DefaultLimits())

	if result.Approved {
		t.Fatal("expected rejection for an opposite-side signal against an open position")
	}
}

func TestCheckOrderRisk_RejectsLeverageAboveMax(t *testing.T) {
	limits := risk.DefaultLimits()
	result := risk.CheckOrderRisk(risk.OrderRiskInput{
		Symbol:            "BTC/USDT:USDT",
		SignalType:        models.SignalOpenLong,
		SuggestedAmount:   decimal.NewFromFloat(0.1),
		SuggestedPrice:    decimal.NewFromInt(50000),
		SuggestedLeverage: limits.MaxLeverageMainstream.Add(decimal.NewFromInt(1)),
	}, risk.PortfolioState{TotalValue: decimal.NewFromInt(100000)}, limits)

	if result.Approved {
		t.Fatal("expected rejection for leverage above the mainstream max")
	}
}

func TestCheckOrderRisk_RejectsOversizedPositionWithAdjustment(t *testing.T) {
	limits := risk.DefaultLimits()
	portfolio := risk.PortfolioState{TotalValue: decimal.NewFromInt(1000)}

	result := risk.CheckOrderRisk(risk.OrderRiskInput{
		Symbol:            "BTC/USDT:USDT",
		SignalType:        models.SignalOpenLong,
		SuggestedAmount:   decimal.NewFromInt(1),
		SuggestedPrice:    decimal.NewFromInt(50000),
		SuggestedLeverage: decimal.NewFromInt(1),
	}, portfolio, limits)

	if result.Approved {
		t.Fatal("expected rejection: $50000 notional against $1000 total value blows past max_position_size")
	}
	if result.Adjustment == nil {
		t.Fatal("expected an adjustment suggesting a smaller amount")
	}
	if !result.Adjustment.MaxAllowedAmount.IsPositive() {
		t.Errorf("expected a positive suggested amount, got %s", result.Adjustment.MaxAllowedAmount)
	}
}

func TestCheckOrderRisk_TripsDailyLossCircuitBreaker(t *testing.T) {
	limits := risk.DefaultLimits()
	portfolio := risk.PortfolioState{
		TotalValue: decimal.NewFromInt(100000),
		DailyPnl:   limits.MaxDailyLoss.Mul(decimal.NewFromInt(100000)).Neg(),
	}

	result := risk.CheckOrderRisk(risk.OrderRiskInput{
		Symbol:            "BTC/USDT:USDT",
		SignalType:        models.SignalOpenLong,
		SuggestedAmount:   decimal.NewFromFloat(0.01),
		SuggestedPrice:    decimal.NewFromInt(50000),
		SuggestedLeverage: decimal.NewFromInt(1),
	}, portfolio, limits)

	if result.Approved {
		t.Fatal("expected the daily-loss circuit breaker to reject the order")
	}
}

func TestCheckOrderRisk_AllowsExitsUnconditionally(t *testing.T) {
	result := risk.CheckOrderRisk(risk.OrderRiskInput{
		Symbol:     "BTC/USDT:USDT",
		SignalType: models.SignalCloseLong,
	}, risk.PortfolioState{}, risk.DefaultLimits())

	if !result.Approved {
		t.Fatal("exits must never be blocked by the risk pipeline")
	}
}

func TestCheckPositionRisk_LongStopLoss(t *testing.T) {
	sl := decimal.NewFromInt(48000)
	pos := &models.Position{Side: models.OrderSideBuy, StopLoss: &sl}

	if action := risk.CheckPositionRisk(pos, decimal.NewFromInt(47000)); action != risk.ActionClosePosition {
		t.Errorf("expected close_position when price falls through a long's stop, got %q", action)
	}
	if action := risk.CheckPositionRisk(pos, decimal.NewFromInt(49000)); action != risk.ActionNone {
		t.Errorf("expected no action above the stop, got %q", action)
	}
}

func TestCheckPositionRisk_ShortTakeProfit(t *testing.T) {
	tp := decimal.NewFromInt(45000)
	pos := &models.Position{Side: models.OrderSideSell, TakeProfit: &tp}

	if action := risk.CheckPositionRisk(pos, decimal.NewFromInt(44000)); action != risk.ActionTakeProfit {
		t.Errorf("expected take_profit when price falls through a short's target, got %q", action)
	}
}

func TestCheckPortfolioRisk_TripsOnWipeout(t *testing.T) {
	tripped, _ := risk.CheckPortfolioRisk(decimal.Zero, decimal.Zero, risk.DefaultLimits())
	if !tripped {
		t.Fatal("expected the circuit breaker to trip when total value hits zero")
	}
}

func TestCalculateStopLossTakeProfit_ShortFlipsDirection(t *testing.T) {
	limits := risk.DefaultLimits()
	entry := decimal.NewFromInt(50000)

	sl, tp := risk.CalculateStopLossTakeProfit(entry, models.OrderSideSell, limits)

	if !sl.GreaterThan(entry) {
		t.Errorf("expected a short's stop-loss above entry, got %s (entry %s)", sl, entry)
	}
	if !tp.LessThan(entry) {
		t.Errorf("expected a short's take-profit below entry, got %s (entry %s)", tp, entry)
	}
}
