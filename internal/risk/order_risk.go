package risk

import (
	"strings"

	"github.com/shopspring/decimal"

	"futures_engine/internal/models"
)

// OrderRiskInput is the signal-shaped data check_order_risk evaluates.
type OrderRiskInput struct {
	Symbol            string
	SignalType        models.SignalType
	SuggestedAmount   decimal.Decimal
	SuggestedPrice    decimal.Decimal
	SuggestedLeverage decimal.Decimal
	ExistingPosition  *models.Position // nil if none open on this symbol/side
}

// PortfolioState is the subset of account state risk checks need.
type PortfolioState struct {
	TotalValue decimal.Decimal
	DailyPnl   decimal.Decimal
}

// Adjustment suggests a substitute amount that would make a rejected order
// pass (§8 invariant 7).
type Adjustment struct {
	MaxAllowedAmount decimal.Decimal
}

type OrderRiskResult struct {
	Approved   bool
	Reason     string
	Warnings   []string
	Adjustment *Adjustment
}

func isExit(signal models.SignalType) bool {
	return signal == models.SignalCloseLong || signal == models.SignalCloseShort
}

func intendedSide(signal models.SignalType) models.OrderSide {
	if signal == models.SignalOpenShort {
		return models.OrderSideSell
	}
	return models.OrderSideBuy
}

func isMainstream(symbol string) bool {
	upper := strings.ToUpper(symbol)
	return strings.Contains(upper, "BTC") || strings.Contains(upper, "ETH")
}

// CheckOrderRisk implements §4.7 check_order_risk.
func CheckOrderRisk(in OrderRiskInput, portfolio PortfolioState, limits Limits) OrderRiskResult {
	if isExit(in.SignalType) {
		return OrderRiskResult{Approved: true}
	}

	if in.ExistingPosition != nil && in.ExistingPosition.IsOpen && in.ExistingPosition.Side != intendedSide(in.SignalType) {
		return OrderRiskResult{
			Approved: false,
			Reason:   "conflicting direction: an opposite-side position is already open on " + in.Symbol + ", close it first",
		}
	}

	if in.SuggestedAmount.IsZero() || in.SuggestedAmount.IsNegative() {
		return OrderRiskResult{Approved: false, Reason: "suggested_amount must be positive"}
	}
	if in.SuggestedPrice.IsZero() || in.SuggestedPrice.IsNegative() {
		return OrderRiskResult{Approved: false, Reason: "suggested_price must be positive"}
	}

	leverage := in.SuggestedLeverage
	if leverage.IsZero() {
		leverage = decimal.NewFromInt(1)
	}
	maxLeverage := limits.MaxLeverageAltcoin
	if isMainstream(in.Symbol) {
		maxLeverage = limits.MaxLeverageMainstream
	}

	var warnings []string
	if leverage.LessThan(decimal.NewFromInt(1)) {
		return OrderRiskResult{Approved: false, Reason: "leverage must be at least 1x"}
	}
	if leverage.GreaterThan(maxLeverage) {
		return OrderRiskResult{Approved: false, Reason: "leverage exceeds maximum allowed for this symbol"}
	}
	if leverage.GreaterThan(limits.HighLeverageWarning) {
		warnings = append(warnings, "leverage is above the high-leverage warning threshold")
	}

	notional := in.SuggestedAmount.Mul(in.SuggestedPrice)
	marginRequired := notional.Div(leverage)

	if portfolio.TotalValue.IsPositive() {
		allocationPct := marginRequired.Div(portfolio.TotalValue)
		if allocationPct.GreaterThan(limits.MaxPositionSize) {
			maxAllowedAmount := limits.MaxPositionSize.Mul(portfolio.TotalValue).Mul(leverage).Div(in.SuggestedPrice)
			return OrderRiskResult{
				Approved:   false,
				Reason:     "position size exceeds max_position_size limit",
				Adjustment: &Adjustment{MaxAllowedAmount: maxAllowedAmount},
			}
		}

		if portfolio.DailyPnl.IsNegative() {
			dailyLossPct := portfolio.DailyPnl.Abs().Div(portfolio.TotalValue)
			if dailyLossPct.GreaterThanOrEqual(limits.MaxDailyLoss) {
				return OrderRiskResult{Approved: false, Reason: "daily loss circuit breaker tripped"}
			}
		}
	}

	return OrderRiskResult{Approved: true, Warnings: warnings}
}
