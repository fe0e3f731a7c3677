package risk

import (
	"github.com/shopspring/decimal"

	"futures_engine/internal/models"
)

type PositionRiskAction string

const (
	ActionNone           PositionRiskAction = ""
	ActionClosePosition  PositionRiskAction = "close_position"
	ActionTakeProfit     PositionRiskAction = "take_profit"
)

// CheckPositionRisk implements §4.7 check_position_risk: side-appropriate
// stop-loss/take-profit breach detection against the current mark price.
func CheckPositionRisk(pos *models.Position, currentPrice decimal.Decimal) PositionRiskAction {
	if pos.StopLoss != nil {
		breached := false
		if pos.Side == models.OrderSideBuy {
			breached = currentPrice.LessThanOrEqual(*pos.StopLoss)
		} else {
			breached = currentPrice.GreaterThanOrEqual(*pos.StopLoss)
		}
		if breached {
			return ActionClosePosition
		}
	}
	if pos.TakeProfit != nil {
		breached := false
		if pos.Side == models.OrderSideBuy {
			breached = currentPrice.GreaterThanOrEqual(*pos.TakeProfit)
		} else {
			breached = currentPrice.LessThanOrEqual(*pos.TakeProfit)
		}
		if breached {
			return ActionTakeProfit
		}
	}
	return ActionNone
}

// CheckPortfolioRisk implements §4.7 check_portfolio_risk: trips the
// account-wide circuit breaker on a catastrophic drawdown or a wiped-out
// account.
func CheckPortfolioRisk(totalValue, totalReturnPct decimal.Decimal, limits Limits) (tripped bool, reason string) {
	if totalValue.LessThanOrEqual(decimal.Zero) {
		return true, "total portfolio value is zero or negative"
	}
	threshold := limits.CircuitBreakerThreshold.Mul(decimal.NewFromInt(100)).Neg()
	if totalReturnPct.LessThanOrEqual(threshold) {
		return true, "total return breached the circuit-breaker drawdown threshold"
	}
	return false, ""
}

// CalculateStopLossTakeProfit implements §4.7 calculate_stop_loss_take_profit:
// symmetric percent formulas with side-flipped direction for shorts.
func CalculateStopLossTakeProfit(entry decimal.Decimal, side models.OrderSide, limits Limits) (stopLoss, takeProfit decimal.Decimal) {
	slPct := normalizePct(limits.DefaultStopLossPct)
	tpPct := normalizePct(limits.DefaultTakeProfitPct)

	if side == models.OrderSideBuy {
		stopLoss = entry.Mul(decimal.NewFromInt(1).Sub(slPct))
		takeProfit = entry.Mul(decimal.NewFromInt(1).Add(tpPct))
	} else {
		stopLoss = entry.Mul(decimal.NewFromInt(1).Add(slPct))
		takeProfit = entry.Mul(decimal.NewFromInt(1).Sub(tpPct))
	}
	return stopLoss, takeProfit
}
