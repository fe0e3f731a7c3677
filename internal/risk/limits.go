// Package risk implements the pure risk-check functions the Executor calls
// before any order reaches the exchange (§4.7 Risk Manager). Every function
// here is side-effect free: callers pass in the state they already hold
// and get back a decision, never an I/O call.
package risk

import "github.com/shopspring/decimal"

// Limits mirrors the configured risk limits every check is evaluated
// against (§4.7, §3 AccountSettings).
type Limits struct {
	MaxLeverageMainstream decimal.Decimal
	MaxLeverageAltcoin    decimal.Decimal
	HighLeverageWarning   decimal.Decimal
	MaxPositionSize       decimal.Decimal // fraction of total_value, e.g. 0.1
	MaxDailyLoss          decimal.Decimal // fraction of total_value, e.g. 0.05
	DefaultStopLossPct    decimal.Decimal
	DefaultTakeProfitPct  decimal.Decimal
	CircuitBreakerThreshold decimal.Decimal // fraction, e.g. 0.2 for -20%
}

// DefaultLimits mirrors the spec's stated defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxLeverageMainstream:   decimal.NewFromInt(50),
		MaxLeverageAltcoin:      decimal.NewFromInt(20),
		HighLeverageWarning:     decimal.NewFromInt(25),
		MaxPositionSize:         decimal.NewFromFloat(0.1),
		MaxDailyLoss:            decimal.NewFromFloat(0.05),
		DefaultStopLossPct:      decimal.NewFromFloat(0.02),
		DefaultTakeProfitPct:    decimal.NewFromFloat(0.04),
		CircuitBreakerThreshold: decimal.NewFromFloat(0.2),
	}
}

// normalizePct converts a value expressed as a whole percent (e.g. 2 for
// 2%) into a fraction (0.02); values already ≤ 1 pass through unchanged
// (§4.7 calculate_stop_loss_take_profit).
func normalizePct(v decimal.Decimal) decimal.Decimal {
	if v.GreaterThan(decimal.NewFromInt(1)) {
		return v.Div(decimal.NewFromInt(100))
	}
	return v
}
