package executor

import "futures_engine/internal/models"

// intendedSide is the order side an entry signal opens with (§4.7).
func intendedSide(signalType models.SignalType) models.OrderSide {
	if signalType == models.SignalOpenShort {
		return models.OrderSideSell
	}
	return models.OrderSideBuy
}

// targetPositionSide is the existing position side an exit signal targets.
func targetPositionSide(signalType models.SignalType) models.OrderSide {
	if signalType == models.SignalCloseShort {
		return models.OrderSideSell
	}
	return models.OrderSideBuy
}

// exitOrderSide is the order side that closes a position of the signal's
// target side: selling closes a long, buying closes a short.
func exitOrderSide(signalType models.SignalType) models.OrderSide {
	if signalType == models.SignalCloseShort {
		return models.OrderSideBuy
	}
	return models.OrderSideSell
}

func oppositeSide(side models.OrderSide) models.OrderSide {
	if side == models.OrderSideBuy {
		return models.OrderSideSell
	}
	return models.OrderSideBuy
}

// inferPositionSide implements §4.4 step 6's hedge-mode rule: positionSide
// is always the position's own direction, inferred from (side, reduceOnly).
// reduceOnly=true: a BUY reduces a SHORT, a SELL reduces a LONG.
// Otherwise: a BUY opens a LONG, a SELL opens a SHORT.
func inferPositionSide(side models.OrderSide, reduceOnly bool) string {
	if reduceOnly {
		if side == models.OrderSideBuy {
			return "SHORT"
		}
		return "LONG"
	}
	if side == models.OrderSideBuy {
		return "LONG"
	}
	return "SHORT"
}
