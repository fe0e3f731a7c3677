package marketdata

import (
	"github.com/shopspring/decimal"

	"futures_engine/internal/models"
	"futures_engine/internal/strategist"
	"futures_engine/internal/trader"
)

const (
	rsiPeriod    = 14
	macdFast     = 12
	macdSlow     = 26
	macdSignal   = 9
	maFastPeriod = 20
	maSlowPeriod = 50
	atrPeriod    = 14
	adxPeriod    = 14
	bollingerDev = 2.0
)

func toCandles(klines []models.Kline) []candle {
	out := make([]candle, len(klines))
	for i, k := range klines {
		out[i] = candle{High: toFloat(k.High), Low: toFloat(k.Low), Close: toFloat(k.Close)}
	}
	return out
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// BuildMarketSnapshot computes the Trader's tactical indicator set from a
// single timeframe's kline window (§4.8).
func BuildMarketSnapshot(symbol string, price decimal.Decimal, klines []models.Kline) trader.MarketSnapshot {
	candles := toCandles(klines)
	values := closes(candles)

	macdVal, _, macdHist := macd(values, macdFast, macdSlow, macdSignal)
	upper, _, lower := bollinger(values, maFastPeriod, bollingerDev)
	adxVal, plusDI, minusDI := adx(candles, adxPeriod)

	return trader.MarketSnapshot{
		Symbol:    symbol,
		Price:     price,
		RSI:       rsi(values, rsiPeriod),
		MACD:      macdVal,
		MACDHist:  macdHist,
		FastMA:    sma(values, maFastPeriod),
		SlowMA:    sma(values, maSlowPeriod),
		BollUpper: upper,
		BollLower: lower,
		ATR:       atr(candles, atrPeriod),
		ADX:       adxVal,
		PlusDI:    plusDI,
		MinusDI:   minusDI,
	}
}

// BuildSymbolSnapshot computes the Strategist's multi-timeframe digest
// (§4.8): closing prices off three timeframes plus 1h-window indicators.
func BuildSymbolSnapshot(symbol string, k1h, k4h, k1d []models.Kline) strategist.SymbolSnapshot {
	candles1h := toCandles(k1h)
	values1h := closes(candles1h)

	ma20 := sma(values1h, maFastPeriod)
	ma50 := sma(values1h, maSlowPeriod)
	atr14 := atr(candles1h, atrPeriod)
	adx14, _, _ := adx(candles1h, adxPeriod)

	snap := strategist.SymbolSnapshot{
		Symbol:     symbol,
		Close1h:    lastClose(k1h),
		Close4h:    lastClose(k4h),
		Close1d:    lastClose(k1d),
		RSI14:      rsi(values1h, rsiPeriod),
		MA20:       ma20,
		MA50:       ma50,
		ATR14:      atr14,
		ADX14:      adx14,
		TrendLabel: trendLabel(ma20, ma50),
	}
	if lastClose(k1h) > 0 {
		snap.VolatilityBand = volatilityBand(atr14 / lastClose(k1h))
	}
	return snap
}

func lastClose(klines []models.Kline) float64 {
	if len(klines) == 0 {
		return 0
	}
	return toFloat(klines[len(klines)-1].Close)
}

func trendLabel(ma20, ma50 float64) string {
	switch {
	case ma20 > ma50*1.002:
		return "uptrend"
	case ma20 < ma50*0.998:
		return "downtrend"
	default:
		return "sideways"
	}
}

func volatilityBand(atrOverPrice float64) string {
	switch {
	case atrOverPrice >= 0.04:
		return "high"
	case atrOverPrice >= 0.015:
		return "medium"
	default:
		return "low"
	}
}
