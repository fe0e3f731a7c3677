// Package marketdata implements the SPEC_FULL §4.8 market-data poller and
// indicator cache: periodic fetch_ohlcv polling, Kline persistence, and an
// in-process technical-indicator cache the Strategist and Trader read
// synchronously.
package marketdata

import "math"

// The indicator math below is adapted from the teacher's float64-based
// calculateRSI/calculateMACD/calculateEMAFloat (day_trading.go) and
// calculateBollingerBands (breakout.go), generalized from the teacher's
// close-price-only mocks to real Wilder-smoothed ATR/ADX now that klines
// carry genuine high/low data.

func closes(klines []candle) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}

// candle is the float64 OHLC view indicator math operates on; built from
// models.Kline at the cache boundary.
type candle struct {
	High, Low, Close float64
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sma is the simple moving average of the last `period` values.
func sma(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}
	return average(values[len(values)-period:])
}

// ema returns the EMA series seeded by an SMA over the first `period`
// values (teacher's calculateEMAFloat).
func ema(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}
	multiplier := 2.0 / (float64(period) + 1.0)
	result := make([]float64, 0, len(values)-period+1)
	result = append(result, average(values[:period]))
	for i := period; i < len(values); i++ {
		next := (values[i] * multiplier) + (result[len(result)-1] * (1 - multiplier))
		result = append(result, next)
	}
	return result
}

func lastOrZero(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// rsi computes the latest RSI(period) using Wilder's smoothing (teacher's
// calculateRSI, trimmed to the final value).
func rsi(values []float64, period int) float64 {
	if len(values) < period+1 {
		return 0
	}
	gains := make([]float64, 0, len(values)-1)
	losses := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	avgGain := average(gains[:period])
	avgLoss := average(losses[:period])

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*(float64(period)-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*(float64(period)-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// macd returns the latest (macd, signal, histogram), per teacher's
// calculateMACD (fast/slow/signal EMAs of closes).
func macd(values []float64, fast, slow, signal int) (macdLine, signalLine, histogram float64) {
	if len(values) < slow+signal {
		return 0, 0, 0
	}
	fastEMA := ema(values, fast)
	slowEMA := ema(values, slow)

	offset := len(fastEMA) - len(slowEMA)
	if offset < 0 {
		offset = 0
	}
	n := len(slowEMA)
	macdSeries := make([]float64, n)
	for i := 0; i < n; i++ {
		macdSeries[i] = fastEMA[i+offset] - slowEMA[i]
	}
	signalSeries := ema(macdSeries, signal)
	if len(signalSeries) == 0 {
		return lastOrZero(macdSeries), 0, 0
	}
	m := lastOrZero(macdSeries)
	sig := lastOrZero(signalSeries)
	return m, sig, m - sig
}

// bollinger returns the latest (upper, middle, lower) bands, per teacher's
// calculateBollingerBands.
func bollinger(values []float64, period int, numStdDev float64) (upper, middle, lower float64) {
	if len(values) < period {
		return 0, 0, 0
	}
	window := values[len(values)-period:]
	mid := average(window)

	var sumSquares float64
	for _, v := range window {
		sumSquares += (v - mid) * (v - mid)
	}
	std := math.Sqrt(sumSquares / float64(len(window)))
	return mid + numStdDev*std, mid, mid - numStdDev*std
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(c, prev candle) float64 {
	hl := c.High - c.Low
	hc := math.Abs(c.High - prev.Close)
	lc := math.Abs(c.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// atr computes Wilder-smoothed Average True Range over `period`.
func atr(candles []candle, period int) float64 {
	if len(candles) < period+1 {
		return 0
	}
	var avg float64
	for i := 1; i <= period; i++ {
		avg += trueRange(candles[i], candles[i-1])
	}
	avg /= float64(period)
	for i := period + 1; i < len(candles); i++ {
		tr := trueRange(candles[i], candles[i-1])
		avg = (avg*(float64(period)-1) + tr) / float64(period)
	}
	return avg
}

// adx computes Wilder's ADX/+DI/-DI over `period` from directional movement.
func adx(candles []candle, period int) (adxValue, plusDI, minusDI float64) {
	if len(candles) < period*2 {
		return 0, 0, 0
	}

	trs := make([]float64, 0, len(candles)-1)
	plusDMs := make([]float64, 0, len(candles)-1)
	minusDMs := make([]float64, 0, len(candles)-1)

	for i := 1; i < len(candles); i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		plusDM, minusDM := 0.0, 0.0
		if up > down && up > 0 {
			plusDM = up
		}
		if down > up && down > 0 {
			minusDM = down
		}
		trs = append(trs, trueRange(candles[i], candles[i-1]))
		plusDMs = append(plusDMs, plusDM)
		minusDMs = append(minusDMs, minusDM)
	}

	smoothedTR := wilderSmooth(trs, period)
	smoothedPlusDM := wilderSmooth(plusDMs, period)
	smoothedMinusDM := wilderSmooth(minusDMs, period)

	dxSeries := make([]float64, 0, len(smoothedTR))
	for i := range smoothedTR {
		if smoothedTR[i] == 0 {
			dxSeries = append(dxSeries, 0)
			continue
		}
		pDI := 100 * smoothedPlusDM[i] / smoothedTR[i]
		mDI := 100 * smoothedMinusDM[i] / smoothedTR[i]
		sum := pDI + mDI
		if sum == 0 {
			dxSeries = append(dxSeries, 0)
			continue
		}
		dxSeries = append(dxSeries, 100*math.Abs(pDI-mDI)/sum)
		plusDI, minusDI = pDI, mDI
	}

	adxSeries := wilderSmooth(dxSeries, period)
	return lastOrZero(adxSeries), plusDI, minusDI
}

// wilderSmooth applies Wilder's running-sum smoothing: the first value is a
// plain sum over `period`, subsequent values decay the prior sum by 1/period.
func wilderSmooth(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	var seed float64
	for _, v := range values[:period] {
		seed += v
	}
	result := make([]float64, 0, len(values)-period+1)
	result = append(result, seed)
	for i := period; i < len(values); i++ {
		seed = seed - (seed / float64(period)) + values[i]
		result = append(result, seed)
	}
	return result
}
