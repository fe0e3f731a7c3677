package marketdata

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	if got := sma(values, 3); !approxEqual(got, 4, 1e-9) {
		t.Errorf("sma(last 3 of 1..5) = %v, want 4", got)
	}
	if got := sma(values, 10); got != 0 {
		t.Errorf("expected 0 when period exceeds the series length, got %v", got)
	}
}

func TestRSI_AllGainsIsOneHundred(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(100 + i)
	}
	got := rsi(values, 14)
	if !approxEqual(got, 100, 1e-6) {
		t.Errorf("expected RSI=100 on a monotonically rising series, got %v", got)
	}
}

func TestRSI_AllLossesIsZero(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(200 - i)
	}
	got := rsi(values, 14)
	if !approxEqual(got, 0, 1e-6) {
		t.Errorf("expected RSI=0 on a monotonically falling series, got %v", got)
	}
}

func TestRSI_TooShortSeriesReturnsZero(t *testing.T) {
	if got := rsi([]float64{1, 2, 3}, 14); got != 0 {
		t.Errorf("expected 0 for an under-length series, got %v", got)
	}
}

func TestBollinger_FlatSeriesHasZeroWidth(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100
	}
	upper, middle, lower := bollinger(values, 20, 2)
	if middle != 100 || upper != 100 || lower != 100 {
		t.Errorf("expected flat bands at 100, got upper=%v middle=%v lower=%v", upper, middle, lower)
	}
}

func TestMACD_TooShortSeriesReturnsZeroes(t *testing.T) {
	m, s, h := macd([]float64{1, 2, 3}, 12, 26, 9)
	if m != 0 || s != 0 || h != 0 {
		t.Errorf("expected all-zero MACD for an under-length series, got (%v, %v, %v)", m, s, h)
	}
}

func TestATR_ConstantRangeConverges(t *testing.T) {
	candles := make([]candle, 30)
	for i := range candles {
		candles[i] = candle{High: 110, Low: 90, Close: 100}
	}
	got := atr(candles, 14)
	if !approxEqual(got, 20, 1e-6) {
		t.Errorf("expected ATR to converge to the constant true range of 20, got %v", got)
	}
}

func TestADX_TooShortSeriesReturnsZero(t *testing.T) {
	candles := make([]candle, 10)
	adxValue, plusDI, minusDI := adx(candles, 14)
	if adxValue != 0 || plusDI != 0 || minusDI != 0 {
		t.Errorf("expected zero ADX/DI for an under-length series, got (%v, %v, %v)", adxValue, plusDI, minusDI)
	}
}

func TestADX_StrongUptrendFavorsPlusDI(t *testing.T) {
	candles := make([]candle, 40)
	for i := range candles {
		base := float64(100 + i*2)
		candles[i] = candle{High: base + 1, Low: base - 1, Close: base}
	}
	_, plusDI, minusDI := adx(candles, 14)
	if plusDI <= minusDI {
		t.Errorf("expected +DI to dominate -DI in a steady uptrend, got +DI=%v -DI=%v", plusDI, minusDI)
	}
}
