package trader_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"futures_engine/internal/interfaces"
	"futures_engine/internal/models"
	"futures_engine/internal/trader"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Complete(ctx context.Context, req interfaces.ChatRequest) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Healthy(ctx context.Context) bool { return f.err == nil }

func baseInput() trader.Input {
	return trader.Input{
		Snapshots: map[string]trader.MarketSnapshot{
			"BTC/USDT:USDT": {Symbol: "BTC/USDT:USDT", Price: decimal.NewFromInt(50000)},
			"ETH/USDT:USDT": {Symbol: "ETH/USDT:USDT", Price: decimal.NewFromInt(3000)},
		},
	}
}

func TestGenerate_MapsSymbolsAndDefaultsMissingToNil(t *testing.T) {
	llm := &fakeLLM{response: `[
		{"symbol": "BTC/USDT", "signal_type": "buy", "confidence": 0.7, "suggested_price": 50000, "suggested_amount": 0.1, "leverage": 5, "stop_loss": 48000, "take_profit": 55000, "supporting_factors": ["breakout"], "risk_factors": ["thin liquidity"], "reasoning": "breakout"}
	]`}
	trd := trader.New(llm, "test-model", 0.2, 1500)

	result, err := trd.Generate(context.Background(), baseInput(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected one entry per requested symbol, got %d", len(result))
	}

	btc := result["BTC/USDT:USDT"]
	if btc == nil {
		t.Fatal("expected the base-symbol response to normalize onto the contract symbol")
	}
	if btc.SignalType != models.SignalOpenLong {
		t.Errorf("expected buy to normalize to open_long, got %s", btc.SignalType)
	}
	if btc.SuggestedLeverage == nil || !btc.SuggestedLeverage.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected suggested leverage 5, got %v", btc.SuggestedLeverage)
	}
	if btc.StopLoss == nil || !btc.StopLoss.Equal(decimal.NewFromInt(48000)) {
		t.Errorf("expected stop loss 48000, got %v", btc.StopLoss)
	}
	if btc.TakeProfit == nil || !btc.TakeProfit.Equal(decimal.NewFromInt(55000)) {
		t.Errorf("expected take profit 55000, got %v", btc.TakeProfit)
	}
	if len(btc.SupportingFactors) != 1 || btc.SupportingFactors[0] != "breakout" {
		t.Errorf("expected supporting factors to round-trip, got %v", btc.SupportingFactors)
	}
	if len(btc.RiskFactors) != 1 || btc.RiskFactors[0] != "thin liquidity" {
		t.Errorf("expected risk factors to round-trip, got %v", btc.RiskFactors)
	}
	if btc.Source != "default" {
		t.Errorf("expected the source to default to the trader's strategy name, got %q", btc.Source)
	}

	if result["ETH/USDT:USDT"] != nil {
		t.Error("expected a symbol absent from the LLM's array to map to nil")
	}
}

func TestGenerate_SetStrategyNameOverridesMissingSource(t *testing.T) {
	llm := &fakeLLM{response: `[{"symbol": "BTC/USDT", "signal_type": "buy", "confidence": 0.7, "suggested_amount": 0.1}]`}
	trd := trader.New(llm, "test-model", 0.2, 1500)
	trd.SetStrategyName("momentum_v2")

	result, err := trd.Generate(context.Background(), baseInput(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result["BTC/USDT:USDT"].Source; got != "momentum_v2" {
		t.Errorf("expected source momentum_v2, got %q", got)
	}
}

func TestGenerate_ExplicitSourceIsNotOverridden(t *testing.T) {
	llm := &fakeLLM{response: `[{"symbol": "BTC/USDT", "signal_type": "buy", "confidence": 0.7, "suggested_amount": 0.1, "source": "mean_reversion"}]`}
	trd := trader.New(llm, "test-model", 0.2, 1500)
	trd.SetStrategyName("momentum_v2")

	result, err := trd.Generate(context.Background(), baseInput(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result["BTC/USDT:USDT"].Source; got != "mean_reversion" {
		t.Errorf("expected explicit source to win, got %q", got)
	}
}

func TestGenerate_UnrecoverableArrayReturnsError(t *testing.T) {
	llm := &fakeLLM{response: "no json here at all"}
	trd := trader.New(llm, "test-model", 0.2, 1500)

	_, err := trd.Generate(context.Background(), baseInput(), nil)
	if err == nil {
		t.Fatal("expected an error when no JSON array is recoverable")
	}
}

func TestGenerate_UnknownSymbolIsDropped(t *testing.T) {
	llm := &fakeLLM{response: `[{"symbol": "DOGE/USDT", "signal_type": "buy", "confidence": 0.5, "suggested_amount": 1}]`}
	trd := trader.New(llm, "test-model", 0.2, 1500)

	result, err := trd.Generate(context.Background(), baseInput(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for symbol, sig := range result {
		if sig != nil {
			t.Errorf("expected no signal to survive for an unrequested symbol, got one for %s", symbol)
		}
	}
}

func TestGenerate_ExplicitHoldHasZeroConfidence(t *testing.T) {
	llm := &fakeLLM{response: `[{"symbol": "ETH/USDT", "signal_type": "hold", "confidence": 0}]`}
	trd := trader.New(llm, "test-model", 0.2, 1500)

	result, err := trd.Generate(context.Background(), baseInput(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eth := result["ETH/USDT:USDT"]
	if eth == nil || eth.SignalType != models.SignalHold {
		t.Fatalf("expected an explicit hold signal, got %+v", eth)
	}
	if eth.Confidence != 0 {
		t.Errorf("expected an explicit hold to carry confidence 0, got %v", eth.Confidence)
	}
}
