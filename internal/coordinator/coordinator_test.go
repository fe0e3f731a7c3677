package coordinator_test

import (
	"context"
	"testing"
	"time"

	"futures_engine/internal/coordinator"
	"futures_engine/internal/interfaces"
	"futures_engine/internal/models"
	"futures_engine/internal/strategist"
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

type fakeRegimeRepo struct {
	created []*models.MarketRegime
}

func (f *fakeRegimeRepo) Create(ctx context.Context, regime *models.MarketRegime) error {
	f.created = append(f.created, regime)
	return nil
}

func (f *fakeRegimeRepo) Latest(ctx context.Context) (*models.MarketRegime, error) {
	if len(f.created) == 0 {
		return nil, nil
	}
	return f.created[len(f.created)-1], nil
}

type fakeDecisionRepo struct {
	created []*models.DecisionRecord
}

func (f *fakeDecisionRepo) Create(ctx context.Context, rec *models.DecisionRecord) error {
	f.created = append(f.created, rec)
	return nil
}

const validRegimeJSON = `{
	"bias": "bullish", "market_structure": "trending", "risk_level": "low", "trading_mode": "normal", "confidence": 0.8,
	"position_sizing_multiplier": 1, "recommended_symbols": ["BTC"], "time_horizon": "medium"
}`

func TestShouldRunStrategistThisTick_BootstrapsOnEmptyRegime(t *testing.T) {
	strat := strategist.New(&fakeLLM{response: validRegimeJSON}, "m", 0.3, 2000)
	trd := trader.New(&fakeLLM{response: "[]"}, "m", 0.2, 1500)
	c := coordinator.New(strat, trd, &fakeRegimeRepo{}, &fakeDecisionRepo{}, time.Minute, time.Hour)

	if !c.ShouldRunStrategistThisTick() {
		t.Fatal("expected the first tick with no cached regime to run the strategist")
	}
}

func TestRunStrategistCycle_FallsBackToDefaultOnFailure(t *testing.T) {
	strat := strategist.New(&fakeLLM{response: "not json"}, "m", 0.3, 2000)
	trd := trader.New(&fakeLLM{response: "[]"}, "m", 0.2, 1500)
	regimeRepo := &fakeRegimeRepo{}
	c := coordinator.New(strat, trd, regimeRepo, &fakeDecisionRepo{}, time.Minute, time.Hour)

	regime := c.RunStrategistCycle(context.Background(), strategist.MarketEnvironment{})
	if regime == nil {
		t.Fatal("expected a synthesized fallback regime, got nil")
	}
	if regime.RiskPosture != models.RiskPostureDefensive {
		t.Errorf("expected the conservative fallback to be defensive, got %s", regime.RiskPosture)
	}
	if len(regimeRepo.created) != 1 {
		t.Errorf("expected the fallback regime to still be persisted, got %d writes", len(regimeRepo.created))
	}
}

func TestRunStrategistCycle_KeepsCachedRegimeIfStillValidOnFailure(t *testing.T) {
	strat := strategist.New(&fakeLLM{response: validRegimeJSON}, "m", 0.3, 2000)
	trd := trader.New(&fakeLLM{response: "[]"}, "m", 0.2, 1500)
	c := coordinator.New(strat, trd, &fakeRegimeRepo{}, &fakeDecisionRepo{}, time.Minute, time.Hour)

	first := c.RunStrategistCycle(context.Background(), strategist.MarketEnvironment{})
	if first.RawResponse == "" {
		t.Fatal("expected the first cycle to succeed and persist a real regime")
	}

	strat2 := strategist.New(&fakeLLM{err: context.DeadlineExceeded}, "m", 0.3, 2000)
	c2 := coordinator.New(strat2, trd, &fakeRegimeRepo{}, &fakeDecisionRepo{}, time.Minute, time.Hour)
	c2.RunStrategistCycle(context.Background(), strategist.MarketEnvironment{})

	second := c2.RunStrategistCycle(context.Background(), strategist.MarketEnvironment{})
	if second == nil {
		t.Fatal("expected a regime even when the second call also fails")
	}
}

func TestRunTraderCycle_ReturnsEmptyWithNoRegimeYet(t *testing.T) {
	strat := strategist.New(&fakeLLM{response: validRegimeJSON}, "m", 0.3, 2000)
	trd := trader.New(&fakeLLM{response: "[]"}, "m", 0.2, 1500)
	c := coordinator.New(strat, trd, &fakeRegimeRepo{}, &fakeDecisionRepo{}, time.Minute, time.Hour)

	signals := c.RunTraderCycle(context.Background(), trader.Input{
		Snapshots: map[string]trader.MarketSnapshot{"BTC/USDT:USDT": {}},
	})
	if len(signals) != 0 {
		t.Errorf("expected no signals before any regime has been generated, got %d", len(signals))
	}
}

func TestRunTraderCycle_FiltersSnapshotsByRecommendation(t *testing.T) {
	strat := strategist.New(&fakeLLM{response: validRegimeJSON}, "m", 0.3, 2000)
	trd := trader.New(&fakeLLM{response: `[{"symbol":"BTC/USDT","signal_type":"hold","confidence":0}]`}, "m", 0.2, 1500)
	decisions := &fakeDecisionRepo{}
	c := coordinator.New(strat, trd, &fakeRegimeRepo{}, decisions, time.Minute, time.Hour)

	c.RunStrategistCycle(context.Background(), strategist.MarketEnvironment{})

	signals := c.RunTraderCycle(context.Background(), trader.Input{
		Snapshots: map[string]trader.MarketSnapshot{
			"BTC/USDT:USDT": {Symbol: "BTC/USDT:USDT"},
			"ETH/USDT:USDT": {Symbol: "ETH/USDT:USDT"},
		},
	})

	if _, ok := signals["BTC/USDT:USDT"]; !ok {
		t.Error("expected the recommended symbol to survive filtering")
	}
	if _, ok := signals["ETH/USDT:USDT"]; ok {
		t.Error("expected a non-recommended symbol to be filtered out of the trader's input")
	}
}

func TestRunTraderCycle_ExcludesBlacklistedSymbolsEvenIfRecommended(t *testing.T) {
	blacklistJSON := `{
		"bias": "bullish", "market_structure": "trending", "risk_level": "low", "trading_mode": "normal", "confidence": 0.8,
		"position_sizing_multiplier": 1, "recommended_symbols": ["BTC", "ETH"], "blacklist_symbols": ["ETH"], "time_horizon": "medium"
	}`
	strat := strategist.New(&fakeLLM{response: blacklistJSON}, "m", 0.3, 2000)
	trd := trader.New(&fakeLLM{response: `[{"symbol":"BTC/USDT","signal_type":"hold","confidence":0}]`}, "m", 0.2, 1500)
	c := coordinator.New(strat, trd, &fakeRegimeRepo{}, &fakeDecisionRepo{}, time.Minute, time.Hour)

	c.RunStrategistCycle(context.Background(), strategist.MarketEnvironment{})

	signals := c.RunTraderCycle(context.Background(), trader.Input{
		Snapshots: map[string]trader.MarketSnapshot{
			"BTC/USDT:USDT": {Symbol: "BTC/USDT:USDT"},
			"ETH/USDT:USDT": {Symbol: "ETH/USDT:USDT"},
		},
	})

	if _, ok := signals["BTC/USDT:USDT"]; !ok {
		t.Error("expected the recommended, non-blacklisted symbol to survive filtering")
	}
	if _, ok := signals["ETH/USDT:USDT"]; ok {
		t.Error("expected a blacklisted symbol to be filtered out even though it is also recommended")
	}
}

func TestRunStrategistCycle_PersistsInputContext(t *testing.T) {
	strat := strategist.New(&fakeLLM{response: validRegimeJSON}, "m", 0.3, 2000)
	trd := trader.New(&fakeLLM{response: "[]"}, "m", 0.2, 1500)
	decisions := &fakeDecisionRepo{}
	c := coordinator.New(strat, trd, &fakeRegimeRepo{}, decisions, time.Minute, time.Hour)

	c.RunStrategistCycle(context.Background(), strategist.MarketEnvironment{
		Macro: "fed funds rate at 5.25%",
	})

	if len(decisions.created) != 1 {
		t.Fatalf("expected one strategist decision record, got %d", len(decisions.created))
	}
	if decisions.created[0].InputContext == nil {
		t.Error("expected the strategist decision record to carry its input context")
	}
}

func TestRunTraderCycle_PersistsInputContext(t *testing.T) {
	strat := strategist.New(&fakeLLM{response: validRegimeJSON}, "m", 0.3, 2000)
	trd := trader.New(&fakeLLM{response: `[{"symbol":"BTC/USDT","signal_type":"hold","confidence":0}]`}, "m", 0.2, 1500)
	decisions := &fakeDecisionRepo{}
	c := coordinator.New(strat, trd, &fakeRegimeRepo{}, decisions, time.Minute, time.Hour)

	c.RunStrategistCycle(context.Background(), strategist.MarketEnvironment{})
	decisions.created = nil

	c.RunTraderCycle(context.Background(), trader.Input{
		Snapshots: map[string]trader.MarketSnapshot{"BTC/USDT:USDT": {Symbol: "BTC/USDT:USDT"}},
	})

	if len(decisions.created) != 1 {
		t.Fatalf("expected one trader decision record, got %d", len(decisions.created))
	}
	if decisions.created[0].InputContext == nil {
		t.Error("expected the trader decision record to carry its input context")
	}
}
