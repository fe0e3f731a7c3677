// Package coordinator runs the two interleaved periodic jobs — Strategist
// and Trader — that share one in-memory current-regime cell and its
// validity clock (§4.1).
package coordinator

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"futures_engine/internal/interfaces/repository"
	"futures_engine/internal/models"
	"futures_engine/internal/strategist"
	"futures_engine/internal/trader"
	"futures_engine/internal/websocket"
)

const (
	DefaultTraderInterval     = 180 * time.Second
	DefaultStrategistTimeout  = 120 * time.Second
	DefaultEnrichmentSubCap   = 15 * time.Second
)

// RegimeState is the explicit ∅→Valid→Stale→Valid/Default machine
// described in §4.1.
type RegimeState int

const (
	RegimeEmpty RegimeState = iota
	RegimeValidState
	RegimeStaleState
)

// Coordinator holds the shared current_regime cell and drives both cycles.
type Coordinator struct {
	strategist *strategist.Strategist
	trader     *trader.Trader

	regimeRepo   repository.MarketRegimeRepository
	decisionRepo repository.DecisionRecordRepository

	mu               sync.RWMutex
	currentRegime    *models.MarketRegime
	lastStrategistRun time.Time

	traderInterval     time.Duration
	strategistInterval time.Duration
	tickCount          int
}

func New(strat *strategist.Strategist, trd *trader.Trader, regimeRepo repository.MarketRegimeRepository, decisionRepo repository.DecisionRecordRepository, traderInterval, strategistInterval time.Duration) *Coordinator {
	return &Coordinator{
		strategist:         strat,
		trader:             trd,
		regimeRepo:         regimeRepo,
		decisionRepo:       decisionRepo,
		traderInterval:     traderInterval,
		strategistInterval: strategistInterval,
	}
}

// ShouldRunStrategistThisTick implements the scheduling contract: the
// first tick after startup always runs Strategist (bootstrap); thereafter
// every floor(T_strat/T_tact) tactical ticks a strategist cycle runs first.
func (c *Coordinator) ShouldRunStrategistThisTick() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.currentRegime == nil {
		return true
	}
	period := int(c.strategistInterval / c.traderInterval)
	if period <= 0 {
		period = 1
	}
	return c.tickCount%period == 0
}

func (c *Coordinator) regimeState(now time.Time) RegimeState {
	if c.currentRegime == nil {
		return RegimeEmpty
	}
	if c.currentRegime.IsValidAt(now) {
		return RegimeValidState
	}
	return RegimeStaleState
}

// RunStrategistCycle implements §4.1's run_strategist_cycle. On failure it
// returns the cached regime if still valid, else synthesizes the default
// conservative regime — and persists whichever regime it ends up with.
func (c *Coordinator) RunStrategistCycle(ctx context.Context, env strategist.MarketEnvironment) *models.MarketRegime {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, DefaultStrategistTimeout)
	defer cancel()

	now := time.Now()
	regime, err := c.strategist.Generate(ctx, env, now)

	c.mu.Lock()
	defer c.mu.Unlock()

	outcome := "ok"
	var errMsg string
	if err != nil {
		log.Printf("coordinator: strategist cycle failed: %v", err)
		outcome = "failed"
		errMsg = err.Error()
		if c.currentRegime != nil && c.currentRegime.IsValidAt(now) {
			regime = c.currentRegime
		} else {
			regime = defaultConservativeRegime(now)
		}
	}

	c.currentRegime = regime
	c.lastStrategistRun = now
	websocket.BroadcastRegime(string(regime.Label), regime.Confidence, string(regime.RiskPosture))

	if c.regimeRepo != nil {
		if err := c.regimeRepo.Create(ctx, regime); err != nil {
			log.Printf("coordinator: failed to persist regime: %v", err)
		}
	}
	if c.decisionRepo != nil {
		rec := &models.DecisionRecord{
			Kind:    models.DecisionStrategist,
			Outcome: outcome,
			Error:   errMsg,
			Latency: time.Since(start).Milliseconds(),
			InputContext: strategistInputContext(env),
		}
		if regime.ID != 0 {
			rec.RegimeID = &regime.ID
		}
		if err := c.decisionRepo.Create(ctx, rec); err != nil {
			log.Printf("coordinator: failed to persist decision record: %v", err)
		}
	}

	return regime
}

// defaultConservativeRegime is the fallback synthesized when there is no
// cached regime to fall back to (§4.1).
func defaultConservativeRegime(now time.Time) *models.MarketRegime {
	return &models.MarketRegime{
		Label:                  models.RegimeRanging,
		Bias:                   "neutral",
		MarketStructure:        "ranging",
		Confidence:             0.3,
		RiskLevel:              models.RiskLevelHigh,
		RiskPosture:            models.RiskPostureDefensive,
		PositionSizeMultiplier: 0.5,
		PreferredDirection:     "neutral",
		CashRatio:              0.7,
		Recommended:            models.StringList{"BTC", "ETH"},
		KeyDrivers:             models.StringList{"strategist failure: conservative fallback engaged"},
		MarketNarrative:        "strategist cycle failed and no valid cached regime was available",
		Rationale:              "strategist cycle failed and no valid cached regime was available",
		TimeHorizonMinutes:     60,
		GeneratedAt:            now,
		ValidUntil:             now.Add(time.Hour),
	}
}

// RunTraderCycle implements §4.1's run_trader_cycle: filters snapshots by
// matches_recommendation against the current regime, runs the Trader on
// the filtered set, and persists a DecisionRecord per non-nil signal.
func (c *Coordinator) RunTraderCycle(ctx context.Context, in trader.Input) map[string]*models.TradingSignal {
	c.mu.RLock()
	regime := c.currentRegime
	c.mu.RUnlock()

	c.mu.Lock()
	c.tickCount++
	c.mu.Unlock()

	if regime == nil {
		return map[string]*models.TradingSignal{}
	}

	now := time.Now()
	if !regime.IsValidAt(now) {
		log.Printf("coordinator: regime is stale (generated_at=%s), trader proceeding with reduced confidence", regime.GeneratedAt)
	}

	filtered := make(map[string]trader.MarketSnapshot, len(in.Snapshots))
	for symbol, snap := range in.Snapshots {
		if matchesRecommendation(symbol, regime.BlacklistSymbols) {
			continue
		}
		if matchesRecommendation(symbol, regime.Recommended) || len(regime.Recommended) == 0 {
			filtered[symbol] = snap
		}
	}
	in.Snapshots = filtered

	signals, err := c.trader.Generate(ctx, in, nil)
	if err != nil {
		log.Printf("coordinator: trader cycle failed: %v", err)
		return map[string]*models.TradingSignal{}
	}

	for symbol, sig := range signals {
		if sig != nil {
			websocket.BroadcastSignal(symbol, string(sig.SignalType), sig.Confidence)
		}
	}

	if c.decisionRepo != nil {
		for symbol, sig := range signals {
			if sig == nil {
				continue
			}
			rec := &models.DecisionRecord{
				Kind:         models.DecisionTrader,
				Symbol:       symbol,
				Outcome:      "ok",
				InputContext: traderInputContext(regime, in, symbol),
			}
			if regime.ID != 0 {
				rec.RegimeID = &regime.ID
			}
			if err := c.decisionRepo.Create(ctx, rec); err != nil {
				log.Printf("coordinator: failed to persist trader decision: %v", err)
			}
		}
	}

	return signals
}

// strategistInputContext captures the enriched snapshot a strategist cycle
// decided against, for audit replay (§4.1).
func strategistInputContext(env strategist.MarketEnvironment) models.JSONB {
	symbols := make([]string, 0, len(env.Snapshots))
	for _, s := range env.Snapshots {
		symbols = append(symbols, s.Symbol)
	}
	return models.JSONB{
		"macro":                env.Macro,
		"equities":             env.Equities,
		"sentiment":            env.Sentiment,
		"crypto_overview":      env.CryptoOverview,
		"data_completeness_pct": env.DataCompletenessPct,
		"snapshot_symbols":     symbols,
	}
}

// traderInputContext captures the regime summary, the symbol's market
// snapshot, portfolio totals, and the existing position (if any) behind one
// tactical decision (§4.1, §4.3).
func traderInputContext(regime *models.MarketRegime, in trader.Input, symbol string) models.JSONB {
	ctxMap := models.JSONB{
		"regime": models.JSONB{
			"label":        regime.Label,
			"risk_posture": regime.RiskPosture,
			"risk_level":   regime.RiskLevel,
			"generated_at": regime.GeneratedAt,
			"valid_until":  regime.ValidUntil,
		},
		"account": models.JSONB{
			"wallet_balance":    in.Account.WalletBalance,
			"available_balance": in.Account.AvailableBalance,
			"margin_balance":    in.Account.MarginBalance,
			"daily_pnl":         in.Account.DailyPnl,
		},
	}
	if snap, ok := in.Snapshots[symbol]; ok {
		ctxMap["market_snapshot"] = models.JSONB{
			"price": snap.Price,
			"rsi":   snap.RSI,
			"macd":  snap.MACD,
			"adx":   snap.ADX,
		}
	}
	if pos, ok := in.Positions[symbol]; ok && pos != nil {
		ctxMap["existing_position"] = models.JSONB{
			"side":              pos.Side,
			"amount":            pos.Amount,
			"entry_price":       pos.EntryPrice,
			"unrealized_pnl":    pos.UnrealizedPnl,
		}
	}
	return ctxMap
}

// matchesRecommendation reports whether symbol's base asset, base/quote
// pair, or full contract form equals any recommended entry (§4.1).
func matchesRecommendation(symbol string, recommended []string) bool {
	base := strings.SplitN(symbol, "/", 2)[0]
	pair := strings.SplitN(symbol, ":", 2)[0]
	for _, r := range recommended {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r == symbol || r == base || r == pair {
			return true
		}
	}
	return false
}

func (c *Coordinator) CurrentRegime() *models.MarketRegime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentRegime
}
