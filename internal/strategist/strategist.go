package strategist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"futures_engine/internal/interfaces"
	"futures_engine/internal/models"
)

// MarketEnvironment is the heterogeneous input blob the hourly cycle
// digests into a regime (§4.2): macro, equities, sentiment, recent news,
// crypto overview, and the completeness of that data, plus prior
// multi-timeframe snapshots computed from cached klines.
type MarketEnvironment struct {
	Macro               string
	Equities            string
	Sentiment           string
	RecentNews          []string
	CryptoOverview      string
	DataCompletenessPct float64
	Snapshots           []SymbolSnapshot
}

// SymbolSnapshot is a multi-timeframe digest for one symbol (BTC/ETH),
// computed internally from cached klines before being handed to the LLM.
type SymbolSnapshot struct {
	Symbol         string
	Close1h        float64
	Close4h        float64
	Close1d        float64
	RSI14          float64
	MA20           float64
	MA50           float64
	ATR14          float64
	ADX14          float64
	TrendLabel     string // from MA20 vs MA50 ordering
	VolatilityBand string // from ATR/price
}

// Strategist turns a MarketEnvironment into a MarketRegime via one LLM call.
type Strategist struct {
	llm         interfaces.LLMClient
	model       string
	temperature float64
	maxTokens   int
}

func New(llm interfaces.LLMClient, model string, temperature float64, maxTokens int) *Strategist {
	return &Strategist{llm: llm, model: model, temperature: temperature, maxTokens: maxTokens}
}

// Generate runs one strategist cycle against env and returns a persisted-
// ready MarketRegime. Tool use is disabled — the prompt carries everything
// needed (§4.2).
func (s *Strategist) Generate(ctx context.Context, env MarketEnvironment, now time.Time) (*models.MarketRegime, error) {
	prompt := buildPrompt(env)

	raw, err := s.llm.Complete(ctx, interfaces.ChatRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Temperature:  s.temperature,
		MaxTokens:    s.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("strategist: llm call failed: %w", err)
	}

	parsed, err := parseRegimePayload(raw)
	if err != nil {
		return nil, err
	}

	return toRegime(parsed, raw, now), nil
}

const systemPrompt = `You are the strategic layer of an autonomous crypto futures trading system.
Analyze the provided macro, sentiment, and crypto market data and return ONLY a JSON object
describing the current market regime: bias (bullish/bearish/neutral), market_structure
(trending/ranging/extreme), risk_level (low/medium/high/extreme), market_narrative (a short
free-text summary of the conditions driving the call), confidence (0-1), position_sizing_multiplier,
cash_ratio, max_exposure (0-1, optional cap on total deployed capital), trading_mode
(aggressive/normal/conservative/defensive), recommended_symbols (array of symbols or base assets),
blacklist_symbols (array of symbols to avoid entirely this cycle), key_drivers (array of short
strings), volatility_range (optional free-text expected range), reasoning (string), and
time_horizon (short/medium/long).`

func buildPrompt(env MarketEnvironment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Macro: %s\nEquities: %s\nSentiment: %s\nCrypto overview: %s\nData completeness: %.0f%%\n",
		env.Macro, env.Equities, env.Sentiment, env.CryptoOverview, env.DataCompletenessPct*100)
	if len(env.RecentNews) > 0 {
		fmt.Fprintf(&b, "Recent news: %s\n", strings.Join(env.RecentNews, "; "))
	}
	for _, snap := range env.Snapshots {
		fmt.Fprintf(&b, "%s: close(1h)=%.2f close(4h)=%.2f close(1d)=%.2f rsi14=%.1f ma20=%.2f ma50=%.2f atr14=%.2f adx14=%.1f trend=%s vol=%s\n",
			snap.Symbol, snap.Close1h, snap.Close4h, snap.Close1d, snap.RSI14, snap.MA20, snap.MA50, snap.ATR14, snap.ADX14, snap.TrendLabel, snap.VolatilityBand)
	}
	return b.String()
}

func toRegime(raw *rawRegime, rawResponse string, now time.Time) *models.MarketRegime {
	label, direction := normalizeStructureBias(raw.Structure, raw.Bias)
	riskLevel := normalizeRiskLevel(raw.RiskLevel)
	tradingMode := normalizeTradingMode(raw.TradingMode)

	confidence := raw.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = 0.3
	}

	sizing := raw.PositionSizeMultiplier
	if sizing <= 0 {
		sizing = 1
	}

	var maxExposure *float64
	if raw.MaxExposure != nil {
		v := *raw.MaxExposure
		if v >= 0 && v <= 1 {
			maxExposure = &v
		}
	}

	return &models.MarketRegime{
		Label:                  label,
		Bias:                   strings.ToLower(strings.TrimSpace(raw.Bias)),
		MarketStructure:        strings.ToLower(strings.TrimSpace(raw.Structure)),
		Confidence:             confidence,
		RiskLevel:              riskLevel,
		RiskPosture:            tradingMode,
		PositionSizeMultiplier: sizing,
		PreferredDirection:     direction,
		CashRatio:              raw.CashRatio,
		MaxExposure:            maxExposure,
		Recommended:            models.StringList(raw.Recommended),
		BlacklistSymbols:       models.StringList(raw.BlacklistSymbols),
		KeyDrivers:             models.StringList(raw.KeyDrivers),
		MarketNarrative:        raw.MarketNarrative,
		VolatilityRange:        raw.VolatilityRange,
		Rationale:              raw.Rationale,
		TimeHorizonMinutes:     timeHorizonMinutes(raw.TimeHorizon),
		RawResponse:            rawResponse,
		GeneratedAt:            now,
		ValidUntil:             now.Add(time.Hour),
	}
}

func normalizeStructureBias(structure, bias string) (models.RegimeLabel, string) {
	structure = strings.ToLower(strings.TrimSpace(structure))
	bias = strings.ToLower(strings.TrimSpace(bias))

	switch structure {
	case "trending":
		switch bias {
		case "bullish":
			return models.RegimeTrendingBull, "long"
		case "bearish":
			return models.RegimeTrendingBear, "short"
		default:
			return models.RegimeRanging, "neutral"
		}
	case "ranging":
		return models.RegimeRanging, normalizeDirection(bias)
	case "extreme", "volatile":
		return models.RegimeVolatile, normalizeDirection(bias)
	default:
		return models.RegimeUnknown, "neutral"
	}
}

func normalizeDirection(bias string) string {
	switch bias {
	case "bullish":
		return "long"
	case "bearish":
		return "short"
	default:
		return "neutral"
	}
}

// normalizeRiskLevel maps the LLM's risk_level onto the enum, degrading
// unknown values to "medium" rather than failing the cycle (§4.2).
func normalizeRiskLevel(risk string) models.RiskLevel {
	switch strings.ToLower(strings.TrimSpace(risk)) {
	case "low":
		return models.RiskLevelLow
	case "high":
		return models.RiskLevelHigh
	case "extreme":
		return models.RiskLevelExtreme
	default:
		return models.RiskLevelMedium
	}
}

// normalizeTradingMode maps the LLM's trading_mode onto the posture enum.
func normalizeTradingMode(mode string) models.RiskPosture {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "aggressive":
		return models.RiskPostureAggressive
	case "conservative":
		return models.RiskPostureConservative
	case "defensive":
		return models.RiskPostureDefensive
	default:
		return models.RiskPostureNormal
	}
}
