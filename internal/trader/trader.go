// Package trader emits per-symbol TradingSignals in batch-with-regime mode:
// one LLM call per tick, one JSON array out, one signal per requested
// symbol including explicit "hold" (§4.3).
package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"futures_engine/internal/interfaces"
	"futures_engine/internal/models"
)

// MarketSnapshot is the per-symbol market-data section of the prompt.
type MarketSnapshot struct {
	Symbol      string
	Price       decimal.Decimal
	RSI         float64
	MACD        float64
	MACDHist    float64
	FastMA      float64
	SlowMA      float64
	BollUpper   float64
	BollLower   float64
	ATR         float64
	ADX         float64
	PlusDI      float64
	MinusDI     float64
}

// AccountSummary is the account-state section of the prompt.
type AccountSummary struct {
	WalletBalance    decimal.Decimal
	AvailableBalance decimal.Decimal
	MarginBalance    decimal.Decimal
	TotalPositionValue decimal.Decimal
	RiskExposurePct  decimal.Decimal
	DailyPnl         decimal.Decimal
	CumulativeReturnPct decimal.Decimal
}

// RegimeSummary is the condensed strategist output the prompt carries.
type RegimeSummary struct {
	Label                  models.RegimeLabel
	RiskPosture            models.RiskPosture
	PositionSizeMultiplier float64
	Rationale              string
	KeyDrivers             []string
	CashRatio              float64
	Recommended            []string
	TradingMode            string // "paper" or "live"
}

// RiskLimitsSummary is the prompt-facing view of configured risk limits.
type RiskLimitsSummary struct {
	MaxPositionSizePct decimal.Decimal
	StopLossPct        decimal.Decimal
	TakeProfitPct      decimal.Decimal
	SingleTradeCapPct  decimal.Decimal
}

// Input is everything one Trader tick needs.
type Input struct {
	Regime             RegimeSummary
	Account            AccountSummary
	RiskLimits         RiskLimitsSummary
	Snapshots          map[string]MarketSnapshot  // keyed by contract symbol
	Positions          map[string]*models.Position // keyed by contract symbol
	TraderIntervalSec  int
	StrategistIntervalSec int
}

type rawSignal struct {
	Symbol            string   `json:"symbol"`
	SignalType        string   `json:"signal_type"`
	Confidence        float64  `json:"confidence"`
	SuggestedPrice    float64  `json:"suggested_price"`
	SuggestedSize     float64  `json:"suggested_amount"`
	SuggestedLeverage float64  `json:"leverage"`
	StopLoss          float64  `json:"stop_loss"`
	TakeProfit        float64  `json:"take_profit"`
	Rationale         string   `json:"reasoning"`
	SupportingFactors []string `json:"supporting_factors"`
	RiskFactors       []string `json:"risk_factors"`
	Source            string   `json:"source"`
}

type Trader struct {
	llm          interfaces.LLMClient
	model        string
	temperature  float64
	maxTokens    int
	strategyName string
}

func New(llm interfaces.LLMClient, model string, temperature float64, maxTokens int) *Trader {
	return &Trader{llm: llm, model: model, temperature: temperature, maxTokens: maxTokens, strategyName: "default"}
}

// SetStrategyName records the active strategy catalogue entry (§4.3
// TradingSignal.source) — signals fall back to it when the LLM's response
// omits its own source attribution.
func (t *Trader) SetStrategyName(name string) {
	if name != "" {
		t.strategyName = name
	}
}

// Generate returns one signal per requested symbol; a symbol absent from
// the LLM's array maps to a nil entry (§4.3).
func (t *Trader) Generate(ctx context.Context, in Input, now func() string) (map[string]*models.TradingSignal, error) {
	prompt := buildPrompt(in)

	raw, err := t.llm.Complete(ctx, interfaces.ChatRequest{
		SystemPrompt: traderSystemPrompt,
		UserPrompt:   prompt,
		Temperature:  t.temperature,
		MaxTokens:    t.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("trader: llm call failed: %w", err)
	}

	rawSignals, err := parseSignalArray(raw)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*models.TradingSignal, len(in.Snapshots))
	for symbol := range in.Snapshots {
		result[symbol] = nil
	}

	for _, rs := range rawSignals {
		contractSymbol := normalizeSymbol(rs.Symbol, in.Snapshots)
		if contractSymbol == "" {
			continue
		}
		size := decimal.NewFromFloat(rs.SuggestedSize)
		var leverage *decimal.Decimal
		if rs.SuggestedLeverage > 0 {
			l := decimal.NewFromFloat(rs.SuggestedLeverage)
			leverage = &l
		}
		var suggestedPrice *decimal.Decimal
		if rs.SuggestedPrice > 0 {
			p := decimal.NewFromFloat(rs.SuggestedPrice)
			suggestedPrice = &p
		}
		var stopLoss *decimal.Decimal
		if rs.StopLoss > 0 {
			sl := decimal.NewFromFloat(rs.StopLoss)
			stopLoss = &sl
		}
		var takeProfit *decimal.Decimal
		if rs.TakeProfit > 0 {
			tp := decimal.NewFromFloat(rs.TakeProfit)
			takeProfit = &tp
		}
		source := strings.TrimSpace(rs.Source)
		if source == "" {
			source = t.strategyName
		}
		result[contractSymbol] = &models.TradingSignal{
			Symbol:            contractSymbol,
			SignalType:        models.NormalizeSignalType(rs.SignalType),
			Confidence:        rs.Confidence,
			SuggestedPrice:    suggestedPrice,
			SuggestedSize:     size,
			SuggestedLeverage: leverage,
			StopLoss:          stopLoss,
			TakeProfit:        takeProfit,
			Rationale:         rs.Rationale,
			SupportingFactors: models.StringList(rs.SupportingFactors),
			RiskFactors:       models.StringList(rs.RiskFactors),
			Source:            source,
			RawResponse:       raw,
		}
	}
	return result, nil
}

const traderSystemPrompt = `You are the tactical layer of an autonomous crypto futures trading system.
Given the current market regime, account state, per-symbol indicators, and risk limits, return
ONLY a JSON array with one object per symbol: symbol, signal_type (buy/sell/close_long/close_short/hold),
confidence (0-1), suggested_price, suggested_amount, leverage, stop_loss, take_profit,
supporting_factors (array of short strings backing the call), risk_factors (array of short strings
against it), source (the strategy or signal family driving the call), reasoning. Emit an explicit
"hold" with confidence 0 when there is no opportunity. Omit suggested_price/stop_loss/take_profit
(or send 0) when the signal_type is "hold".`

func buildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Regime: %s risk=%s sizing=%.2f cash_ratio=%.2f mode=%s\nRationale: %s\nKey drivers: %s\nRecommended: %s\n\n",
		in.Regime.Label, in.Regime.RiskPosture, in.Regime.PositionSizeMultiplier, in.Regime.CashRatio, in.Regime.TradingMode,
		in.Regime.Rationale, strings.Join(in.Regime.KeyDrivers, ", "), strings.Join(in.Regime.Recommended, ", "))

	fmt.Fprintf(&b, "Account: wallet=%s available=%s margin=%s position_value=%s exposure=%s%% daily_pnl=%s cum_return=%s%%\n\n",
		in.Account.WalletBalance, in.Account.AvailableBalance, in.Account.MarginBalance, in.Account.TotalPositionValue,
		in.Account.RiskExposurePct, in.Account.DailyPnl, in.Account.CumulativeReturnPct)

	fmt.Fprintf(&b, "Risk limits: max_position=%s%% stop=%s%% take_profit=%s%% single_trade_cap=%s%%\n\n",
		in.RiskLimits.MaxPositionSizePct, in.RiskLimits.StopLossPct, in.RiskLimits.TakeProfitPct, in.RiskLimits.SingleTradeCapPct)

	for symbol, snap := range in.Snapshots {
		fmt.Fprintf(&b, "%s price=%s rsi=%.1f(%s) macd=%.4f(%s) ma_trend=%s boll=%s atr=%.2f adx=%.1f(%s,%s)\n",
			symbol, snap.Price, snap.RSI, rsiTag(snap.RSI), snap.MACD, macdTag(snap.MACDHist),
			maTrendTag(snap.FastMA, snap.SlowMA), bollPositionTag(snap.Price, snap.BollUpper, snap.BollLower),
			snap.ATR, snap.ADX, adxStrengthTag(snap.ADX), adxDirectionTag(snap.PlusDI, snap.MinusDI))

		if pos, ok := in.Positions[symbol]; ok && pos != nil {
			fmt.Fprintf(&b, "  position: side=%s entry=%s current=%s unrealized_pnl=%s (%s%%)\n",
				pos.Side, pos.EntryPrice, pos.CurrentPrice, pos.UnrealizedPnl, pos.UnrealizedPnlPct)
		}
	}

	fmt.Fprintf(&b, "\nIntervals: trader=%ds strategist=%ds\n", in.TraderIntervalSec, in.StrategistIntervalSec)
	return b.String()
}

func rsiTag(rsi float64) string {
	switch {
	case rsi >= 70:
		return "overbought"
	case rsi <= 30:
		return "oversold"
	default:
		return "neutral"
	}
}

func macdTag(hist float64) string {
	if hist >= 0 {
		return "golden_cross"
	}
	return "death_cross"
}

func maTrendTag(fast, slow float64) string {
	if fast > slow {
		return "up"
	}
	if fast < slow {
		return "down"
	}
	return "flat"
}

func bollPositionTag(price decimal.Decimal, upper, lower float64) string {
	if price.GreaterThan(decimal.NewFromFloat(upper)) {
		return "above_upper"
	}
	if price.LessThan(decimal.NewFromFloat(lower)) {
		return "below_lower"
	}
	return "inside"
}

func adxStrengthTag(adx float64) string {
	switch {
	case adx < 20:
		return "none"
	case adx < 40:
		return "weak"
	case adx < 60:
		return "strong"
	default:
		return "very_strong"
	}
}

func adxDirectionTag(plusDI, minusDI float64) string {
	if plusDI >= minusDI {
		return "bullish"
	}
	return "bearish"
}

var arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

func parseSignalArray(text string) ([]rawSignal, error) {
	var signals []rawSignal
	trimmed := strings.TrimSpace(text)

	if err := json.Unmarshal([]byte(trimmed), &signals); err == nil {
		return signals, nil
	}
	if m := arrayPattern.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &signals); err == nil {
			return signals, nil
		}
	}
	return nil, fmt.Errorf("trader: no JSON array recoverable from response (%d chars)", len(text))
}

// normalizeSymbol maps a returned base or pair symbol back to the
// requested contract symbol, e.g. "BTC/USDT" -> "BTC/USDT:USDT" (§4.3).
func normalizeSymbol(raw string, known map[string]MarketSnapshot) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if _, ok := known[raw]; ok {
		return raw
	}
	for symbol := range known {
		base := strings.SplitN(symbol, "/", 2)[0]
		pair := strings.SplitN(symbol, ":", 2)[0]
		if raw == base || raw == pair || raw == symbol {
			return symbol
		}
	}
	return ""
}
