package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SignalType string

const (
	SignalOpenLong   SignalType = "open_long"
	SignalOpenShort  SignalType = "open_short"
	SignalCloseLong  SignalType = "close_long"
	SignalCloseShort SignalType = "close_short"
	SignalHold       SignalType = "hold"
)

// NormalizeSignalType maps the trader LLM's synonym vocabulary onto the
// canonical SignalType set (§4.3 signal-type synonym mapping).
func NormalizeSignalType(raw string) SignalType {
	switch raw {
	case "buy", "long", "open_long", "enter_long":
		return SignalOpenLong
	case "sell", "short", "open_short", "enter_short":
		return SignalOpenShort
	case "close_long", "exit_long", "sell_to_close":
		return SignalCloseLong
	case "close_short", "exit_short", "buy_to_close", "cover":
		return SignalCloseShort
	default:
		return SignalHold
	}
}

// TradingSignal is one per-symbol output of a Trader cycle (§3
// TradingSignal, §4.3), persisted before the risk pipeline evaluates it.
type TradingSignal struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	Symbol            string           `gorm:"size:32;not null;index" json:"symbol"`
	SignalType        SignalType       `gorm:"size:16;not null" json:"signal_type"`
	Confidence        float64          `gorm:"not null" json:"confidence"`
	SuggestedPrice    *decimal.Decimal `gorm:"type:decimal(36,18)" json:"suggested_price,omitempty"`
	SuggestedSize     decimal.Decimal  `gorm:"type:decimal(36,18)" json:"suggested_amount"`
	SuggestedLeverage *decimal.Decimal `gorm:"type:decimal(10,2)" json:"leverage,omitempty"`
	StopLoss          *decimal.Decimal `gorm:"type:decimal(36,18)" json:"stop_loss,omitempty"`
	TakeProfit        *decimal.Decimal `gorm:"type:decimal(36,18)" json:"take_profit,omitempty"`
	Rationale         string           `gorm:"type:text" json:"reasoning"`
	SupportingFactors StringList       `gorm:"type:jsonb" json:"supporting_factors,omitempty"`
	RiskFactors       StringList       `gorm:"type:jsonb" json:"risk_factors,omitempty"`
	Source            string           `gorm:"size:64" json:"source"`
	RegimeID          *uint            `gorm:"index" json:"regime_id,omitempty"`
	RawResponse       string           `gorm:"type:text" json:"raw_response,omitempty"`
	Executed          bool             `gorm:"default:false" json:"executed"`
	RejectionReason   string           `gorm:"size:200" json:"rejection_reason,omitempty"`
	GeneratedAt       time.Time        `gorm:"not null;index" json:"timestamp"`
}

func (TradingSignal) TableName() string { return "trading_signals" }
