package models

import "time"

type RegimeLabel string

const (
	RegimeTrendingBull RegimeLabel = "trending_bull"
	RegimeTrendingBear RegimeLabel = "trending_bear"
	RegimeRanging      RegimeLabel = "ranging"
	RegimeVolatile     RegimeLabel = "volatile"
	RegimeUnknown      RegimeLabel = "unknown"
)

// RiskPosture is the regime's trading_mode (§3 MarketRegime).
type RiskPosture string

const (
	RiskPostureAggressive   RiskPosture = "aggressive"
	RiskPostureNormal       RiskPosture = "normal"
	RiskPostureConservative RiskPosture = "conservative"
	RiskPostureDefensive    RiskPosture = "defensive"
)

// RiskLevel is the regime's risk_level, distinct from the trading_mode
// carried in RiskPosture (§3 MarketRegime).
type RiskLevel string

const (
	RiskLevelLow     RiskLevel = "low"
	RiskLevelMedium  RiskLevel = "medium"
	RiskLevelHigh    RiskLevel = "high"
	RiskLevelExtreme RiskLevel = "extreme"
)

// MarketRegime is the hourly Strategist's output (§3 MarketRegime, §4.2). A
// regime is Valid until ValidUntil, then Stale, per the coordinator's
// ∅→Valid→Stale→Valid/Default state machine (§4.1). ValidUntil is always
// GeneratedAt+1h — a fixed window independent of the semantic
// TimeHorizonMinutes field, which only describes the LLM's own outlook.
type MarketRegime struct {
	ID                     uint        `gorm:"primaryKey" json:"id"`
	Label                  RegimeLabel `gorm:"size:24;not null" json:"label"`
	Bias                   string      `gorm:"size:8" json:"bias"`
	MarketStructure        string      `gorm:"size:16" json:"market_structure"`
	Confidence             float64     `gorm:"not null" json:"confidence"`
	RiskLevel              RiskLevel   `gorm:"size:16;not null" json:"risk_level"`
	RiskPosture            RiskPosture `gorm:"size:16;not null" json:"trading_mode"`
	PositionSizeMultiplier float64     `gorm:"not null;default:1" json:"position_sizing_multiplier"`
	PreferredDirection     string      `gorm:"size:8" json:"preferred_direction"`
	CashRatio              float64     `gorm:"not null;default:0" json:"cash_ratio"`
	MaxExposure            *float64    `json:"max_exposure,omitempty"`
	Recommended            StringList  `gorm:"type:jsonb" json:"recommended_symbols,omitempty"`
	BlacklistSymbols       StringList  `gorm:"type:jsonb" json:"blacklist_symbols,omitempty"`
	KeyDrivers             StringList  `gorm:"type:jsonb" json:"key_drivers,omitempty"`
	MarketNarrative        string      `gorm:"type:text" json:"market_narrative,omitempty"`
	VolatilityRange        string      `gorm:"size:64" json:"volatility_range,omitempty"`
	Rationale              string      `gorm:"type:text" json:"reasoning"`
	TimeHorizonMinutes     int         `gorm:"not null" json:"time_horizon_minutes"`
	RawResponse            string      `gorm:"type:text" json:"raw_response,omitempty"`
	GeneratedAt            time.Time   `gorm:"not null;index" json:"timestamp"`
	ValidUntil             time.Time   `gorm:"not null;index" json:"valid_until"`
}

func (MarketRegime) TableName() string { return "market_regimes" }

// IsValidAt reports whether the regime is still within its fixed one-hour
// validity window at t (§3 invariant: valid_until = timestamp + 3_600_000).
func (m *MarketRegime) IsValidAt(t time.Time) bool {
	if m.ValidUntil.IsZero() {
		return false
	}
	return t.Before(m.ValidUntil)
}

// DefaultMarketRegime is used when no regime has ever been produced and the
// trader must run before the first strategist cycle completes (bootstrap
// rule, §4.1).
func DefaultMarketRegime(now time.Time) *MarketRegime {
	return &MarketRegime{
		Label:                  RegimeUnknown,
		Bias:                   "neutral",
		MarketStructure:        "ranging",
		Confidence:             0,
		RiskLevel:              RiskLevelHigh,
		RiskPosture:            RiskPostureDefensive,
		PositionSizeMultiplier: 0.5,
		PreferredDirection:     "neutral",
		CashRatio:              0.7,
		Recommended:            StringList{"BTC", "ETH"},
		Rationale:              "no strategist cycle has completed yet",
		TimeHorizonMinutes:     60,
		GeneratedAt:            now,
		ValidUntil:             now.Add(time.Hour),
	}
}
