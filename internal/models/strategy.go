package models

import "time"

// Strategy is a named prompt/parameter profile the Strategist and Trader
// can be configured to run under (SUPPLEMENT — original_source/ carries a
// strategy catalogue the distilled spec dropped; kept here as a selectable
// prompt_style/config bundle rather than re-deriving the original's full
// versioning machinery).
type Strategy struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;not null;uniqueIndex" json:"name"`
	PromptStyle string    `gorm:"size:32;not null" json:"prompt_style"`
	Description string    `gorm:"type:text" json:"description"`
	Active      bool      `gorm:"default:true" json:"active"`
	Config      JSONB     `gorm:"type:jsonb" json:"config,omitempty"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Strategy) TableName() string { return "strategies" }

// Experience is a single closed-trade outcome fed back as few-shot context
// to future Trader cycles (SUPPLEMENT, grounded on original_source/'s
// experience-replay buffer; bounded to the most recent N rows by the
// repository layer rather than kept unbounded).
type Experience struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Symbol           string    `gorm:"size:32;not null;index" json:"symbol"`
	RegimeLabel      string    `gorm:"size:24" json:"regime_label"`
	SignalType       string    `gorm:"size:16" json:"signal_type"`
	Outcome          string    `gorm:"size:16;not null" json:"outcome"` // win/loss/breakeven
	RealizedPnlPct   float64   `gorm:"not null" json:"realized_pnl_pct"`
	Lesson           string    `gorm:"type:text" json:"lesson,omitempty"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (Experience) TableName() string { return "experiences" }
