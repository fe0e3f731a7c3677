package models

import "time"

type DecisionKind string

const (
	DecisionStrategist DecisionKind = "strategist"
	DecisionTrader     DecisionKind = "trader"
)

// DecisionRecord is an audit trail row written for every Strategist or
// Trader cycle, whether or not it produced a tradeable output (§3
// DecisionRecord, SUPPLEMENT — the original distillation did not name this
// entity explicitly but §4.1/§4.2/§4.3 all describe writing one, and
// original_source/ persists an equivalent audit log per cycle).
type DecisionRecord struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Kind         DecisionKind `gorm:"size:16;not null;index" json:"kind"`
	Symbol       string       `gorm:"size:32;index" json:"symbol,omitempty"`
	RegimeID     *uint        `gorm:"index" json:"regime_id,omitempty"`
	SignalID     *uint        `gorm:"index" json:"signal_id,omitempty"`
	InputContext JSONB        `gorm:"type:jsonb" json:"input_context,omitempty"`
	Outcome      string       `gorm:"size:32" json:"outcome"`
	Latency      int64        `gorm:"not null;default:0" json:"latency_ms"`
	Error        string       `gorm:"type:text" json:"error,omitempty"`
	CreatedAt    time.Time    `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (DecisionRecord) TableName() string { return "decision_records" }
