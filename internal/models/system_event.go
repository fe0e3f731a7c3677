package models

import "time"

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// SystemEvent is a supervisor/loop-health audit row (SUPPLEMENT — the
// Supervisor described in SPEC_FULL §4.0 records panics, restarts, and
// circuit-breaker trips here so the read API can surface engine health
// without tailing logs, grounded on the teacher's ServiceLog shape).
type SystemEvent struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Source    string        `gorm:"size:64;not null;index" json:"source"`
	Severity  EventSeverity `gorm:"size:12;not null;index" json:"severity"`
	Message   string        `gorm:"type:text;not null" json:"message"`
	Metadata  JSONB         `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time     `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (SystemEvent) TableName() string { return "system_events" }
