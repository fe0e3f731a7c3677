package models

import "time"

// Exchange is a statically configured trading venue, resolved once and
// cached by name (§3 Exchange).
type Exchange struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Testnet     bool      `gorm:"default:false" json:"testnet"`
	Credentials JSONB     `gorm:"type:jsonb" json:"-"` // opaque: API key/secret, never logged
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Exchange) TableName() string { return "exchanges" }
