package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProgressEntry bounds
const (
	ProgressValueMin = 0
	ProgressValueMax = 500
)

// ProgressEntry is an immutable log record of effort against a challenge.
// LoggedAt is server-assigned; rows are never updated or deleted by the
// normal flow.
type ProgressEntry struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	UserID          uint            `json:"user_id" gorm:"not null;index"`
	User            User            `json:"user,omitempty" gorm:"foreignKey:UserID"`
	ChallengeID     uint            `json:"challenge_id" gorm:"not null;index"`
	ProgressValue   int             `json:"progress_value" gorm:"not null"`
	DurationMinutes decimal.Decimal `json:"duration_minutes" gorm:"type:decimal(8,2);not null"`
	Notes           string          `json:"notes,omitempty" gorm:"type:text"`
	LoggedAt        time.Time       `json:"logged_at" gorm:"autoCreateTime"`
}
