package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit types
const (
	UnitReps = "reps"
	UnitKm   = "km"
)

// Exercise categories
const (
	CategoryCardio      = "cardio"
	CategoryStrength    = "strength"
	CategoryFlexibility = "flexibility"
)

// Exercise is a catalog entry. Its numeric ceilings bound every challenge
// built on it, so deletion is blocked while habit or target details point
// at them.
type Exercise struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	Name              string          `json:"name" gorm:"size:50;uniqueIndex;not null"`
	MaxSessionsPerDay int             `json:"max_sessions_per_day" gorm:"not null"`
	MaxRatePerMinute  decimal.Decimal `json:"max_rate_per_minute" gorm:"type:decimal(8,3);not null"`
	UnitType          string          `json:"unit_type" gorm:"size:10;default:'reps'"`
	Category          string          `json:"category" gorm:"size:20;not null"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func ValidUnitType(u string) bool {
	return u == UnitReps || u == UnitKm
}

func ValidCategory(c string) bool {
	return c == CategoryCardio || c == CategoryStrength || c == CategoryFlexibility
}
