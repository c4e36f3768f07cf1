package services

import (
	"challenge-tracking-system/models"

	"github.com/shopspring/decimal"
)

// Tunables for the challenge domain.
const (
	MaxDurationDays = 365
	TopSimilarLimit = 3
)

var minutesPerDay = decimal.NewFromInt(24 * 60)

// CheckHabitLimits validates habit parameters against the exercise's
// session ceiling. Also invoked at progress-logging time with the proposed
// progress value substituted for frequencyPerWeek, so one log entry can
// never exceed the per-period capacity the exercise implies.
func CheckHabitLimits(exercise *models.Exercise, frequencyPerWeek, durationWeeks int) error {
	if exercise == nil {
		return validationErrorf("exercise is required for habit challenge validation")
	}
	if frequencyPerWeek < 1 || durationWeeks < 1 {
		return validationErrorf("frequency_per_week and duration_weeks must be >= 1")
	}
	totalSessions := frequencyPerWeek * durationWeeks
	maxAllowed := exercise.MaxSessionsPerDay * 7 * durationWeeks
	if totalSessions > maxAllowed {
		return validationErrorf("total sessions (%d) exceed max allowed (%d)", totalSessions, maxAllowed)
	}
	return nil
}

// CheckTargetLimits validates target parameters against the exercise's
// per-day session ceiling and its rate ceiling. The rate ceiling is
// evaluated in exact decimal arithmetic; binary floats would mis-round at
// the boundary for rates like 0.1.
func CheckTargetLimits(exercise *models.Exercise, targetValue, durationDays int) error {
	if exercise == nil {
		return validationErrorf("exercise is required for target challenge validation")
	}
	if durationDays < 1 || durationDays > MaxDurationDays {
		return validationErrorf("duration_days must be between 1 and %d", MaxDurationDays)
	}

	avgPerDay := decimal.NewFromInt(int64(targetValue)).
		Div(decimal.NewFromInt(int64(durationDays))).
		Ceil().IntPart()
	if avgPerDay > int64(exercise.MaxSessionsPerDay) {
		return validationErrorf("target per day (%d) exceeds max/day (%d)", avgPerDay, exercise.MaxSessionsPerDay)
	}

	maxTotal := exercise.MaxRatePerMinute.
		Mul(minutesPerDay).
		Mul(decimal.NewFromInt(int64(durationDays))).
		Floor().IntPart()
	if int64(targetValue) > maxTotal {
		return validationErrorf("target value (%d) exceeds allowed maximum (%d)", targetValue, maxTotal)
	}
	return nil
}
