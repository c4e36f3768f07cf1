package services

import (
	"errors"

	"challenge-tracking-system/models"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var minDurationMinutes = decimal.NewFromFloat(0.1)

// notesPolicy strips every tag (script and style contents included) from
// free-text notes before they are persisted.
var notesPolicy = bluemonday.StrictPolicy()

// ProgressService records workout progress against challenges.
type ProgressService struct {
	DB         *gorm.DB
	Challenges *ChallengeService
}

func NewProgressService(db *gorm.DB, challenges *ChallengeService) *ProgressService {
	return &ProgressService{DB: db, Challenges: challenges}
}

type ProgressPayload struct {
	ChallengeID     uint            `json:"challenge_id"`
	ProgressValue   int             `json:"progress_value"`
	DurationMinutes decimal.Decimal `json:"duration_minutes"`
	Notes           string          `json:"notes"`
}

// LogProgress validates and records one entry for an active participant,
// then recomputes the challenge's trending score. The value passes the
// range check, the per-minute rate ceiling and the challenge-type limit
// checks before anything is written.
func (s *ProgressService) LogProgress(user *models.User, payload *ProgressPayload) (*models.ProgressEntry, error) {
	if payload.ProgressValue < models.ProgressValueMin || payload.ProgressValue > models.ProgressValueMax {
		return nil, validationErrorf("progress_value must be between %d and %d", models.ProgressValueMin, models.ProgressValueMax)
	}
	if payload.DurationMinutes.LessThan(minDurationMinutes) {
		return nil, validationErrorf("duration_minutes must be at least 0.1")
	}

	challenge, err := s.Challenges.GetChallenge(payload.ChallengeID)
	if err != nil {
		return nil, err
	}

	var participation models.Participant
	err = s.DB.Where("challenge_id = ? AND user_id = ? AND state = ?",
		challenge.ID, user.ID, models.StateActive).First(&participation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, validationErrorf("not participating")
	}
	if err != nil {
		return nil, err
	}

	// No detail record means no rate ceiling is defined.
	exercise := challenge.DetailExercise()
	if exercise == nil {
		return nil, validationErrorf("challenge is missing its %s details", challenge.ChallengeType)
	}
	rate := decimal.NewFromInt(int64(payload.ProgressValue)).Div(payload.DurationMinutes)
	if rate.GreaterThan(exercise.MaxRatePerMinute) {
		return nil, validationErrorf("rate too high! maximum %s units per minute allowed, your rate: %s units/minute",
			exercise.MaxRatePerMinute.String(), rate.Round(2).String())
	}

	if err := s.Challenges.CheckProgress(challenge, payload.ProgressValue); err != nil {
		return nil, err
	}

	entry := &models.ProgressEntry{
		UserID:          user.ID,
		ChallengeID:     challenge.ID,
		ProgressValue:   payload.ProgressValue,
		DurationMinutes: payload.DurationMinutes,
		Notes:           notesPolicy.Sanitize(payload.Notes),
	}
	if err := s.DB.Create(entry).Error; err != nil {
		return nil, err
	}

	if _, err := s.Challenges.UpdateTrendingScore(challenge); err != nil {
		serviceLog.WithError(err).WithField("challenge_id", challenge.ID).
			Warn("[Progress] trending recompute failed")
	}
	return entry, nil
}

// ListUserProgress returns the user's entries, newest first, optionally
// narrowed to one challenge.
func (s *ProgressService) ListUserProgress(user *models.User, challengeID *uint) ([]models.ProgressEntry, error) {
	q := s.DB.Where("user_id = ?", user.ID)
	if challengeID != nil {
		q = q.Where("challenge_id = ?", *challengeID)
	}
	var entries []models.ProgressEntry
	if err := q.Order("logged_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
