package models

import (
	"time"
)

// ChallengeType is fixed at creation and never changes.
type ChallengeType int

const (
	ChallengeTypeHabit  ChallengeType = 0
	ChallengeTypeTarget ChallengeType = 1
)

func (t ChallengeType) String() string {
	if t == ChallengeTypeTarget {
		return "target"
	}
	return "habit"
}

// Challenge statuses. draft → published → {cancelled, completed};
// published → draft is not a modeled transition.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Challenge is a goal definition owned by its creator. Exactly one detail
// record (habit or target) exists per challenge, matching ChallengeType.
// ActiveParticipantCount and TrendingScore are denormalized caches: they are
// always fully recomputed, never incremented in place.
type Challenge struct {
	ID                  uint          `json:"id" gorm:"primaryKey"`
	CreatorID           uint          `json:"creator_id" gorm:"not null;index"`
	Creator             User          `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Title               string        `json:"title" gorm:"size:100;not null"`
	Slug                string        `json:"slug" gorm:"size:120;index"`
	ChallengeType       ChallengeType `json:"challenge_type" gorm:"not null"`
	Status              string        `json:"status" gorm:"size:20;default:'draft'"`
	Description         string        `json:"description" gorm:"type:text"`
	ThresholdPercentage int           `json:"threshold_percentage" gorm:"default:0"`

	PublishedAt     *time.Time `json:"published_at,omitempty" gorm:"index"`
	PublishSchedule *time.Time `json:"publish_schedule,omitempty"`

	IsDeleted              bool `json:"is_deleted" gorm:"default:false;index"`
	ActiveParticipantCount int  `json:"active_participant_count" gorm:"default:0"`
	TrendingScore          int  `json:"trending_score" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	HabitDetails    *HabitChallenge  `json:"habit_details,omitempty" gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE"`
	TargetDetails   *TargetChallenge `json:"target_details,omitempty" gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE"`
	Participants    []Participant    `json:"participants,omitempty" gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE"`
	ProgressEntries []ProgressEntry  `json:"progress_entries,omitempty" gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE"`
}

// DetailExercise returns the exercise referenced by the detail record of the
// challenge's declared type, or nil when that detail record is absent. A
// missing detail is a representable state, not an error to paper over.
func (c *Challenge) DetailExercise() *Exercise {
	switch c.ChallengeType {
	case ChallengeTypeHabit:
		if c.HabitDetails != nil {
			return &c.HabitDetails.Exercise
		}
	case ChallengeTypeTarget:
		if c.TargetDetails != nil {
			return &c.TargetDetails.Exercise
		}
	}
	return nil
}

// HabitChallenge holds the habit-specific parameters, one-to-one with its
// challenge.
type HabitChallenge struct {
	ChallengeID      uint     `json:"challenge_id" gorm:"primaryKey"`
	ExerciseID       uint     `json:"exercise_id" gorm:"not null;index"`
	Exercise         Exercise `json:"exercise,omitempty" gorm:"foreignKey:ExerciseID"`
	DurationWeeks    int      `json:"duration_weeks" gorm:"not null"`
	FrequencyPerWeek int      `json:"frequency_per_week" gorm:"not null"`
}

// TargetChallenge holds the target-specific parameters, one-to-one with its
// challenge.
type TargetChallenge struct {
	ChallengeID  uint     `json:"challenge_id" gorm:"primaryKey"`
	ExerciseID   uint     `json:"exercise_id" gorm:"not null;index"`
	Exercise     Exercise `json:"exercise,omitempty" gorm:"foreignKey:ExerciseID"`
	DurationDays int      `json:"duration_days" gorm:"not null"`
	TargetValue  int      `json:"target_value" gorm:"not null"`
}
