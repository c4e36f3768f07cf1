package services

import (
	"time"

	"challenge-tracking-system/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AnalyticsService aggregates participation and progress statistics for a
// challenge. Read-only; it never mutates persisted counters.
type AnalyticsService struct {
	DB *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{DB: db}
}

type ParticipantStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
	Left   int64 `json:"left"`
	Owners int64 `json:"owners"`
}

// UserProgressStat is one row of the per-user progress breakdown.
type UserProgressStat struct {
	UserID       uint    `json:"user_id"`
	Email        string  `json:"email"`
	TotalValue   int64   `json:"total_value"`
	AverageValue float64 `json:"average_value"`
	EntriesCount int64   `json:"entries_count"`
}

type ProgressStats struct {
	TotalValue   int64              `json:"total_value"`
	AverageValue float64            `json:"average_value"`
	EntriesCount int64              `json:"entries_count"`
	PerUser      []UserProgressStat `json:"per_user"`
	// CompletionPercentage is nil when the challenge is missing its detail
	// record and completion cannot be defined.
	CompletionPercentage *float64 `json:"completion_percentage"`
}

type ChallengeAnalytics struct {
	ChallengeID   uint             `json:"challenge_id"`
	Title         string           `json:"title"`
	Participants  ParticipantStats `json:"participants"`
	Progress      ProgressStats    `json:"progress"`
	TrendingScore int              `json:"trending_score"`
}

// GetChallengeAnalytics builds the full analytics report. A nil start/end
// means an unbounded window. Participant counts honor the window through
// joined_at; progress aggregates honor it through logged_at, inclusive on
// both ends. The trending score is reported as persisted, not recomputed.
func (s *AnalyticsService) GetChallengeAnalytics(challenge *models.Challenge, start, end *time.Time) (*ChallengeAnalytics, error) {
	report := &ChallengeAnalytics{
		ChallengeID:   challenge.ID,
		Title:         challenge.Title,
		TrendingScore: challenge.TrendingScore,
	}

	if err := s.participantStats(challenge, end, &report.Participants); err != nil {
		return nil, err
	}
	if err := s.progressStats(challenge, start, end, &report.Progress); err != nil {
		return nil, err
	}

	report.Progress.CompletionPercentage = s.completionPercentage(challenge, report.Progress.TotalValue)
	return report, nil
}

func (s *AnalyticsService) participantStats(challenge *models.Challenge, end *time.Time, out *ParticipantStats) error {
	base := func() *gorm.DB {
		q := s.DB.Model(&models.Participant{}).Where("challenge_id = ?", challenge.ID)
		if end != nil {
			q = q.Where("joined_at <= ?", *end)
		}
		return q
	}

	if err := base().Count(&out.Total).Error; err != nil {
		return err
	}
	if err := base().Where("state = ?", models.StateActive).Count(&out.Active).Error; err != nil {
		return err
	}
	if err := base().Where("state = ?", models.StateLeft).Count(&out.Left).Error; err != nil {
		return err
	}
	return base().Where("role = ?", models.RoleOwner).Count(&out.Owners).Error
}

func (s *AnalyticsService) progressStats(challenge *models.Challenge, start, end *time.Time, out *ProgressStats) error {
	window := func(q *gorm.DB) *gorm.DB {
		q = q.Where("progress_entries.challenge_id = ?", challenge.ID)
		if start != nil {
			q = q.Where("progress_entries.logged_at >= ?", *start)
		}
		if end != nil {
			q = q.Where("progress_entries.logged_at <= ?", *end)
		}
		return q
	}

	var totals struct {
		TotalValue   int64
		AverageValue float64
		EntriesCount int64
	}
	err := window(s.DB.Model(&models.ProgressEntry{})).
		Select("COALESCE(SUM(progress_value), 0) AS total_value, COALESCE(AVG(progress_value), 0) AS average_value, COUNT(*) AS entries_count").
		Scan(&totals).Error
	if err != nil {
		return err
	}
	out.TotalValue = totals.TotalValue
	out.AverageValue = totals.AverageValue
	out.EntriesCount = totals.EntriesCount

	out.PerUser = []UserProgressStat{}
	return window(s.DB.Model(&models.ProgressEntry{})).
		Select("progress_entries.user_id, users.email, SUM(progress_entries.progress_value) AS total_value, AVG(progress_entries.progress_value) AS average_value, COUNT(*) AS entries_count").
		Joins("JOIN users ON users.id = progress_entries.user_id").
		Group("progress_entries.user_id, users.email").
		Order("total_value DESC").
		Scan(&out.PerUser).Error
}

// completionPercentage relates total logged progress to the planned amount.
// Habit: frequency * weeks. Target: the target value. Returns nil without a
// detail record, and 0 when the planned amount is 0.
func (s *AnalyticsService) completionPercentage(challenge *models.Challenge, totalValue int64) *float64 {
	var planned int64
	switch challenge.ChallengeType {
	case models.ChallengeTypeHabit:
		d := challenge.HabitDetails
		if d == nil {
			return nil
		}
		planned = int64(d.FrequencyPerWeek) * int64(d.DurationWeeks)
	case models.ChallengeTypeTarget:
		d := challenge.TargetDetails
		if d == nil {
			return nil
		}
		planned = int64(d.TargetValue)
	default:
		return nil
	}

	var pct float64
	if planned > 0 {
		pct, _ = decimal.NewFromInt(totalValue).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(planned)).
			Round(2).
			Float64()
	}
	return &pct
}
