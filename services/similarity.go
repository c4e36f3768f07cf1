package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"challenge-tracking-system/models"
)

// SimilarCacheTTL bounds how stale a cached similarity list may be.
const SimilarCacheTTL = 300 * time.Second

// ChallengeSummary is the reduced set of fields used for duplicate and
// similarity comparison. Zero values stand in for fields the other type
// does not carry.
type ChallengeSummary struct {
	Type          models.ChallengeType
	Category      string
	Frequency     int
	DurationWeeks int
	TargetValue   int
	DurationDays  int
	ExerciseID    uint
}

// SimilarChallenge pairs a candidate with its similarity score.
type SimilarChallenge struct {
	Challenge *models.Challenge
	Score     int
}

// cachedMatch is the persisted shape of one similarity result. Only the id
// and score are cached; the challenge itself is re-resolved on read so
// since-deleted rows drop out lazily.
type cachedMatch struct {
	ID    uint `json:"id"`
	Score int  `json:"score"`
}

func (sum ChallengeSummary) cacheKey() string {
	category := sum.Category
	if category == "" {
		category = "all"
	}
	return fmt.Sprintf("similar:%d:%s:%d:%d:%d:%d",
		sum.Type, category, sum.Frequency, sum.DurationWeeks, sum.TargetValue, sum.DurationDays)
}

// scoreAgainstExisting computes the similarity score (0-2) between a new
// summary and an existing challenge. Challenges of a different type, or
// without a detail record and exercise, score 0.
func scoreAgainstExisting(sum ChallengeSummary, existing *models.Challenge) int {
	if existing.ChallengeType != sum.Type {
		return 0
	}

	score := 0
	switch sum.Type {
	case models.ChallengeTypeHabit:
		details := existing.HabitDetails
		if details == nil || details.Exercise.ID == 0 {
			return 0
		}
		if sum.Category != "" && sum.Category == details.Exercise.Category {
			score++
		}
		if abs(sum.Frequency-details.FrequencyPerWeek) <= 2 {
			score++
		}
		if abs(sum.DurationWeeks-details.DurationWeeks) <= 5 {
			score++
		}
	case models.ChallengeTypeTarget:
		details := existing.TargetDetails
		if details == nil || details.Exercise.ID == 0 {
			return 0
		}
		if sum.Category != "" && sum.Category == details.Exercise.Category {
			score++
		}
		// A zero existing target counts as 100% different: no point.
		// abs(new-existing)/existing <= 5%, compared without truncation.
		if details.TargetValue > 0 && abs(sum.TargetValue-details.TargetValue)*100 <= 5*details.TargetValue {
			score++
		}
		if abs(sum.DurationDays-details.DurationDays) <= 5 {
			score++
		}
	}
	return score
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// FindSimilar returns up to TopSimilarLimit same-type challenges with a
// positive similarity score, best first. Results are cached under the
// summary fingerprint; excludeID is applied after cache lookup so the cache
// entry stays shared across callers.
func (s *ChallengeService) FindSimilar(ctx context.Context, sum ChallengeSummary, excludeID uint) ([]SimilarChallenge, error) {
	key := sum.cacheKey()

	var scored []SimilarChallenge
	var cached []cachedMatch
	hit := false
	if s.Cache != nil {
		var err error
		hit, err = s.Cache.GetJSON(ctx, key, &cached)
		if err != nil {
			// Cache is best-effort; fall through to a recompute.
			serviceLog.WithError(err).WithField("key", key).Warn("[Similarity] cache read failed")
			hit = false
		}
	}

	if hit {
		for _, item := range cached {
			var c models.Challenge
			err := s.DB.
				Preload("HabitDetails.Exercise").
				Preload("TargetDetails.Exercise").
				Where("is_deleted = ?", false).
				First(&c, item.ID).Error
			if err != nil {
				// Deleted since the entry was cached; drop silently.
				continue
			}
			scored = append(scored, SimilarChallenge{Challenge: &c, Score: item.Score})
		}
	} else {
		candidates, err := s.similarityCandidates(sum)
		if err != nil {
			return nil, err
		}
		for i := range candidates {
			score := s.scoreFn(sum, &candidates[i])
			if score > 0 {
				scored = append(scored, SimilarChallenge{Challenge: &candidates[i], Score: score})
			}
		}

		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
		if len(scored) > TopSimilarLimit {
			scored = scored[:TopSimilarLimit]
		}

		if s.Cache != nil {
			entry := make([]cachedMatch, 0, len(scored))
			for _, sc := range scored {
				entry = append(entry, cachedMatch{ID: sc.Challenge.ID, Score: sc.Score})
			}
			if err := s.Cache.SetJSON(ctx, key, entry, SimilarCacheTTL); err != nil {
				serviceLog.WithError(err).WithField("key", key).Warn("[Similarity] cache write failed")
			}
		}
	}

	if excludeID != 0 {
		filtered := scored[:0]
		for _, sc := range scored {
			if sc.Challenge.ID != excludeID {
				filtered = append(filtered, sc)
			}
		}
		scored = filtered
	}

	return scored, nil
}

// similarityCandidates loads same-type, non-deleted challenges, pre-filtered
// by the summary's category when one is set.
func (s *ChallengeService) similarityCandidates(sum ChallengeSummary) ([]models.Challenge, error) {
	q := s.DB.
		Preload("HabitDetails.Exercise").
		Preload("TargetDetails.Exercise").
		Where("challenges.is_deleted = ? AND challenges.challenge_type = ?", false, sum.Type)

	if sum.Category != "" {
		if sum.Type == models.ChallengeTypeHabit {
			q = q.Where("challenges.id IN (?)",
				s.DB.Table("habit_challenges").
					Select("habit_challenges.challenge_id").
					Joins("JOIN exercises ON exercises.id = habit_challenges.exercise_id").
					Where("exercises.category = ?", sum.Category))
		} else {
			q = q.Where("challenges.id IN (?)",
				s.DB.Table("target_challenges").
					Select("target_challenges.challenge_id").
					Joins("JOIN exercises ON exercises.id = target_challenges.exercise_id").
					Where("exercises.category = ?", sum.Category))
		}
	}

	var candidates []models.Challenge
	if err := q.Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("loading similarity candidates: %w", err)
	}
	return candidates, nil
}

// IsExactDuplicate returns the first existing non-deleted challenge of the
// same type, same exercise and identical numeric parameters, or nil.
// Detection is advisory: two concurrent creations can both pass it.
func (s *ChallengeService) IsExactDuplicate(sum ChallengeSummary) (*models.Challenge, error) {
	if sum.ExerciseID == 0 {
		return nil, nil
	}

	var existing []models.Challenge
	err := s.DB.
		Preload("HabitDetails.Exercise").
		Preload("TargetDetails.Exercise").
		Where("is_deleted = ? AND challenge_type = ?", false, sum.Type).
		Find(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("scanning for duplicates: %w", err)
	}

	for i := range existing {
		c := &existing[i]
		switch sum.Type {
		case models.ChallengeTypeHabit:
			d := c.HabitDetails
			if d == nil || d.Exercise.ID == 0 {
				continue
			}
			if d.ExerciseID == sum.ExerciseID && d.DurationWeeks == sum.DurationWeeks && d.FrequencyPerWeek == sum.Frequency {
				return c, nil
			}
		case models.ChallengeTypeTarget:
			d := c.TargetDetails
			if d == nil || d.Exercise.ID == 0 {
				continue
			}
			if d.ExerciseID == sum.ExerciseID && d.DurationDays == sum.DurationDays && d.TargetValue == sum.TargetValue {
				return c, nil
			}
		}
	}
	return nil, nil
}
