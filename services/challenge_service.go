package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"challenge-tracking-system/cache"
	"challenge-tracking-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var serviceLog = logrus.StandardLogger()

// ChallengeService owns challenge validation, duplicate detection,
// transactional create/update orchestration and the denormalized counters.
// Permission checks beyond creator-ownership belong to the callers.
type ChallengeService struct {
	DB    *gorm.DB
	Cache cache.Cache

	// scoreFn is the similarity scorer. Swappable so tests can verify it is
	// not invoked on a cache hit.
	scoreFn func(ChallengeSummary, *models.Challenge) int
}

func NewChallengeService(db *gorm.DB, c cache.Cache) *ChallengeService {
	return &ChallengeService{DB: db, Cache: c, scoreFn: scoreAgainstExisting}
}

// HabitDetailsInput carries habit detail fields; nil pointers mean
// "not supplied" so updates can be partial.
type HabitDetailsInput struct {
	ExerciseID       *uint `json:"exercise_id"`
	DurationWeeks    *int  `json:"duration_weeks"`
	FrequencyPerWeek *int  `json:"frequency_per_week"`
}

// TargetDetailsInput carries target detail fields, same partial semantics.
type TargetDetailsInput struct {
	ExerciseID   *uint `json:"exercise_id"`
	DurationDays *int  `json:"duration_days"`
	TargetValue  *int  `json:"target_value"`
}

// ParticipantInput references a user to add or update on the roster.
type ParticipantInput struct {
	UserID uint    `json:"user_id"`
	State  *string `json:"state"`
}

// ChallengePayload is the validated input for create and update.
type ChallengePayload struct {
	Title               *string               `json:"title"`
	Description         *string               `json:"description"`
	ChallengeType       *models.ChallengeType `json:"challenge_type"`
	Status              *string               `json:"status"`
	ThresholdPercentage *int                  `json:"threshold_percentage"`
	PublishSchedule     *time.Time            `json:"publish_schedule"`
	HabitDetails        *HabitDetailsInput    `json:"habit_details"`
	TargetDetails       *TargetDetailsInput   `json:"target_details"`
	Participants        []ParticipantInput    `json:"participants_data"`
	ForceCreate         bool                  `json:"force_create"`
}

// CreateChallenge validates the payload, runs duplicate/similarity
// detection unless forceCreate, then persists the challenge, its one detail
// record and the roster in a single transaction. The creator is always
// inserted as OWNER/ACTIVE.
func (s *ChallengeService) CreateChallenge(creator *models.User, payload *ChallengePayload, forceCreate bool) (*models.Challenge, error) {
	if payload.Title == nil || *payload.Title == "" {
		return nil, validationErrorf("title is required")
	}
	if payload.ChallengeType == nil {
		return nil, validationErrorf("challenge_type is required")
	}
	challengeType := *payload.ChallengeType
	if challengeType != models.ChallengeTypeHabit && challengeType != models.ChallengeTypeTarget {
		return nil, validationErrorf("unknown challenge type")
	}

	status := models.StatusDraft
	if payload.Status != nil {
		if !models.ValidStatus(*payload.Status) {
			return nil, validationErrorf("invalid status %q", *payload.Status)
		}
		status = *payload.Status
	}

	threshold := 0
	if payload.ThresholdPercentage != nil {
		threshold = *payload.ThresholdPercentage
	}
	if threshold < 0 || threshold > 100 {
		return nil, validationErrorf("threshold_percentage must be between 0 and 100")
	}

	_, sum, err := s.validateDetails(challengeType, payload)
	if err != nil {
		return nil, err
	}

	if !forceCreate {
		if err := s.rejectDuplicates(sum, 0); err != nil {
			return nil, err
		}
	}

	challenge := &models.Challenge{
		CreatorID:           creator.ID,
		Title:               *payload.Title,
		Slug:                slug.Make(*payload.Title),
		ChallengeType:       challengeType,
		Status:              status,
		ThresholdPercentage: threshold,
		PublishSchedule:     payload.PublishSchedule,
	}
	if payload.Description != nil {
		challenge.Description = *payload.Description
	}
	if status == models.StatusPublished {
		now := time.Now()
		challenge.PublishedAt = &now
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("HabitDetails", "TargetDetails", "Participants", "Creator").Create(challenge).Error; err != nil {
			return err
		}

		if err := s.createDetails(tx, challenge, payload); err != nil {
			return err
		}

		owner := models.Participant{
			ID:          uuid.NewString(),
			ChallengeID: challenge.ID,
			UserID:      creator.ID,
			Role:        models.RoleOwner,
			State:       models.StateActive,
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}

		if err := s.reconcileParticipants(tx, challenge, payload.Participants); err != nil {
			return err
		}

		return s.recomputeActiveCount(tx, challenge)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Message: "challenge creation collided with a concurrent write"}
		}
		return nil, fmt.Errorf("creating challenge: %w", err)
	}

	serviceLog.WithFields(logrus.Fields{"id": challenge.ID, "title": challenge.Title}).Info("[Challenge] created")
	return s.GetChallenge(challenge.ID)
}

// UpdateChallenge applies scalar and detail updates for the creator.
// challenge_type is immutable: detail data for the other type fails
// validation instead of switching type.
func (s *ChallengeService) UpdateChallenge(challengeID uint, payload *ChallengePayload, actingUser *models.User) (*models.Challenge, error) {
	challenge, err := s.GetChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.CreatorID != actingUser.ID {
		return nil, &UnauthorizedError{Message: "only the creator may perform this action"}
	}

	if payload.HabitDetails != nil && challenge.ChallengeType != models.ChallengeTypeHabit {
		return nil, validationErrorf("cannot update type from target to habit")
	}
	if payload.TargetDetails != nil && challenge.ChallengeType != models.ChallengeTypeTarget {
		return nil, validationErrorf("cannot update type from habit to target")
	}

	// Re-validate limits and re-run duplicate detection on the merged
	// detail values whenever detail data is supplied.
	if payload.HabitDetails != nil || payload.TargetDetails != nil {
		sum, err := s.mergedSummary(challenge, payload)
		if err != nil {
			return nil, err
		}
		if !payload.ForceCreate {
			if err := s.rejectDuplicates(sum, challenge.ID); err != nil {
				return nil, err
			}
		}
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if payload.Title != nil && *payload.Title != "" {
			updates["title"] = *payload.Title
			updates["slug"] = slug.Make(*payload.Title)
		}
		if payload.Description != nil {
			updates["description"] = *payload.Description
		}
		if payload.ThresholdPercentage != nil {
			if *payload.ThresholdPercentage < 0 || *payload.ThresholdPercentage > 100 {
				return validationErrorf("threshold_percentage must be between 0 and 100")
			}
			updates["threshold_percentage"] = *payload.ThresholdPercentage
		}
		if payload.PublishSchedule != nil {
			updates["publish_schedule"] = *payload.PublishSchedule
		}
		if payload.Status != nil {
			if !models.ValidStatus(*payload.Status) {
				return validationErrorf("invalid status %q", *payload.Status)
			}
			if challenge.Status == models.StatusPublished && *payload.Status == models.StatusDraft {
				return validationErrorf("a published challenge cannot return to draft")
			}
			updates["status"] = *payload.Status
			if *payload.Status == models.StatusPublished && challenge.PublishedAt == nil {
				updates["published_at"] = time.Now()
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(challenge).Updates(updates).Error; err != nil {
				return err
			}
		}

		if err := s.upsertDetails(tx, challenge, payload); err != nil {
			return err
		}

		if err := s.reconcileParticipants(tx, challenge, payload.Participants); err != nil {
			return err
		}

		return s.recomputeActiveCount(tx, challenge)
	})
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return nil, vErr
		}
		return nil, fmt.Errorf("updating challenge %d: %w", challengeID, err)
	}

	return s.GetChallenge(challengeID)
}

// validateDetails checks detail presence for the declared type, loads the
// referenced exercise and runs the limit validator. Returns the exercise
// and the comparison summary.
func (s *ChallengeService) validateDetails(challengeType models.ChallengeType, payload *ChallengePayload) (*models.Exercise, ChallengeSummary, error) {
	sum := ChallengeSummary{Type: challengeType}

	switch challengeType {
	case models.ChallengeTypeHabit:
		d := payload.HabitDetails
		if payload.TargetDetails != nil {
			return nil, sum, validationErrorf("target_details are not valid for a habit challenge")
		}
		if d == nil || d.ExerciseID == nil {
			return nil, sum, validationErrorf("habit_details with an exercise must be provided")
		}
		if d.FrequencyPerWeek == nil || d.DurationWeeks == nil {
			return nil, sum, validationErrorf("frequency_per_week and duration_weeks must be provided")
		}
		exercise, err := s.loadExercise(*d.ExerciseID)
		if err != nil {
			return nil, sum, err
		}
		if err := CheckHabitLimits(exercise, *d.FrequencyPerWeek, *d.DurationWeeks); err != nil {
			return nil, sum, err
		}
		sum.Category = exercise.Category
		sum.Frequency = *d.FrequencyPerWeek
		sum.DurationWeeks = *d.DurationWeeks
		sum.ExerciseID = exercise.ID
		return exercise, sum, nil

	default: // target
		d := payload.TargetDetails
		if payload.HabitDetails != nil {
			return nil, sum, validationErrorf("habit_details are not valid for a target challenge")
		}
		if d == nil || d.ExerciseID == nil {
			return nil, sum, validationErrorf("target_details with an exercise must be provided")
		}
		if d.TargetValue == nil || d.DurationDays == nil {
			return nil, sum, validationErrorf("target_value and duration_days must be provided")
		}
		if *d.TargetValue < 1 {
			return nil, sum, validationErrorf("target_value must be >= 1")
		}
		exercise, err := s.loadExercise(*d.ExerciseID)
		if err != nil {
			return nil, sum, err
		}
		if err := CheckTargetLimits(exercise, *d.TargetValue, *d.DurationDays); err != nil {
			return nil, sum, err
		}
		sum.Category = exercise.Category
		sum.TargetValue = *d.TargetValue
		sum.DurationDays = *d.DurationDays
		sum.ExerciseID = exercise.ID
		return exercise, sum, nil
	}
}

// mergedSummary folds a partial detail update onto the existing detail
// record, validates the merged values and returns their summary.
func (s *ChallengeService) mergedSummary(challenge *models.Challenge, payload *ChallengePayload) (ChallengeSummary, error) {
	sum := ChallengeSummary{Type: challenge.ChallengeType}

	if challenge.ChallengeType == models.ChallengeTypeHabit {
		d := payload.HabitDetails
		exerciseID, frequency, weeks := uint(0), 0, 0
		if existing := challenge.HabitDetails; existing != nil {
			exerciseID, frequency, weeks = existing.ExerciseID, existing.FrequencyPerWeek, existing.DurationWeeks
		}
		if d.ExerciseID != nil {
			exerciseID = *d.ExerciseID
		}
		if d.FrequencyPerWeek != nil {
			frequency = *d.FrequencyPerWeek
		}
		if d.DurationWeeks != nil {
			weeks = *d.DurationWeeks
		}
		if exerciseID == 0 {
			return sum, validationErrorf("habit_details must reference an exercise")
		}
		exercise, err := s.loadExercise(exerciseID)
		if err != nil {
			return sum, err
		}
		if err := CheckHabitLimits(exercise, frequency, weeks); err != nil {
			return sum, err
		}
		sum.Category = exercise.Category
		sum.Frequency = frequency
		sum.DurationWeeks = weeks
		sum.ExerciseID = exercise.ID
		return sum, nil
	}

	d := payload.TargetDetails
	exerciseID, target, days := uint(0), 0, 0
	if existing := challenge.TargetDetails; existing != nil {
		exerciseID, target, days = existing.ExerciseID, existing.TargetValue, existing.DurationDays
	}
	if d.ExerciseID != nil {
		exerciseID = *d.ExerciseID
	}
	if d.TargetValue != nil {
		target = *d.TargetValue
	}
	if d.DurationDays != nil {
		days = *d.DurationDays
	}
	if exerciseID == 0 {
		return sum, validationErrorf("target_details must reference an exercise")
	}
	exercise, err := s.loadExercise(exerciseID)
	if err != nil {
		return sum, err
	}
	if err := CheckTargetLimits(exercise, target, days); err != nil {
		return sum, err
	}
	sum.Category = exercise.Category
	sum.TargetValue = target
	sum.DurationDays = days
	sum.ExerciseID = exercise.ID
	return sum, nil
}

// rejectDuplicates fails on an exact duplicate, then on any similar match,
// surfacing the candidate list so the caller can offer force-create.
func (s *ChallengeService) rejectDuplicates(sum ChallengeSummary, excludeID uint) error {
	duplicate, err := s.IsExactDuplicate(sum)
	if err != nil {
		return err
	}
	if duplicate != nil && duplicate.ID != excludeID {
		return validationErrorf("an identical challenge already exists: %s", duplicate.Title)
	}

	similar, err := s.FindSimilar(context.Background(), sum, excludeID)
	if err != nil {
		return err
	}
	if len(similar) > 0 {
		matches := make([]SimilarMatch, 0, len(similar))
		for _, sc := range similar {
			matches = append(matches, SimilarMatch{ID: sc.Challenge.ID, Title: sc.Challenge.Title, Score: sc.Score})
		}
		return &ValidationError{Message: "similar challenge exists", Matches: matches}
	}
	return nil
}

func (s *ChallengeService) createDetails(tx *gorm.DB, challenge *models.Challenge, payload *ChallengePayload) error {
	if challenge.ChallengeType == models.ChallengeTypeHabit {
		d := payload.HabitDetails
		return tx.Create(&models.HabitChallenge{
			ChallengeID:      challenge.ID,
			ExerciseID:       *d.ExerciseID,
			DurationWeeks:    *d.DurationWeeks,
			FrequencyPerWeek: *d.FrequencyPerWeek,
		}).Error
	}
	d := payload.TargetDetails
	return tx.Create(&models.TargetChallenge{
		ChallengeID:  challenge.ID,
		ExerciseID:   *d.ExerciseID,
		DurationDays: *d.DurationDays,
		TargetValue:  *d.TargetValue,
	}).Error
}

// upsertDetails creates or partially updates the existing-type detail
// record. A target-type update that carries no target data deletes the
// target-details record; there is deliberately no habit counterpart.
func (s *ChallengeService) upsertDetails(tx *gorm.DB, challenge *models.Challenge, payload *ChallengePayload) error {
	if challenge.ChallengeType == models.ChallengeTypeHabit {
		d := payload.HabitDetails
		if d == nil {
			return nil
		}
		existing := challenge.HabitDetails
		if existing == nil {
			if d.ExerciseID == nil || d.DurationWeeks == nil || d.FrequencyPerWeek == nil {
				return validationErrorf("habit_details require exercise_id, duration_weeks and frequency_per_week")
			}
			return tx.Create(&models.HabitChallenge{
				ChallengeID:      challenge.ID,
				ExerciseID:       *d.ExerciseID,
				DurationWeeks:    *d.DurationWeeks,
				FrequencyPerWeek: *d.FrequencyPerWeek,
			}).Error
		}
		updates := map[string]any{}
		if d.ExerciseID != nil {
			updates["exercise_id"] = *d.ExerciseID
		}
		if d.DurationWeeks != nil {
			updates["duration_weeks"] = *d.DurationWeeks
		}
		if d.FrequencyPerWeek != nil {
			updates["frequency_per_week"] = *d.FrequencyPerWeek
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.HabitChallenge{}).Where("challenge_id = ?", challenge.ID).Updates(updates).Error
	}

	d := payload.TargetDetails
	if d == nil {
		if challenge.TargetDetails != nil {
			return tx.Where("challenge_id = ?", challenge.ID).Delete(&models.TargetChallenge{}).Error
		}
		return nil
	}
	existing := challenge.TargetDetails
	if existing == nil {
		if d.ExerciseID == nil || d.DurationDays == nil || d.TargetValue == nil {
			return validationErrorf("target_details require exercise_id, duration_days and target_value")
		}
		return tx.Create(&models.TargetChallenge{
			ChallengeID:  challenge.ID,
			ExerciseID:   *d.ExerciseID,
			DurationDays: *d.DurationDays,
			TargetValue:  *d.TargetValue,
		}).Error
	}
	updates := map[string]any{}
	if d.ExerciseID != nil {
		updates["exercise_id"] = *d.ExerciseID
	}
	if d.DurationDays != nil {
		updates["duration_days"] = *d.DurationDays
	}
	if d.TargetValue != nil {
		updates["target_value"] = *d.TargetValue
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&models.TargetChallenge{}).Where("challenge_id = ?", challenge.ID).Updates(updates).Error
}

// reconcileParticipants creates missing roster rows with the default
// PARTICIPANT/ACTIVE and updates state (never role) for existing ones.
// Unknown user ids are skipped, not fatal.
func (s *ChallengeService) reconcileParticipants(tx *gorm.DB, challenge *models.Challenge, inputs []ParticipantInput) error {
	for _, in := range inputs {
		var user models.User
		if err := tx.First(&user, in.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				serviceLog.WithField("user_id", in.UserID).Warn("[Challenge] participant user not found, skipping")
				continue
			}
			return err
		}

		var participant models.Participant
		err := tx.Where("challenge_id = ? AND user_id = ?", challenge.ID, user.ID).First(&participant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			participant = models.Participant{
				ID:          uuid.NewString(),
				ChallengeID: challenge.ID,
				UserID:      user.ID,
				Role:        models.RoleParticipant,
				State:       models.StateActive,
			}
			if in.State != nil && models.ValidParticipantState(*in.State) {
				participant.State = *in.State
			}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		if in.State != nil && models.ValidParticipantState(*in.State) && participant.State != *in.State {
			if err := tx.Model(&participant).Update("state", *in.State).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// recomputeActiveCount fully recomputes the denormalized active counter.
// Never incremented in place, so concurrent lost updates cannot drift it.
func (s *ChallengeService) recomputeActiveCount(tx *gorm.DB, challenge *models.Challenge) error {
	var active int64
	err := tx.Model(&models.Participant{}).
		Where("challenge_id = ? AND state = ?", challenge.ID, models.StateActive).
		Count(&active).Error
	if err != nil {
		return err
	}
	if challenge.ActiveParticipantCount != int(active) {
		challenge.ActiveParticipantCount = int(active)
		return tx.Model(&models.Challenge{}).Where("id = ?", challenge.ID).
			Update("active_participant_count", active).Error
	}
	return nil
}

// UpdateTrendingScore recomputes and persists the trending score:
// active participants * 10 + total logged progress. Pure function of the
// current state, so recomputing twice with no mutation in between yields
// the same value.
func (s *ChallengeService) UpdateTrendingScore(challenge *models.Challenge) (int, error) {
	var active int64
	err := s.DB.Model(&models.Participant{}).
		Where("challenge_id = ? AND state = ?", challenge.ID, models.StateActive).
		Count(&active).Error
	if err != nil {
		return 0, err
	}

	var totalProgress int64
	err = s.DB.Model(&models.ProgressEntry{}).
		Where("challenge_id = ?", challenge.ID).
		Select("COALESCE(SUM(progress_value), 0)").
		Scan(&totalProgress).Error
	if err != nil {
		return 0, err
	}

	score := int(active)*10 + int(totalProgress)
	challenge.TrendingScore = score
	err = s.DB.Model(&models.Challenge{}).Where("id = ?", challenge.ID).
		Update("trending_score", score).Error
	if err != nil {
		return 0, err
	}
	return score, nil
}

// CheckProgress validates a candidate progress value through the same limit
// checks used at creation, with the value substituted for the frequency or
// target parameter. Fails if the challenge lacks its declared-type detail.
func (s *ChallengeService) CheckProgress(challenge *models.Challenge, progressValue int) error {
	switch challenge.ChallengeType {
	case models.ChallengeTypeHabit:
		d := challenge.HabitDetails
		if d == nil {
			return validationErrorf("habit challenge details not found")
		}
		return CheckHabitLimits(&d.Exercise, progressValue, d.DurationWeeks)
	case models.ChallengeTypeTarget:
		d := challenge.TargetDetails
		if d == nil {
			return validationErrorf("target challenge details not found")
		}
		return CheckTargetLimits(&d.Exercise, progressValue, d.DurationDays)
	}
	return validationErrorf("unknown challenge type")
}

// JoinChallenge adds the user to a published challenge, reactivating a
// previous membership if one exists. Returns the recomputed trending score.
func (s *ChallengeService) JoinChallenge(challengeID uint, user *models.User) (int, error) {
	var challenge models.Challenge
	err := s.DB.Where("id = ? AND status = ? AND is_deleted = ?", challengeID, models.StatusPublished, false).
		First(&challenge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, &NotFoundError{Resource: "challenge"}
	}
	if err != nil {
		return 0, err
	}

	var participant models.Participant
	err = s.DB.Where("challenge_id = ? AND user_id = ?", challenge.ID, user.ID).First(&participant).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		participant = models.Participant{
			ID:          uuid.NewString(),
			ChallengeID: challenge.ID,
			UserID:      user.ID,
			Role:        models.RoleParticipant,
			State:       models.StateActive,
		}
		if err := s.DB.Create(&participant).Error; err != nil {
			return 0, err
		}
	case err != nil:
		return 0, err
	case participant.State == models.StateActive:
		return 0, validationErrorf("already participating")
	default:
		err = s.DB.Model(&participant).
			Updates(map[string]any{"state": models.StateActive, "joined_at": time.Now()}).Error
		if err != nil {
			return 0, err
		}
	}

	if err := s.recomputeActiveCount(s.DB, &challenge); err != nil {
		return 0, err
	}
	return s.UpdateTrendingScore(&challenge)
}

// LeaveChallenge removes the user's active participation. An owner who is
// the sole active participant deletes the challenge outright; an owner with
// other active participants may not leave. Returns whether the challenge
// was deleted and the recomputed trending score otherwise.
func (s *ChallengeService) LeaveChallenge(challengeID uint, user *models.User) (bool, int, error) {
	var participant models.Participant
	err := s.DB.Where("challenge_id = ? AND user_id = ? AND state = ?", challengeID, user.ID, models.StateActive).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, 0, validationErrorf("not participating")
	}
	if err != nil {
		return false, 0, err
	}

	if participant.Role == models.RoleOwner {
		var active int64
		err := s.DB.Model(&models.Participant{}).
			Where("challenge_id = ? AND state = ?", challengeID, models.StateActive).
			Count(&active).Error
		if err != nil {
			return false, 0, err
		}
		if active == 1 {
			if err := s.hardDeleteChallenge(challengeID); err != nil {
				return false, 0, err
			}
			serviceLog.WithField("id", challengeID).Info("[Challenge] deleted after sole owner left")
			return true, 0, nil
		}
		return false, 0, &UnauthorizedError{
			Message: fmt.Sprintf("cannot leave challenge: %d other participant(s) are active", active-1),
		}
	}

	if err := s.DB.Model(&participant).Update("state", models.StateLeft).Error; err != nil {
		return false, 0, err
	}

	var challenge models.Challenge
	if err := s.DB.First(&challenge, challengeID).Error; err != nil {
		return false, 0, err
	}
	if err := s.recomputeActiveCount(s.DB, &challenge); err != nil {
		return false, 0, err
	}
	score, err := s.UpdateTrendingScore(&challenge)
	return false, score, err
}

// hardDeleteChallenge removes the challenge and everything hanging off it,
// in dependency order, in one transaction.
func (s *ChallengeService) hardDeleteChallenge(challengeID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("challenge_id = ?", challengeID).Delete(&models.ProgressEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("challenge_id = ?", challengeID).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("challenge_id = ?", challengeID).Delete(&models.HabitChallenge{}).Error; err != nil {
			return err
		}
		if err := tx.Where("challenge_id = ?", challengeID).Delete(&models.TargetChallenge{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Challenge{}, challengeID).Error
	})
}

// SoftDeleteChallenge flags the challenge deleted. Creator-only, and only
// while no other participant is still active.
func (s *ChallengeService) SoftDeleteChallenge(challengeID uint, actingUser *models.User) error {
	challenge, err := s.GetChallenge(challengeID)
	if err != nil {
		return err
	}
	if challenge.CreatorID != actingUser.ID {
		return &UnauthorizedError{Message: "only the creator may perform this action"}
	}

	var others int64
	err = s.DB.Model(&models.Participant{}).
		Where("challenge_id = ? AND state = ? AND user_id != ?", challengeID, models.StateActive, actingUser.ID).
		Count(&others).Error
	if err != nil {
		return err
	}
	if others > 0 {
		return validationErrorf("cannot delete challenge with other active participants")
	}

	return s.DB.Model(&models.Challenge{}).Where("id = ?", challengeID).
		Update("is_deleted", true).Error
}

// GetChallenge loads a non-deleted challenge with its details, exercises
// and roster.
func (s *ChallengeService) GetChallenge(id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.DB.
		Preload("HabitDetails.Exercise").
		Preload("TargetDetails.Exercise").
		Preload("Participants").
		Where("is_deleted = ?", false).
		First(&challenge, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "challenge"}
	}
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

// GetFilteredChallenges lists published, non-deleted challenges, optionally
// narrowed by exercise category and by duration bounds (weeks for habit,
// days for target). A non-zero excludeUserID drops challenges that user is
// already actively participating in.
func (s *ChallengeService) GetFilteredChallenges(category string, minDuration, maxDuration *int, excludeUserID uint) ([]models.Challenge, error) {
	q := s.DB.
		Preload("HabitDetails.Exercise").
		Preload("TargetDetails.Exercise").
		Where("challenges.is_deleted = ? AND challenges.status = ?", false, models.StatusPublished)

	if category != "" {
		q = q.Where(
			"challenges.id IN (?) OR challenges.id IN (?)",
			s.DB.Table("habit_challenges").
				Select("habit_challenges.challenge_id").
				Joins("JOIN exercises ON exercises.id = habit_challenges.exercise_id").
				Where("exercises.category = ?", category),
			s.DB.Table("target_challenges").
				Select("target_challenges.challenge_id").
				Joins("JOIN exercises ON exercises.id = target_challenges.exercise_id").
				Where("exercises.category = ?", category),
		)
	}
	if minDuration != nil {
		q = q.Where(
			"challenges.id IN (?) OR challenges.id IN (?)",
			s.DB.Table("habit_challenges").Select("challenge_id").Where("duration_weeks >= ?", *minDuration),
			s.DB.Table("target_challenges").Select("challenge_id").Where("duration_days >= ?", *minDuration),
		)
	}
	if maxDuration != nil {
		q = q.Where(
			"challenges.id IN (?) OR challenges.id IN (?)",
			s.DB.Table("habit_challenges").Select("challenge_id").Where("duration_weeks <= ?", *maxDuration),
			s.DB.Table("target_challenges").Select("challenge_id").Where("duration_days <= ?", *maxDuration),
		)
	}
	if excludeUserID != 0 {
		q = q.Where(
			"challenges.id NOT IN (?)",
			s.DB.Table("participants").Select("challenge_id").
				Where("user_id = ? AND state = ?", excludeUserID, models.StateActive),
		)
	}

	var challenges []models.Challenge
	if err := q.Order("challenges.created_at, challenges.id").Find(&challenges).Error; err != nil {
		return nil, err
	}
	return challenges, nil
}

// GetUserChallenges lists non-deleted challenges the user created or
// actively participates in.
func (s *ChallengeService) GetUserChallenges(user *models.User) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := s.DB.
		Preload("HabitDetails.Exercise").
		Preload("TargetDetails.Exercise").
		Where("challenges.is_deleted = ?", false).
		Where(
			"challenges.creator_id = ? OR challenges.id IN (?)",
			user.ID,
			s.DB.Table("participants").Select("challenge_id").
				Where("user_id = ? AND state = ?", user.ID, models.StateActive),
		).
		Order("challenges.created_at, challenges.id").
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}
