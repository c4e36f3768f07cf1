package services

import (
	"errors"
	"testing"

	"challenge-tracking-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChallenge(t *testing.T) {
	t.Run("creates with owner participant and counter", func(t *testing.T) {
		svc, _ := newTestChallengeService(t)
		user := seedUser(t, svc.DB, "creator@example.com")
		exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 10, "5.0")

		created, err := svc.CreateChallenge(user, habitPayload("Morning Push-ups", exercise.ID, 5, 8), false)
		require.NoError(t, err)

		assert.Equal(t, "Morning Push-ups", created.Title)
		assert.Equal(t, "morning-push-ups", created.Slug)
		assert.Equal(t, models.StatusPublished, created.Status)
		assert.NotNil(t, created.PublishedAt)
		assert.Equal(t, 1, created.ActiveParticipantCount)
		require.NotNil(t, created.HabitDetails)
		assert.Equal(t, exercise.ID, created.HabitDetails.ExerciseID)

		require.Len(t, created.Participants, 1)
		assert.Equal(t, models.RoleOwner, created.Participants[0].Role)
		assert.Equal(t, models.StateActive, created.Participants[0].State)
		assert.Equal(t, user.ID, created.Participants[0].UserID)
	})

	t.Run("rejects exact duplicate", func(t *testing.T) {
		svc, _ := newTestChallengeService(t)
		user := seedUser(t, svc.DB, "creator@example.com")
		exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 10, "5.0")

		_, err := svc.CreateChallenge(user, habitPayload("First", exercise.ID, 5, 8), false)
		require.NoError(t, err)

		_, err = svc.CreateChallenge(user, habitPayload("Second", exercise.ID, 5, 8), false)
		require.Error(t, err)
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.Message, "identical challenge already exists")
	})

	t.Run("rejects similar with match list, force bypasses", func(t *testing.T) {
		svc, _ := newTestChallengeService(t)
		user := seedUser(t, svc.DB, "creator@example.com")
		exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 10, "5.0")

		_, err := svc.CreateChallenge(user, habitPayload("Existing", exercise.ID, 5, 8), false)
		require.NoError(t, err)

		// Near-identical but not exact
		_, err = svc.CreateChallenge(user, habitPayload("Close", exercise.ID, 6, 8), false)
		require.Error(t, err)
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		require.Len(t, vErr.Matches, 1)
		assert.Equal(t, "Existing", vErr.Matches[0].Title)
		assert.Equal(t, 3, vErr.Matches[0].Score)

		forced, err := svc.CreateChallenge(user, habitPayload("Close", exercise.ID, 6, 8), true)
		require.NoError(t, err)
		assert.Equal(t, "Close", forced.Title)
	})

	t.Run("rejects limit violations", func(t *testing.T) {
		svc, _ := newTestChallengeService(t)
		user := seedUser(t, svc.DB, "creator@example.com")
		exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 3, "1.0")

		_, err := svc.CreateChallenge(user, habitPayload("Too much", exercise.ID, 22, 2), false)
		require.Error(t, err)
		assert.IsType(t, &ValidationError{}, err)
	})

	t.Run("rejects a target value below one", func(t *testing.T) {
		svc, _ := newTestChallengeService(t)
		user := seedUser(t, svc.DB, "creator@example.com")
		exercise := seedExercise(t, svc.DB, "running", models.CategoryCardio, 10, "5.0")

		_, err := svc.CreateChallenge(user, targetPayload("Nothing", exercise.ID, 0, 30), true)
		require.Error(t, err)
		assert.IsType(t, &ValidationError{}, err)
		assert.Contains(t, err.Error(), "target_value")
	})

	t.Run("rejects detail payload of the wrong type", func(t *testing.T) {
		svc, _ := newTestChallengeService(t)
		user := seedUser(t, svc.DB, "creator@example.com")
		exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 10, "5.0")

		payload := habitPayload("Mixed", exercise.ID, 5, 8)
		payload.TargetDetails = &TargetDetailsInput{
			ExerciseID:   uintPtr(exercise.ID),
			TargetValue:  intPtr(100),
			DurationDays: intPtr(30),
		}
		_, err := svc.CreateChallenge(user, payload, false)
		require.Error(t, err)
	})

	t.Run("skips unknown extra participants", func(t *testing.T) {
		svc, _ := newTestChallengeService(t)
		user := seedUser(t, svc.DB, "creator@example.com")
		friend := seedUser(t, svc.DB, "friend@example.com")
		exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 10, "5.0")

		payload := habitPayload("Group", exercise.ID, 5, 8)
		payload.Participants = []ParticipantInput{
			{UserID: friend.ID},
			{UserID: 9999}, // no such user
		}
		created, err := svc.CreateChallenge(user, payload, false)
		require.NoError(t, err)

		assert.Len(t, created.Participants, 2)
		assert.Equal(t, 2, created.ActiveParticipantCount)
	})
}

func TestUpdateChallenge(t *testing.T) {
	setup := func(t *testing.T) (*ChallengeService, *models.User, *models.Exercise, *models.Challenge) {
		svc, _ := newTestChallengeService(t)
		user := seedUser(t, svc.DB, "creator@example.com")
		exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 10, "5.0")
		created, err := svc.CreateChallenge(user, habitPayload("Original", exercise.ID, 5, 8), false)
		require.NoError(t, err)
		return svc, user, exercise, created
	}

	t.Run("creator updates scalars", func(t *testing.T) {
		svc, user, _, created := setup(t)

		updated, err := svc.UpdateChallenge(created.ID, &ChallengePayload{
			Title:               strPtr("Renamed"),
			ThresholdPercentage: intPtr(75),
		}, user)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, "renamed", updated.Slug)
		assert.Equal(t, 75, updated.ThresholdPercentage)
	})

	t.Run("non-creator is refused", func(t *testing.T) {
		svc, _, _, created := setup(t)
		other := seedUser(t, svc.DB, "other@example.com")

		_, err := svc.UpdateChallenge(created.ID, &ChallengePayload{Title: strPtr("Hijack")}, other)
		require.Error(t, err)
		var uErr *UnauthorizedError
		assert.True(t, errors.As(err, &uErr))
	})

	t.Run("type cannot change through detail payload", func(t *testing.T) {
		svc, user, exercise, created := setup(t)

		_, err := svc.UpdateChallenge(created.ID, &ChallengePayload{
			TargetDetails: &TargetDetailsInput{
				ExerciseID:   uintPtr(exercise.ID),
				TargetValue:  intPtr(100),
				DurationDays: intPtr(30),
			},
		}, user)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot update type")
	})

	t.Run("published cannot return to draft", func(t *testing.T) {
		svc, user, _, created := setup(t)

		_, err := svc.UpdateChallenge(created.ID, &ChallengePayload{
			Status: strPtr(models.StatusDraft),
		}, user)
		require.Error(t, err)
	})

	t.Run("partial habit detail update keeps other fields", func(t *testing.T) {
		svc, user, _, created := setup(t)

		updated, err := svc.UpdateChallenge(created.ID, &ChallengePayload{
			HabitDetails: &HabitDetailsInput{FrequencyPerWeek: intPtr(6)},
			ForceCreate:  true,
		}, user)
		require.NoError(t, err)
		require.NotNil(t, updated.HabitDetails)
		assert.Equal(t, 6, updated.HabitDetails.FrequencyPerWeek)
		assert.Equal(t, 8, updated.HabitDetails.DurationWeeks)
	})

	t.Run("omitted target details are removed on target updates", func(t *testing.T) {
		svc, _ := newTestChallengeService(t)
		user := seedUser(t, svc.DB, "creator@example.com")
		exercise := seedExercise(t, svc.DB, "running", models.CategoryCardio, 10, "5.0")

		created, err := svc.CreateChallenge(user, targetPayload("Run 100", exercise.ID, 100, 30), false)
		require.NoError(t, err)
		require.NotNil(t, created.TargetDetails)

		updated, err := svc.UpdateChallenge(created.ID, &ChallengePayload{
			Title: strPtr("Run 100 renamed"),
		}, user)
		require.NoError(t, err)
		assert.Nil(t, updated.TargetDetails)
	})

	t.Run("participant state updates never touch role", func(t *testing.T) {
		svc, user, _, created := setup(t)

		updated, err := svc.UpdateChallenge(created.ID, &ChallengePayload{
			Participants: []ParticipantInput{
				{UserID: user.ID, State: strPtr(models.StateInactive)},
			},
		}, user)
		require.NoError(t, err)
		require.Len(t, updated.Participants, 1)
		assert.Equal(t, models.StateInactive, updated.Participants[0].State)
		assert.Equal(t, models.RoleOwner, updated.Participants[0].Role)
		assert.Equal(t, 0, updated.ActiveParticipantCount)
	})
}

func TestJoinAndLeaveChallenge(t *testing.T) {
	setup := func(t *testing.T) (*ChallengeService, *models.User, *models.Challenge) {
		svc, _ := newTestChallengeService(t)
		owner := seedUser(t, svc.DB, "owner@example.com")
		exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 10, "5.0")
		created, err := svc.CreateChallenge(owner, habitPayload("Joinable", exercise.ID, 5, 8), false)
		require.NoError(t, err)
		return svc, owner, created
	}

	t.Run("join then rejoin is rejected, leave reactivates later", func(t *testing.T) {
		svc, _, created := setup(t)
		member := seedUser(t, svc.DB, "member@example.com")

		score, err := svc.JoinChallenge(created.ID, member)
		require.NoError(t, err)
		assert.Equal(t, 20, score) // 2 active * 10

		_, err = svc.JoinChallenge(created.ID, member)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already participating")

		deleted, score, err := svc.LeaveChallenge(created.ID, member)
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.Equal(t, 10, score)

		// Rejoin after leaving reuses the membership row
		_, err = svc.JoinChallenge(created.ID, member)
		require.NoError(t, err)

		var count int64
		require.NoError(t, svc.DB.Model(&models.Participant{}).
			Where("challenge_id = ? AND user_id = ?", created.ID, member.ID).
			Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("cannot join a draft", func(t *testing.T) {
		svc, _ := newTestChallengeService(t)
		owner := seedUser(t, svc.DB, "owner@example.com")
		member := seedUser(t, svc.DB, "member@example.com")
		exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 10, "5.0")

		payload := habitPayload("Draft", exercise.ID, 5, 8)
		payload.Status = strPtr(models.StatusDraft)
		created, err := svc.CreateChallenge(owner, payload, false)
		require.NoError(t, err)

		_, err = svc.JoinChallenge(created.ID, member)
		require.Error(t, err)
		var nErr *NotFoundError
		assert.True(t, errors.As(err, &nErr))
	})

	t.Run("sole active owner leaving deletes the challenge", func(t *testing.T) {
		svc, owner, created := setup(t)

		deleted, _, err := svc.LeaveChallenge(created.ID, owner)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = svc.GetChallenge(created.ID)
		require.Error(t, err)

		var participants int64
		require.NoError(t, svc.DB.Model(&models.Participant{}).
			Where("challenge_id = ?", created.ID).Count(&participants).Error)
		assert.Zero(t, participants)
	})

	t.Run("owner with other actives cannot leave", func(t *testing.T) {
		svc, owner, created := setup(t)
		member := seedUser(t, svc.DB, "member@example.com")
		_, err := svc.JoinChallenge(created.ID, member)
		require.NoError(t, err)

		_, _, err = svc.LeaveChallenge(created.ID, owner)
		require.Error(t, err)
		var uErr *UnauthorizedError
		assert.True(t, errors.As(err, &uErr))
	})

	t.Run("leaving without membership fails", func(t *testing.T) {
		svc, _, created := setup(t)
		stranger := seedUser(t, svc.DB, "stranger@example.com")

		_, _, err := svc.LeaveChallenge(created.ID, stranger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not participating")
	})
}

func TestSoftDeleteChallenge(t *testing.T) {
	svc, _ := newTestChallengeService(t)
	owner := seedUser(t, svc.DB, "owner@example.com")
	member := seedUser(t, svc.DB, "member@example.com")
	exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 10, "5.0")

	created, err := svc.CreateChallenge(owner, habitPayload("Deletable", exercise.ID, 5, 8), false)
	require.NoError(t, err)

	t.Run("non-creator refused", func(t *testing.T) {
		err := svc.SoftDeleteChallenge(created.ID, member)
		require.Error(t, err)
		var uErr *UnauthorizedError
		assert.True(t, errors.As(err, &uErr))
	})

	t.Run("blocked while others are active", func(t *testing.T) {
		_, err := svc.JoinChallenge(created.ID, member)
		require.NoError(t, err)

		err = svc.SoftDeleteChallenge(created.ID, owner)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "active participants")
	})

	t.Run("succeeds once others left", func(t *testing.T) {
		_, _, err := svc.LeaveChallenge(created.ID, member)
		require.NoError(t, err)

		require.NoError(t, svc.SoftDeleteChallenge(created.ID, owner))
		_, err = svc.GetChallenge(created.ID)
		require.Error(t, err)
	})
}

func TestUpdateTrendingScore(t *testing.T) {
	svc, _ := newTestChallengeService(t)
	owner := seedUser(t, svc.DB, "owner@example.com")
	exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 10, "5.0")

	created, err := svc.CreateChallenge(owner, habitPayload("Trending", exercise.ID, 5, 8), false)
	require.NoError(t, err)

	require.NoError(t, svc.DB.Create(&models.ProgressEntry{
		UserID:        owner.ID,
		ChallengeID:   created.ID,
		ProgressValue: 25,
	}).Error)

	score, err := svc.UpdateTrendingScore(created)
	require.NoError(t, err)
	assert.Equal(t, 35, score) // 1 active * 10 + 25

	// Idempotent when nothing changed
	again, err := svc.UpdateTrendingScore(created)
	require.NoError(t, err)
	assert.Equal(t, score, again)
}

func TestCheckProgress(t *testing.T) {
	svc, _ := newTestChallengeService(t)
	owner := seedUser(t, svc.DB, "owner@example.com")
	exercise := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 3, "1.0")

	created, err := svc.CreateChallenge(owner, habitPayload("Check", exercise.ID, 5, 2), false)
	require.NoError(t, err)

	assert.NoError(t, svc.CheckProgress(created, 10))
	// 43 * 2 weeks > 3*7*2
	assert.Error(t, svc.CheckProgress(created, 43))

	t.Run("missing details fail", func(t *testing.T) {
		bare := &models.Challenge{ChallengeType: models.ChallengeTypeHabit}
		err := svc.CheckProgress(bare, 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "details not found")
	})
}

func TestGetFilteredChallenges(t *testing.T) {
	svc, _ := newTestChallengeService(t)
	owner := seedUser(t, svc.DB, "owner@example.com")
	strength := seedExercise(t, svc.DB, "push-ups", models.CategoryStrength, 10, "5.0")
	cardio := seedExercise(t, svc.DB, "running", models.CategoryCardio, 10, "5.0")

	_, err := svc.CreateChallenge(owner, habitPayload("Strength 8w", strength.ID, 5, 8), true)
	require.NoError(t, err)
	_, err = svc.CreateChallenge(owner, habitPayload("Strength 2w", strength.ID, 5, 2), true)
	require.NoError(t, err)
	_, err = svc.CreateChallenge(owner, targetPayload("Cardio 30d", cardio.ID, 100, 30), true)
	require.NoError(t, err)

	draft := habitPayload("Hidden draft", strength.ID, 4, 4)
	draft.Status = strPtr(models.StatusDraft)
	_, err = svc.CreateChallenge(owner, draft, true)
	require.NoError(t, err)

	t.Run("published only", func(t *testing.T) {
		list, err := svc.GetFilteredChallenges("", nil, nil, 0)
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("category filter", func(t *testing.T) {
		list, err := svc.GetFilteredChallenges(models.CategoryCardio, nil, nil, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Cardio 30d", list[0].Title)
	})

	t.Run("duration bounds", func(t *testing.T) {
		list, err := svc.GetFilteredChallenges("", intPtr(5), intPtr(10), 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Strength 8w", list[0].Title)
	})

	t.Run("exclude joined", func(t *testing.T) {
		member := seedUser(t, svc.DB, "member@example.com")
		var cardio30d models.Challenge
		require.NoError(t, svc.DB.Where("title = ?", "Cardio 30d").First(&cardio30d).Error)
		_, err := svc.JoinChallenge(cardio30d.ID, member)
		require.NoError(t, err)

		list, err := svc.GetFilteredChallenges("", nil, nil, member.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, ch := range list {
			assert.NotEqual(t, "Cardio 30d", ch.Title)
		}

		// The owner holds an active participant row on all three.
		list, err = svc.GetFilteredChallenges("", nil, nil, owner.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
