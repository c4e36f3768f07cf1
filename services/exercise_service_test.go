package services

import (
	"testing"

	"challenge-tracking-system/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decPtr(s string) *decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return &d
}

func TestExerciseCRUD(t *testing.T) {
	svc := NewExerciseService(newTestDB(t))

	created, err := svc.CreateExercise(&ExercisePayload{
		Name:              strPtr("Push-ups"),
		MaxSessionsPerDay: intPtr(10),
		MaxRatePerMinute:  decPtr("5.0"),
		UnitType:          strPtr(models.UnitReps),
		Category:          strPtr(models.CategoryStrength),
	})
	require.NoError(t, err)
	assert.Equal(t, "Push-ups", created.Name)

	t.Run("duplicate name conflicts", func(t *testing.T) {
		_, err := svc.CreateExercise(&ExercisePayload{
			Name:              strPtr("Push-ups"),
			MaxSessionsPerDay: intPtr(5),
			MaxRatePerMinute:  decPtr("2.0"),
			Category:          strPtr(models.CategoryStrength),
		})
		require.Error(t, err)
		assert.IsType(t, &ConflictError{}, err)
	})

	t.Run("field validation", func(t *testing.T) {
		_, err := svc.CreateExercise(&ExercisePayload{
			Name:              strPtr("Bad sessions"),
			MaxSessionsPerDay: intPtr(0),
			MaxRatePerMinute:  decPtr("1.0"),
			Category:          strPtr(models.CategoryStrength),
		})
		require.Error(t, err)

		_, err = svc.CreateExercise(&ExercisePayload{
			Name:              strPtr("Bad rate"),
			MaxSessionsPerDay: intPtr(1),
			MaxRatePerMinute:  decPtr("-1.0"),
			Category:          strPtr(models.CategoryStrength),
		})
		require.Error(t, err)

		_, err = svc.CreateExercise(&ExercisePayload{
			Name:              strPtr("Bad category"),
			MaxSessionsPerDay: intPtr(1),
			MaxRatePerMinute:  decPtr("1.0"),
			Category:          strPtr("juggling"),
		})
		require.Error(t, err)
	})

	t.Run("partial update", func(t *testing.T) {
		updated, err := svc.UpdateExercise(created.ID, &ExercisePayload{
			MaxSessionsPerDay: intPtr(12),
		})
		require.NoError(t, err)
		assert.Equal(t, 12, updated.MaxSessionsPerDay)
		assert.Equal(t, "Push-ups", updated.Name)
	})

	t.Run("list filters by category", func(t *testing.T) {
		_, err := svc.CreateExercise(&ExercisePayload{
			Name:              strPtr("Running"),
			MaxSessionsPerDay: intPtr(3),
			MaxRatePerMinute:  decPtr("0.3"),
			UnitType:          strPtr(models.UnitKm),
			Category:          strPtr(models.CategoryCardio),
		})
		require.NoError(t, err)

		cardio, err := svc.ListExercises(models.CategoryCardio)
		require.NoError(t, err)
		require.Len(t, cardio, 1)
		assert.Equal(t, "Running", cardio[0].Name)

		all, err := svc.ListExercises("")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestDeleteExercise(t *testing.T) {
	challengeSvc, _ := newTestChallengeService(t)
	svc := NewExerciseService(challengeSvc.DB)
	user := seedUser(t, challengeSvc.DB, "creator@example.com")
	exercise := seedExercise(t, challengeSvc.DB, "push-ups", models.CategoryStrength, 10, "5.0")

	created, err := challengeSvc.CreateChallenge(user, habitPayload("Blocker", exercise.ID, 5, 8), false)
	require.NoError(t, err)

	t.Run("blocked while referenced", func(t *testing.T) {
		err := svc.DeleteExercise(exercise.ID)
		require.Error(t, err)
		assert.IsType(t, &ConflictError{}, err)
	})

	t.Run("allowed once unreferenced", func(t *testing.T) {
		// Owner leaving as sole active participant removes the challenge
		// and its details outright.
		deleted, _, err := challengeSvc.LeaveChallenge(created.ID, user)
		require.NoError(t, err)
		require.True(t, deleted)

		require.NoError(t, svc.DeleteExercise(exercise.ID))
		_, err = svc.GetExercise(exercise.ID)
		require.Error(t, err)
		assert.IsType(t, &NotFoundError{}, err)
	})
}
