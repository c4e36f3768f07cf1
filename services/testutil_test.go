package services

import (
	"testing"

	"challenge-tracking-system/cache"
	"challenge-tracking-system/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.LoginThrottle{},
		&models.PasswordResetToken{},
		&models.Exercise{},
		&models.Challenge{},
		&models.HabitChallenge{},
		&models.TargetChallenge{},
		&models.Participant{},
		&models.ProgressEntry{},
	))
	return db
}

func newTestChallengeService(t *testing.T) (*ChallengeService, *cache.MemoryCache) {
	t.Helper()
	store := cache.NewMemoryCache()
	return NewChallengeService(newTestDB(t), store), store
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		DisplayName:  email,
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedExercise(t *testing.T, db *gorm.DB, name, category string, maxSessions int, maxRate string) *models.Exercise {
	t.Helper()
	rate, err := decimal.NewFromString(maxRate)
	require.NoError(t, err)
	exercise := &models.Exercise{
		Name:              name,
		Category:          category,
		MaxSessionsPerDay: maxSessions,
		MaxRatePerMinute:  rate,
		UnitType:          models.UnitReps,
	}
	require.NoError(t, db.Create(exercise).Error)
	return exercise
}

func intPtr(v int) *int       { return &v }
func uintPtr(v uint) *uint    { return &v }
func strPtr(v string) *string { return &v }

func typePtr(v models.ChallengeType) *models.ChallengeType { return &v }

func habitPayload(title string, exerciseID uint, frequency, weeks int) *ChallengePayload {
	return &ChallengePayload{
		Title:         strPtr(title),
		ChallengeType: typePtr(models.ChallengeTypeHabit),
		Status:        strPtr(models.StatusPublished),
		HabitDetails: &HabitDetailsInput{
			ExerciseID:       uintPtr(exerciseID),
			FrequencyPerWeek: intPtr(frequency),
			DurationWeeks:    intPtr(weeks),
		},
	}
}

func targetPayload(title string, exerciseID uint, target, days int) *ChallengePayload {
	return &ChallengePayload{
		Title:         strPtr(title),
		ChallengeType: typePtr(models.ChallengeTypeTarget),
		Status:        strPtr(models.StatusPublished),
		TargetDetails: &TargetDetailsInput{
			ExerciseID:   uintPtr(exerciseID),
			TargetValue:  intPtr(target),
			DurationDays: intPtr(days),
		},
	}
}
