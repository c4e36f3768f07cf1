package services

import (
	"errors"
	"strings"

	"challenge-tracking-system/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExerciseService manages the admin-maintained exercise catalog.
type ExerciseService struct {
	DB *gorm.DB
}

func NewExerciseService(db *gorm.DB) *ExerciseService {
	return &ExerciseService{DB: db}
}

// ExercisePayload is the input for create and update. Pointer fields are
// optional on update.
type ExercisePayload struct {
	Name              *string          `json:"name"`
	MaxSessionsPerDay *int             `json:"max_sessions_per_day"`
	MaxRatePerMinute  *decimal.Decimal `json:"max_rate_per_minute"`
	UnitType          *string          `json:"unit_type"`
	Category          *string          `json:"category"`
}

func (s *ExerciseService) CreateExercise(payload *ExercisePayload) (*models.Exercise, error) {
	if payload.Name == nil || strings.TrimSpace(*payload.Name) == "" {
		return nil, validationErrorf("name is required")
	}
	if payload.MaxSessionsPerDay == nil || payload.MaxRatePerMinute == nil {
		return nil, validationErrorf("max_sessions_per_day and max_rate_per_minute are required")
	}

	exercise := &models.Exercise{
		Name:              strings.TrimSpace(*payload.Name),
		MaxSessionsPerDay: *payload.MaxSessionsPerDay,
		MaxRatePerMinute:  *payload.MaxRatePerMinute,
		UnitType:          models.UnitReps,
		Category:          models.CategoryCardio,
	}
	if payload.UnitType != nil {
		exercise.UnitType = *payload.UnitType
	}
	if payload.Category != nil {
		exercise.Category = *payload.Category
	}
	if err := s.validateFields(exercise); err != nil {
		return nil, err
	}

	if err := s.checkNameTaken(exercise.Name, 0); err != nil {
		return nil, err
	}
	if err := s.DB.Create(exercise).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Message: "an exercise with this name already exists"}
		}
		return nil, err
	}
	return exercise, nil
}

func (s *ExerciseService) UpdateExercise(id uint, payload *ExercisePayload) (*models.Exercise, error) {
	exercise, err := s.GetExercise(id)
	if err != nil {
		return nil, err
	}

	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			return nil, validationErrorf("name cannot be empty")
		}
		if err := s.checkNameTaken(name, id); err != nil {
			return nil, err
		}
		exercise.Name = name
	}
	if payload.MaxSessionsPerDay != nil {
		exercise.MaxSessionsPerDay = *payload.MaxSessionsPerDay
	}
	if payload.MaxRatePerMinute != nil {
		exercise.MaxRatePerMinute = *payload.MaxRatePerMinute
	}
	if payload.UnitType != nil {
		exercise.UnitType = *payload.UnitType
	}
	if payload.Category != nil {
		exercise.Category = *payload.Category
	}
	if err := s.validateFields(exercise); err != nil {
		return nil, err
	}

	if err := s.DB.Save(exercise).Error; err != nil {
		return nil, err
	}
	return exercise, nil
}

// DeleteExercise refuses while any challenge detail still references the
// exercise, so historical challenges never lose their limit parameters.
func (s *ExerciseService) DeleteExercise(id uint) error {
	exercise, err := s.GetExercise(id)
	if err != nil {
		return err
	}

	var habitRefs, targetRefs int64
	if err := s.DB.Model(&models.HabitChallenge{}).Where("exercise_id = ?", id).Count(&habitRefs).Error; err != nil {
		return err
	}
	if err := s.DB.Model(&models.TargetChallenge{}).Where("exercise_id = ?", id).Count(&targetRefs).Error; err != nil {
		return err
	}
	if habitRefs+targetRefs > 0 {
		return &ConflictError{Message: "exercise is referenced by existing challenges"}
	}

	return s.DB.Delete(exercise).Error
}

func (s *ExerciseService) GetExercise(id uint) (*models.Exercise, error) {
	var exercise models.Exercise
	err := s.DB.First(&exercise, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "exercise"}
	}
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}

func (s *ExerciseService) ListExercises(category string) ([]models.Exercise, error) {
	q := s.DB.Order("name")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var exercises []models.Exercise
	if err := q.Find(&exercises).Error; err != nil {
		return nil, err
	}
	return exercises, nil
}

func (s *ExerciseService) validateFields(e *models.Exercise) error {
	if e.MaxSessionsPerDay < 1 {
		return validationErrorf("max_sessions_per_day must be at least 1")
	}
	if e.MaxRatePerMinute.IsNegative() {
		return validationErrorf("max_rate_per_minute cannot be negative")
	}
	if !models.ValidUnitType(e.UnitType) {
		return validationErrorf("invalid unit_type %q", e.UnitType)
	}
	if !models.ValidCategory(e.Category) {
		return validationErrorf("invalid category %q", e.Category)
	}
	return nil
}

func (s *ExerciseService) checkNameTaken(name string, excludeID uint) error {
	var count int64
	q := s.DB.Model(&models.Exercise{}).Where("name = ?", name)
	if excludeID != 0 {
		q = q.Where("id != ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &ConflictError{Message: "an exercise with this name already exists"}
	}
	return nil
}

// loadExercise resolves an exercise referenced from challenge details,
// mapping a missing row to a validation error rather than a 404.
func (s *ChallengeService) loadExercise(id uint) (*models.Exercise, error) {
	var exercise models.Exercise
	err := s.DB.First(&exercise, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, validationErrorf("exercise %d does not exist", id)
	}
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}
