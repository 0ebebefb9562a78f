package validator

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/classhub/lms-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateStatusTransition validates quiz status transitions. Status moves
// forward only: draft -> active -> archived.
func (bv *BusinessValidator) ValidateStatusTransition(currentStatus, newStatus models.QuizStatus, questionCount int) ValidationErrors {
	var errors ValidationErrors

	allowedTransitions := map[models.QuizStatus][]models.QuizStatus{
		models.QuizDraft:    {models.QuizActive, models.QuizArchived},
		models.QuizActive:   {models.QuizArchived},
		models.QuizArchived: {}, // No transitions from archived
	}

	allowed := false
	for _, allowedStatus := range allowedTransitions[currentStatus] {
		if newStatus == allowedStatus {
			allowed = true
			break
		}
	}

	if !allowed {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", currentStatus, newStatus),
			Value:   newStatus,
			Rule:    "status_transition",
		})
	}

	// Publishing requires at least one question
	if newStatus == models.QuizActive && questionCount == 0 {
		errors = append(errors, ValidationError{
			Field:   "questions",
			Message: "quiz must have at least one question before publishing",
			Value:   questionCount,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateStructuralEdit checks whether quiz structure (questions, options,
// marks) may still be modified. A draft quiz is always editable; a published
// quiz stays editable only until its first attempt.
func (bv *BusinessValidator) ValidateStructuralEdit(status models.QuizStatus, attemptCount int64) ValidationErrors {
	var errors ValidationErrors

	if status != models.QuizDraft && attemptCount > 0 {
		errors = append(errors, ValidationError{
			Field:   "attempts",
			Message: "quiz structure cannot be changed after attempts exist",
			Value:   attemptCount,
			Rule:    "structural_edit",
		})
	}

	return errors
}

// ValidateDeletePermission validates if a quiz can be deleted
func (bv *BusinessValidator) ValidateDeletePermission(hasAttempts bool, status models.QuizStatus) ValidationErrors {
	var errors ValidationErrors

	if hasAttempts {
		errors = append(errors, ValidationError{
			Field:   "attempts",
			Message: "cannot delete quiz with existing attempts",
			Value:   hasAttempts,
			Rule:    "business_logic",
		})
	}

	if status == models.QuizActive {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "cannot delete active quiz",
			Value:   status,
			Rule:    "business_logic",
		})
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Quiz duration validation (5-300 minutes)
	bv.validate.RegisterValidation("quiz_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Int()
		return duration >= 5 && duration <= 300
	})

	// Max attempts validation (1-10)
	bv.validate.RegisterValidation("max_attempts", func(fl validator.FieldLevel) bool {
		attempts := fl.Field().Int()
		return attempts >= 1 && attempts <= 10
	})

	// Title validation (1-200 characters)
	bv.validate.RegisterValidation("quiz_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	// Marks range validation
	bv.validate.RegisterValidation("marks_range", func(fl validator.FieldLevel) bool {
		marks := fl.Field().Float()
		return marks >= 0 && marks <= 100
	})

	// Date validation (must be in future)
	bv.validate.RegisterValidation("future_date", func(fl validator.FieldLevel) bool {
		field := fl.Field()

		if field.Kind() == reflect.Ptr && field.IsNil() {
			return true // Optional field
		}

		var date time.Time
		if field.Kind() == reflect.Ptr {
			date = field.Elem().Interface().(time.Time)
		} else {
			date = field.Interface().(time.Time)
		}

		return date.After(time.Now())
	})

	// Question type validation
	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		qType := fl.Field().String()
		validTypes := []models.QuestionType{models.SingleChoice, models.MultipleChoice, models.TrueFalse, models.ShortAnswer}
		for _, vt := range validTypes {
			if models.QuestionType(qType) == vt {
				return true
			}
		}
		return false
	})
}
