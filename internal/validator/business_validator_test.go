package validator

import (
	"testing"

	"github.com/classhub/lms-service/internal/models"
)

func TestValidateStatusTransition(t *testing.T) {
	bv := NewBusinessValidator()

	tests := []struct {
		name          string
		current       models.QuizStatus
		next          models.QuizStatus
		questionCount int
		wantErrors    bool
	}{
		{"draft to active", models.QuizDraft, models.QuizActive, 3, false},
		{"draft to archived", models.QuizDraft, models.QuizArchived, 0, false},
		{"active to archived", models.QuizActive, models.QuizArchived, 3, false},
		{"active back to draft", models.QuizActive, models.QuizDraft, 3, true},
		{"archived to active", models.QuizArchived, models.QuizActive, 3, true},
		{"archived to draft", models.QuizArchived, models.QuizDraft, 3, true},
		{"publish without questions", models.QuizDraft, models.QuizActive, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateStatusTransition(tt.current, tt.next, tt.questionCount)
			if tt.wantErrors && len(errs) == 0 {
				t.Errorf("Expected validation errors for %s -> %s", tt.current, tt.next)
			}
			if !tt.wantErrors && len(errs) > 0 {
				t.Errorf("Unexpected validation errors: %v", errs)
			}
		})
	}
}

func TestValidateStructuralEdit(t *testing.T) {
	bv := NewBusinessValidator()

	t.Run("draft without attempts is editable", func(t *testing.T) {
		errs := bv.ValidateStructuralEdit(models.QuizDraft, 0)
		if len(errs) != 0 {
			t.Errorf("Unexpected errors: %v", errs)
		}
	})

	t.Run("active quiz editable before first attempt", func(t *testing.T) {
		errs := bv.ValidateStructuralEdit(models.QuizActive, 0)
		if len(errs) != 0 {
			t.Errorf("Unexpected errors: %v", errs)
		}
	})

	t.Run("attempts freeze a published quiz", func(t *testing.T) {
		errs := bv.ValidateStructuralEdit(models.QuizActive, 2)
		if len(errs) == 0 {
			t.Error("Expected errors when attempts exist")
		}
	})
}

func TestCustomRules(t *testing.T) {
	v := New()

	type quizForm struct {
		Duration int     `validate:"quiz_duration"`
		Attempts int     `validate:"max_attempts"`
		Marks    float64 `validate:"marks_range"`
		Type     string  `validate:"question_type"`
	}

	t.Run("valid form", func(t *testing.T) {
		err := v.Validate(quizForm{Duration: 60, Attempts: 3, Marks: 10, Type: "single_choice"})
		if err != nil {
			t.Errorf("Unexpected validation error: %v", err)
		}
	})

	t.Run("duration out of range", func(t *testing.T) {
		err := v.Validate(quizForm{Duration: 4, Attempts: 1, Marks: 5, Type: "true_false"})
		if err == nil {
			t.Error("Expected validation error for short duration")
		}
	})

	t.Run("unknown question type", func(t *testing.T) {
		err := v.Validate(quizForm{Duration: 30, Attempts: 1, Marks: 5, Type: "essay"})
		if err == nil {
			t.Error("Expected validation error for unknown question type")
		}
	})

	t.Run("attempts above limit", func(t *testing.T) {
		err := v.Validate(quizForm{Duration: 30, Attempts: 11, Marks: 5, Type: "short_answer"})
		if err == nil {
			t.Error("Expected validation error for attempts above limit")
		}
	})
}
