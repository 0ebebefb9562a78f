package services

import (
	"encoding/json"
	"testing"

	"github.com/classhub/lms-service/internal/models"
)

func marshalContent(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestValidateQuestionContent(t *testing.T) {
	options := []models.ChoiceOption{
		{ID: "a", Text: "Option A", Order: 1},
		{ID: "b", Text: "Option B", Order: 2},
	}

	t.Run("valid single choice", func(t *testing.T) {
		content := marshalContent(t, models.SingleChoiceContent{Options: options, CorrectAnswer: "a"})
		if err := validateQuestionContent(models.SingleChoice, content); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("single choice answer must be an option", func(t *testing.T) {
		content := marshalContent(t, models.SingleChoiceContent{Options: options, CorrectAnswer: "z"})
		if err := validateQuestionContent(models.SingleChoice, content); err == nil {
			t.Error("expected error for dangling correct answer")
		}
	})

	t.Run("single choice needs two options", func(t *testing.T) {
		content := marshalContent(t, models.SingleChoiceContent{Options: options[:1], CorrectAnswer: "a"})
		if err := validateQuestionContent(models.SingleChoice, content); err == nil {
			t.Error("expected error for single option")
		}
	})

	t.Run("valid multiple choice", func(t *testing.T) {
		content := marshalContent(t, models.MultipleChoiceContent{Options: options, CorrectAnswers: []string{"a", "b"}})
		if err := validateQuestionContent(models.MultipleChoice, content); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("multiple choice needs a correct answer", func(t *testing.T) {
		content := marshalContent(t, models.MultipleChoiceContent{Options: options})
		if err := validateQuestionContent(models.MultipleChoice, content); err == nil {
			t.Error("expected error for empty answer key")
		}
	})

	t.Run("valid true false", func(t *testing.T) {
		content := marshalContent(t, models.TrueFalseContent{CorrectAnswer: true})
		if err := validateQuestionContent(models.TrueFalse, content); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("short answer needs accepted answers", func(t *testing.T) {
		content := marshalContent(t, models.ShortAnswerContent{})
		if err := validateQuestionContent(models.ShortAnswer, content); err == nil {
			t.Error("expected error for empty accepted answers")
		}

		content = marshalContent(t, models.ShortAnswerContent{AcceptedAnswers: []string{"Paris"}})
		if err := validateQuestionContent(models.ShortAnswer, content); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		if err := validateQuestionContent(models.SingleChoice, []byte("{not json")); err == nil {
			t.Error("expected error for malformed content")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if err := validateQuestionContent(models.QuestionType("essay"), []byte("{}")); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}
