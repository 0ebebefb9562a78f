package services

import (
	"encoding/json"
	"testing"

	"gorm.io/datatypes"

	"github.com/classhub/lms-service/internal/models"
)

func mustJSON(t *testing.T, v interface{}) datatypes.JSON {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return datatypes.JSON(data)
}

func rawAnswer(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return data
}

func singleChoiceQuestion(t *testing.T, id uint, correct string, marks float64) *models.Question {
	q := &models.Question{
		Type:  models.SingleChoice,
		Text:  "Pick one",
		Marks: marks,
		Content: mustJSON(t, models.SingleChoiceContent{
			Options: []models.ChoiceOption{
				{ID: "A", Text: "Alpha", Order: 1},
				{ID: "B", Text: "Beta", Order: 2},
				{ID: "C", Text: "Gamma", Order: 3},
			},
			CorrectAnswer: correct,
		}),
	}
	q.ID = id
	return q
}

func TestGradeAnswer_SingleChoice(t *testing.T) {
	s := NewScorer()
	q := singleChoiceQuestion(t, 1, "B", 5)

	t.Run("correct answer earns full marks", func(t *testing.T) {
		awarded, correct, err := s.GradeAnswer(q, rawAnswer(t, "B"))
		if err != nil {
			t.Fatalf("GradeAnswer failed: %v", err)
		}
		if !correct || awarded != 5 {
			t.Errorf("Expected 5 marks and correct, got %.1f correct=%v", awarded, correct)
		}
	})

	t.Run("wrong answer earns zero", func(t *testing.T) {
		awarded, correct, err := s.GradeAnswer(q, rawAnswer(t, "A"))
		if err != nil {
			t.Fatalf("GradeAnswer failed: %v", err)
		}
		if correct || awarded != 0 {
			t.Errorf("Expected 0 marks, got %.1f correct=%v", awarded, correct)
		}
	})

	t.Run("whitespace and case are normalized", func(t *testing.T) {
		awarded, correct, err := s.GradeAnswer(q, rawAnswer(t, "  b "))
		if err != nil {
			t.Fatalf("GradeAnswer failed: %v", err)
		}
		if !correct || awarded != 5 {
			t.Errorf("Expected normalized match, got %.1f correct=%v", awarded, correct)
		}
	})

	t.Run("no answer earns zero without error", func(t *testing.T) {
		awarded, correct, err := s.GradeAnswer(q, nil)
		if err != nil {
			t.Fatalf("GradeAnswer failed: %v", err)
		}
		if correct || awarded != 0 {
			t.Errorf("Expected 0 for unanswered, got %.1f correct=%v", awarded, correct)
		}
	})
}

func TestGradeAnswer_MultipleChoice_AllOrNothing(t *testing.T) {
	s := NewScorer()
	q := &models.Question{
		Type:  models.MultipleChoice,
		Text:  "Pick all that apply",
		Marks: 4,
		Content: mustJSON(t, models.MultipleChoiceContent{
			Options: []models.ChoiceOption{
				{ID: "A", Text: "Alpha", Order: 1},
				{ID: "B", Text: "Beta", Order: 2},
				{ID: "C", Text: "Gamma", Order: 3},
			},
			CorrectAnswers: []string{"A", "C"},
		}),
	}
	q.ID = 2

	t.Run("exact set earns full marks", func(t *testing.T) {
		awarded, correct, err := s.GradeAnswer(q, rawAnswer(t, []string{"C", "A"}))
		if err != nil {
			t.Fatalf("GradeAnswer failed: %v", err)
		}
		if !correct || awarded != 4 {
			t.Errorf("Expected 4 marks for exact set, got %.1f correct=%v", awarded, correct)
		}
	})

	t.Run("subset earns zero", func(t *testing.T) {
		awarded, correct, err := s.GradeAnswer(q, rawAnswer(t, []string{"A"}))
		if err != nil {
			t.Fatalf("GradeAnswer failed: %v", err)
		}
		if correct || awarded != 0 {
			t.Errorf("Expected 0 marks for partial selection, got %.1f correct=%v", awarded, correct)
		}
	})

	t.Run("superset earns zero", func(t *testing.T) {
		awarded, _, err := s.GradeAnswer(q, rawAnswer(t, []string{"A", "B", "C"}))
		if err != nil {
			t.Fatalf("GradeAnswer failed: %v", err)
		}
		if awarded != 0 {
			t.Errorf("Expected 0 marks for extra selection, got %.1f", awarded)
		}
	})
}

func TestGradeAnswer_TrueFalse(t *testing.T) {
	s := NewScorer()
	q := &models.Question{
		Type:    models.TrueFalse,
		Text:    "The sky is blue",
		Marks:   2,
		Content: mustJSON(t, models.TrueFalseContent{CorrectAnswer: true}),
	}
	q.ID = 3

	awarded, correct, err := s.GradeAnswer(q, rawAnswer(t, true))
	if err != nil {
		t.Fatalf("GradeAnswer failed: %v", err)
	}
	if !correct || awarded != 2 {
		t.Errorf("Expected full marks, got %.1f correct=%v", awarded, correct)
	}

	awarded, correct, err = s.GradeAnswer(q, rawAnswer(t, false))
	if err != nil {
		t.Fatalf("GradeAnswer failed: %v", err)
	}
	if correct || awarded != 0 {
		t.Errorf("Expected 0 marks, got %.1f correct=%v", awarded, correct)
	}
}

func TestGradeAnswer_ShortAnswer(t *testing.T) {
	s := NewScorer()
	q := &models.Question{
		Type:  models.ShortAnswer,
		Text:  "Capital of France",
		Marks: 5,
		Content: mustJSON(t, models.ShortAnswerContent{
			AcceptedAnswers: []string{"Paris"},
		}),
	}
	q.ID = 4

	t.Run("case insensitive match", func(t *testing.T) {
		awarded, correct, err := s.GradeAnswer(q, rawAnswer(t, "paris"))
		if err != nil {
			t.Fatalf("GradeAnswer failed: %v", err)
		}
		if !correct || awarded != 5 {
			t.Errorf("Expected full marks, got %.1f correct=%v", awarded, correct)
		}
	})

	t.Run("near miss earns zero", func(t *testing.T) {
		awarded, correct, err := s.GradeAnswer(q, rawAnswer(t, "Pariss"))
		if err != nil {
			t.Fatalf("GradeAnswer failed: %v", err)
		}
		if correct || awarded != 0 {
			t.Errorf("Expected 0 marks without fuzzy matching, got %.1f", awarded)
		}
	})
}

func TestGradeAttempt(t *testing.T) {
	s := NewScorer()

	q1 := singleChoiceQuestion(t, 1, "B", 5)
	q2 := &models.Question{
		Type:  models.ShortAnswer,
		Text:  "Capital of France",
		Marks: 5,
		Content: mustJSON(t, models.ShortAnswerContent{
			AcceptedAnswers: []string{"Paris"},
		}),
	}
	q2.ID = 2
	questions := []*models.Question{q1, q2}

	t.Run("both correct", func(t *testing.T) {
		answers := map[uint]json.RawMessage{
			1: rawAnswer(t, "B"),
			2: rawAnswer(t, "paris"),
		}
		score, graded, err := s.GradeAttempt(questions, answers)
		if err != nil {
			t.Fatalf("GradeAttempt failed: %v", err)
		}
		if score.Score != 10 || score.TotalMarks != 10 || score.Percentage != 100 {
			t.Errorf("Expected 10/10 (100%%), got %.1f/%.1f (%.1f%%)", score.Score, score.TotalMarks, score.Percentage)
		}
		if !graded[1].IsCorrect || !graded[2].IsCorrect {
			t.Error("Expected both questions marked correct")
		}
	})

	t.Run("one wrong one unanswered", func(t *testing.T) {
		answers := map[uint]json.RawMessage{
			1: rawAnswer(t, "A"),
		}
		score, graded, err := s.GradeAttempt(questions, answers)
		if err != nil {
			t.Fatalf("GradeAttempt failed: %v", err)
		}
		if score.Score != 0 || score.Percentage != 0 {
			t.Errorf("Expected 0 (0%%), got %.1f (%.1f%%)", score.Score, score.Percentage)
		}
		if graded[1].IsCorrect || graded[2].IsCorrect {
			t.Error("No question should be marked correct")
		}
	})

	t.Run("zero questions grades to zero without error", func(t *testing.T) {
		score, graded, err := s.GradeAttempt(nil, nil)
		if err != nil {
			t.Fatalf("GradeAttempt failed: %v", err)
		}
		if score.Score != 0 || score.TotalMarks != 0 || score.Percentage != 0 {
			t.Errorf("Expected 0/0 (0%%), got %+v", score)
		}
		if len(graded) != 0 {
			t.Errorf("Expected no graded answers, got %d", len(graded))
		}
	})
}
