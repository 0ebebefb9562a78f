package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/classhub/lms-service/internal/models"
)

func newTestAttemptService() *attemptService {
	return &attemptService{
		logger:     slog.New(slog.NewTextHandler(os.Stdout, nil)),
		randomizer: NewRandomizer(),
		scorer:     NewScorer(),
		policy:     NewAccessPolicy(),
	}
}

func TestNewAttemptService(t *testing.T) {
	svc := NewAttemptService(nil, nil, slog.New(slog.NewTextHandler(os.Stdout, nil)), nil, nil)
	if svc == nil {
		t.Fatal("NewAttemptService returned nil")
	}
}

func TestAttemptDeadline(t *testing.T) {
	s := newTestAttemptService()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("duration cutoff inside the window", func(t *testing.T) {
		quiz := &models.Quiz{Duration: 30, EndTime: started.Add(2 * time.Hour)}
		attempt := &models.QuizAttempt{StartedAt: started}

		got := s.attemptDeadline(attempt, quiz)
		want := started.Add(30 * time.Minute)
		if !got.Equal(want) {
			t.Errorf("deadline = %v, want %v", got, want)
		}
	})

	t.Run("window close cuts the duration short", func(t *testing.T) {
		quiz := &models.Quiz{Duration: 60, EndTime: started.Add(10 * time.Minute)}
		attempt := &models.QuizAttempt{StartedAt: started}

		got := s.attemptDeadline(attempt, quiz)
		if !got.Equal(quiz.EndTime) {
			t.Errorf("deadline = %v, want quiz end %v", got, quiz.EndTime)
		}
	})
}

func TestQuestionOrderFor(t *testing.T) {
	s := newTestAttemptService()

	quiz := &models.Quiz{
		ID: 1,
		Questions: []models.Question{
			{ID: 11, DisplayOrder: 1},
			{ID: 12, DisplayOrder: 2},
			{ID: 13, DisplayOrder: 3},
			{ID: 14, DisplayOrder: 4},
			{ID: 15, DisplayOrder: 5},
		},
	}

	t.Run("authored order without randomization", func(t *testing.T) {
		order := s.questionOrderFor(quiz, "student-1")
		want := []uint{11, 12, 13, 14, 15}
		if len(order) != len(want) {
			t.Fatalf("order length = %d, want %d", len(order), len(want))
		}
		for i, id := range want {
			if order[i] != id {
				t.Errorf("order[%d] = %d, want %d", i, order[i], id)
			}
		}
	})

	t.Run("randomized order is stable per student", func(t *testing.T) {
		quiz.RandomizeQuestions = true
		defer func() { quiz.RandomizeQuestions = false }()

		first := s.questionOrderFor(quiz, "student-1")
		second := s.questionOrderFor(quiz, "student-1")
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("order changed between calls: %v vs %v", first, second)
			}
		}

		seen := make(map[uint]bool, len(first))
		for _, id := range first {
			seen[id] = true
		}
		if len(seen) != len(quiz.Questions) {
			t.Errorf("shuffled order lost questions: %v", first)
		}
	})
}

func TestBuildAttemptResponse(t *testing.T) {
	s := newTestAttemptService()

	content, err := json.Marshal(models.SingleChoiceContent{
		Options: []models.ChoiceOption{
			{ID: "a", Text: "Red", Order: 1},
			{ID: "b", Text: "Blue", Order: 2},
		},
		CorrectAnswer: "b",
	})
	if err != nil {
		t.Fatal(err)
	}

	quiz := &models.Quiz{
		ID: 1,
		Questions: []models.Question{
			{ID: 11, Type: models.SingleChoice, Text: "Pick a color", Marks: 5, Content: content},
			{ID: 12, Type: models.ShortAnswer, Text: "Capital of France", Marks: 5},
		},
	}

	order, _ := json.Marshal([]uint{12, 11})
	attempt := &models.QuizAttempt{
		ID:            1,
		QuizID:        1,
		StudentID:     "student-1",
		StartedAt:     time.Now(),
		QuestionOrder: order,
	}

	resp := s.buildAttemptResponse(attempt, quiz, true)

	if !resp.Resumed {
		t.Error("Resumed flag not set")
	}
	if !resp.CanSubmit {
		t.Error("In-progress attempt should be submittable")
	}
	if len(resp.Questions) != 2 {
		t.Fatalf("Questions length = %d, want 2", len(resp.Questions))
	}
	if resp.Questions[0].ID != 12 || resp.Questions[1].ID != 11 {
		t.Errorf("Stored order not honored: got %d, %d", resp.Questions[0].ID, resp.Questions[1].ID)
	}
	if len(resp.Questions[1].Options) != 2 {
		t.Errorf("Choice question should carry its options, got %d", len(resp.Questions[1].Options))
	}
	if len(resp.Questions[0].Options) != 0 {
		t.Error("Short answer question should carry no options")
	}

	payload, err := json.Marshal(resp.Questions)
	if err != nil {
		t.Fatal(err)
	}
	for _, leaked := range []string{"correct_answer", "accepted_answers"} {
		if bytes.Contains(payload, []byte(leaked)) {
			t.Errorf("Delivered questions leak %q", leaked)
		}
	}

	t.Run("submitted attempt carries no questions", func(t *testing.T) {
		now := time.Now()
		attempt.SubmittedAt = &now
		defer func() { attempt.SubmittedAt = nil }()

		resp := s.buildAttemptResponse(attempt, quiz, false)
		if resp.CanSubmit {
			t.Error("Submitted attempt should not be submittable")
		}
		if len(resp.Questions) != 0 {
			t.Error("Submitted attempt should not redeliver questions")
		}
	})
}

func TestResumeOrRejectSubmitted(t *testing.T) {
	s := newTestAttemptService()
	submittedAt := time.Now()

	quiz := &models.Quiz{ID: 1, Duration: 30, EndTime: time.Now().Add(time.Hour)}
	attempt := &models.QuizAttempt{
		ID:          1,
		QuizID:      1,
		StudentID:   "student-1",
		StartedAt:   time.Now().Add(-10 * time.Minute),
		SubmittedAt: &submittedAt,
		Completed:   true,
	}

	// The single attempt slot is used up, so a restart is an eligibility
	// failure rather than a mutation of a terminal attempt.
	_, err := s.resumeOrReject(context.Background(), attempt, quiz)
	if err != ErrNotEligible {
		t.Errorf("err = %v, want ErrNotEligible", err)
	}
	if !attempt.Completed || attempt.SubmittedAt == nil {
		t.Error("Rejected restart must leave the recorded result untouched")
	}
}

func TestBuildResultResponse(t *testing.T) {
	s := newTestAttemptService()
	submittedAt := time.Now()
	correct := true
	wrong := false

	quiz := &models.Quiz{
		ID:         1,
		TotalMarks: 10,
		Questions: []models.Question{
			{ID: 11, Text: "Q1", Marks: 5},
			{ID: 12, Text: "Q2", Marks: 5},
		},
	}
	attempt := &models.QuizAttempt{
		ID:          7,
		QuizID:      1,
		StudentID:   "student-1",
		Score:       5,
		Percentage:  50,
		SubmittedAt: &submittedAt,
	}
	answers := []*models.AttemptAnswer{
		{QuestionID: 11, Answer: datatypes.JSON(`"a"`), IsCorrect: &correct, MarksAwarded: 5},
		{QuestionID: 12, Answer: datatypes.JSON(`"b"`), IsCorrect: &wrong, MarksAwarded: 0},
	}

	resp := s.buildResultResponse(attempt, quiz, answers)

	if resp.Score != 5 || resp.TotalMarks != 10 || resp.Percentage != 50 {
		t.Errorf("aggregate = %v/%v (%v%%), want 5/10 (50%%)", resp.Score, resp.TotalMarks, resp.Percentage)
	}
	if len(resp.Questions) != 2 {
		t.Fatalf("Questions length = %d, want 2", len(resp.Questions))
	}
	if resp.Questions[0].MarksAwarded != 5 || resp.Questions[1].MarksAwarded != 0 {
		t.Errorf("per-question marks = %v, %v, want 5, 0", resp.Questions[0].MarksAwarded, resp.Questions[1].MarksAwarded)
	}
	if resp.Questions[0].Answer != "a" {
		t.Errorf("raw answer = %v, want a", resp.Questions[0].Answer)
	}
}
