package services

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/classhub/lms-service/internal/models"
)

func makeQuestions(n int) []*models.Question {
	questions := make([]*models.Question, n)
	for i := range questions {
		questions[i] = &models.Question{Text: fmt.Sprintf("Q%d", i+1)}
		questions[i].ID = uint(i + 1)
	}
	return questions
}

func makeOptions(n int) []models.ChoiceOption {
	options := make([]models.ChoiceOption, n)
	for i := range options {
		options[i] = models.ChoiceOption{
			ID:    fmt.Sprintf("opt-%d", i+1),
			Text:  fmt.Sprintf("Option %d", i+1),
			Order: i + 1,
		}
	}
	return options
}

func TestShuffleQuestions_Deterministic(t *testing.T) {
	r := NewRandomizer()
	questions := makeQuestions(10)

	first := r.ShuffleQuestions("student-1", 1, questions)
	for i := 0; i < 5; i++ {
		again := r.ShuffleQuestions("student-1", 1, questions)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Shuffle not deterministic: %v vs %v", first, again)
		}
	}
}

func TestShuffleQuestions_DistinctAcrossStudents(t *testing.T) {
	r := NewRandomizer()
	questions := makeQuestions(10)

	seen := make(map[string]bool)
	distinct := 0
	for i := 0; i < 20; i++ {
		order := r.ShuffleQuestions(fmt.Sprintf("student-%d", i), 1, questions)
		key := fmt.Sprint(order)
		if !seen[key] {
			seen[key] = true
			distinct++
		}
	}

	// With 10! possible permutations, 20 students colliding into one or two
	// orderings would indicate a broken seed.
	if distinct < 15 {
		t.Errorf("Expected mostly distinct permutations across students, got %d of 20", distinct)
	}
}

func TestShuffleQuestions_IndependentPerQuiz(t *testing.T) {
	r := NewRandomizer()
	questions := makeQuestions(10)

	distinct := make(map[string]bool)
	for quizID := uint(1); quizID <= 10; quizID++ {
		order := r.ShuffleQuestions("student-1", quizID, questions)
		distinct[fmt.Sprint(order)] = true
	}

	// The same student must not get one fixed permutation pattern across
	// every quiz of the same size.
	if len(distinct) < 2 {
		t.Error("Question order should differ across quizzes for the same student")
	}
}

func TestShuffleQuestions_PreservesElements(t *testing.T) {
	r := NewRandomizer()
	questions := makeQuestions(8)

	order := r.ShuffleQuestions("student-1", 1, questions)
	if len(order) != 8 {
		t.Fatalf("Expected 8 ids, got %d", len(order))
	}

	seen := make(map[uint]bool)
	for _, id := range order {
		if seen[id] {
			t.Fatalf("Duplicate id %d in shuffled order", id)
		}
		seen[id] = true
	}
	for i := uint(1); i <= 8; i++ {
		if !seen[i] {
			t.Errorf("Missing id %d in shuffled order", i)
		}
	}
}

func TestShuffleQuestions_InputUnmodified(t *testing.T) {
	r := NewRandomizer()
	questions := makeQuestions(6)

	r.ShuffleQuestions("student-1", 1, questions)
	for i, q := range questions {
		if q.ID != uint(i+1) {
			t.Fatalf("Input slice was reordered at index %d", i)
		}
	}
}

func TestShuffleQuestions_SmallInputs(t *testing.T) {
	r := NewRandomizer()

	t.Run("empty", func(t *testing.T) {
		order := r.ShuffleQuestions("student-1", 1, nil)
		if len(order) != 0 {
			t.Errorf("Expected empty result, got %v", order)
		}
	})

	t.Run("single", func(t *testing.T) {
		order := r.ShuffleQuestions("student-1", 1, makeQuestions(1))
		if len(order) != 1 || order[0] != 1 {
			t.Errorf("Expected [1], got %v", order)
		}
	})
}

func TestShuffleOptions_Deterministic(t *testing.T) {
	r := NewRandomizer()
	options := makeOptions(5)

	first := r.ShuffleOptions("student-1", 42, options)
	again := r.ShuffleOptions("student-1", 42, options)
	if !reflect.DeepEqual(first, again) {
		t.Fatalf("Option shuffle not deterministic: %v vs %v", first, again)
	}
}

func TestShuffleOptions_IndependentPerQuestion(t *testing.T) {
	r := NewRandomizer()
	options := makeOptions(6)

	distinct := make(map[string]bool)
	for q := uint(1); q <= 10; q++ {
		order := r.ShuffleOptions("student-1", q, options)
		distinct[fmt.Sprint(order)] = true
	}

	if len(distinct) < 2 {
		t.Error("Option order should differ across questions for the same student")
	}
}

func TestShuffleOptions_InputUnmodified(t *testing.T) {
	r := NewRandomizer()
	options := makeOptions(4)

	r.ShuffleOptions("student-1", 1, options)
	for i, opt := range options {
		if opt.Order != i+1 {
			t.Fatalf("Input options were reordered at index %d", i)
		}
	}
}
