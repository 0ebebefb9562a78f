package services

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/classhub/lms-service/internal/models"
)

// Scorer grades submitted answers. All grading is automatic and
// all-or-nothing: an answer earns the question's full marks or zero.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// AttemptScore is the aggregate result of grading one attempt.
type AttemptScore struct {
	Score      float64
	TotalMarks float64
	Percentage float64
}

// GradeAnswer grades a single answer against its question. A nil answer
// counts as unanswered and earns zero without error.
func (s *Scorer) GradeAnswer(question *models.Question, studentAnswer json.RawMessage) (float64, bool, error) {
	if len(studentAnswer) == 0 {
		return 0.0, false, nil // No answer provided
	}

	switch question.Type {
	case models.SingleChoice:
		return s.gradeSingleChoice(question, studentAnswer)
	case models.MultipleChoice:
		return s.gradeMultipleChoice(question, studentAnswer)
	case models.TrueFalse:
		return s.gradeTrueFalse(question, studentAnswer)
	case models.ShortAnswer:
		return s.gradeShortAnswer(question, studentAnswer)
	default:
		return 0.0, false, fmt.Errorf("unsupported question type: %s", question.Type)
	}
}

// GradeAttempt grades every question of a quiz against the stored answers
// and returns per-question marks plus the aggregate score. Questions with
// no stored answer earn zero. A quiz with no questions grades to 0/0 with
// percentage 0.
func (s *Scorer) GradeAttempt(questions []*models.Question, answers map[uint]json.RawMessage) (*AttemptScore, map[uint]GradedAnswer, error) {
	result := &AttemptScore{}
	graded := make(map[uint]GradedAnswer, len(questions))

	for _, question := range questions {
		result.TotalMarks += question.Marks

		awarded, correct, err := s.GradeAnswer(question, answers[question.ID])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to grade question %d: %w", question.ID, err)
		}

		result.Score += awarded
		graded[question.ID] = GradedAnswer{MarksAwarded: awarded, IsCorrect: correct}
	}

	if result.TotalMarks > 0 {
		result.Percentage = result.Score / result.TotalMarks * 100
	}

	return result, graded, nil
}

// GradedAnswer is the grading outcome for one question within an attempt.
type GradedAnswer struct {
	MarksAwarded float64
	IsCorrect    bool
}

func (s *Scorer) gradeSingleChoice(question *models.Question, studentAnswer json.RawMessage) (float64, bool, error) {
	var content models.SingleChoiceContent
	if err := json.Unmarshal(question.Content, &content); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal question content: %w", err)
	}

	var answer string
	if err := json.Unmarshal(studentAnswer, &answer); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	if compareStrings(answer, content.CorrectAnswer) {
		return question.Marks, true, nil
	}

	return 0.0, false, nil
}

func (s *Scorer) gradeMultipleChoice(question *models.Question, studentAnswer json.RawMessage) (float64, bool, error) {
	var content models.MultipleChoiceContent
	if err := json.Unmarshal(question.Content, &content); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal question content: %w", err)
	}

	var answer []string
	if err := json.Unmarshal(studentAnswer, &answer); err != nil {
		var singleAnswer string
		if err = json.Unmarshal(studentAnswer, &singleAnswer); err != nil {
			return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
		}
		answer = []string{singleAnswer}
	}

	// Set equality, no partial credit: a missing or extra selection
	// forfeits the whole question.
	if reflect.DeepEqual(sortStrings(answer), sortStrings(content.CorrectAnswers)) {
		return question.Marks, true, nil
	}

	return 0.0, false, nil
}

func (s *Scorer) gradeTrueFalse(question *models.Question, studentAnswer json.RawMessage) (float64, bool, error) {
	var content models.TrueFalseContent
	if err := json.Unmarshal(question.Content, &content); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal question content: %w", err)
	}

	var answer bool
	if err := json.Unmarshal(studentAnswer, &answer); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	if answer == content.CorrectAnswer {
		return question.Marks, true, nil
	}

	return 0.0, false, nil
}

func (s *Scorer) gradeShortAnswer(question *models.Question, studentAnswer json.RawMessage) (float64, bool, error) {
	var content models.ShortAnswerContent
	if err := json.Unmarshal(question.Content, &content); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal question content: %w", err)
	}

	var answer string
	if err := json.Unmarshal(studentAnswer, &answer); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	// Normalized exact match only, no fuzzy matching
	for _, accepted := range content.AcceptedAnswers {
		if compareStrings(answer, accepted) {
			return question.Marks, true, nil
		}
	}

	return 0.0, false, nil
}

// compareStrings normalizes both sides with trim and lowercase before
// comparing.
func compareStrings(s1, s2 string) bool {
	return strings.ToLower(strings.TrimSpace(s1)) == strings.ToLower(strings.TrimSpace(s2))
}

func sortStrings(arr []string) []string {
	sorted := make([]string, len(arr))
	copy(sorted, arr)
	sort.Strings(sorted)
	return sorted
}
