package services

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/classhub/lms-service/internal/models"
)

// Randomizer produces deterministic per-student shuffles. The same student
// always sees the same question order for a quiz, and the same option order
// within a question, across sessions and devices.
type Randomizer struct{}

func NewRandomizer() *Randomizer {
	return &Randomizer{}
}

// questionOrderSeed derives the shuffle seed from the (student, quiz) pair so
// every quiz deals the student its own permutation.
func questionOrderSeed(studentID string, quizID uint) int64 {
	return hashSeed(fmt.Sprintf("student:%s:quiz:%d", studentID, quizID))
}

// optionOrderSeed derives the seed from the (student, question) pair so each
// question gets an independent option permutation.
func optionOrderSeed(studentID string, questionID uint) int64 {
	return hashSeed(fmt.Sprintf("student:%s:question:%d", studentID, questionID))
}

func hashSeed(material string) int64 {
	h := fnv.New64a()
	h.Write([]byte(material))
	return int64(h.Sum64())
}

// ShuffleQuestions returns question IDs in the student's order for this quiz.
// The input slice is not modified. Empty and single-element inputs come back
// as-is.
func (r *Randomizer) ShuffleQuestions(studentID string, quizID uint, questions []*models.Question) []uint {
	ids := make([]uint, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	if len(ids) < 2 {
		return ids
	}

	rng := rand.New(rand.NewSource(questionOrderSeed(studentID, quizID)))
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}

// ShuffleOptions returns a copy of the options in the student's order for
// this question. Empty and single-element inputs come back unchanged.
func (r *Randomizer) ShuffleOptions(studentID string, questionID uint, options []models.ChoiceOption) []models.ChoiceOption {
	shuffled := make([]models.ChoiceOption, len(options))
	copy(shuffled, options)
	if len(shuffled) < 2 {
		return shuffled
	}

	rng := rand.New(rand.NewSource(optionOrderSeed(studentID, questionID)))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
