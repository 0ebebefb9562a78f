package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuizAttempt is one student's recorded run through a quiz. At most one
// attempt per (quiz, student) ever exists; the unique index both enforces
// the invariant and resolves concurrent start races. SubmittedAt nil means
// the attempt is still in progress.
type QuizAttempt struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	QuizID    uint   `json:"quiz_id" gorm:"not null;uniqueIndex:idx_quiz_student"`
	StudentID string `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_quiz_student"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt *time.Time `json:"submitted_at"`

	// Personalized question ordering, computed once at start ([]uint of
	// question IDs). Stored so resume returns the identical sequence.
	QuestionOrder datatypes.JSON `json:"question_order" gorm:"type:jsonb"`

	Score      float64 `json:"score"`
	Percentage float64 `json:"percentage"`
	Completed  bool    `json:"completed" gorm:"not null;default:false;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz    Quiz            `json:"quiz" gorm:"foreignKey:QuizID"`
	Student User            `json:"student" gorm:"foreignKey:StudentID"`
	Answers []AttemptAnswer `json:"answers" gorm:"foreignKey:AttemptID"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// IsSubmitted reports whether the attempt reached its terminal state.
func (a *QuizAttempt) IsSubmitted() bool {
	return a.SubmittedAt != nil
}

// AttemptAnswer stores the raw submitted value for one question of one
// attempt, unique per (attempt, question). Correctness and marks are
// filled in at submission time by scoring.
type AttemptAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`

	// Raw answer, shape depends on question type: string (single choice,
	// short answer), []string (multiple choice), bool (true/false).
	Answer datatypes.JSON `json:"answer" gorm:"type:jsonb"`

	IsCorrect    *bool   `json:"is_correct"`
	MarksAwarded float64 `json:"marks_awarded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Attempt  QuizAttempt `json:"attempt" gorm:"foreignKey:AttemptID"`
	Question Question    `json:"question" gorm:"foreignKey:QuestionID"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
