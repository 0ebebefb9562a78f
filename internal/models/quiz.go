package models

import (
	"time"

	"gorm.io/gorm"
)

type QuizStatus string

const (
	QuizDraft    QuizStatus = "draft"
	QuizActive   QuizStatus = "active"
	QuizArchived QuizStatus = "archived"
)

// Quiz is a timed assessment owned by a batch's teacher. Status moves
// monotonically draft -> active -> archived; structural content (the
// question set) is frozen once any attempt exists against a non-draft quiz.
type Quiz struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	BatchID     uint       `json:"batch_id" gorm:"not null;index"`
	Title       string     `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string    `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Status      QuizStatus `json:"status" gorm:"default:draft;index" validate:"omitempty,oneof=draft active archived"`

	// Scheduling window and duration limit (minutes)
	StartTime time.Time `json:"start_time" gorm:"not null"`
	EndTime   time.Time `json:"end_time" gorm:"not null"`
	Duration  int       `json:"duration" gorm:"not null" validate:"required,quiz_duration"`

	TotalMarks  float64 `json:"total_marks" gorm:"not null;default:0"`
	MaxAttempts int     `json:"max_attempts" gorm:"default:1" validate:"min=1,max=10"`

	// Delivery settings
	RandomizeQuestions     bool `json:"randomize_questions" gorm:"not null;default:false"`
	RandomizeOptions       bool `json:"randomize_options" gorm:"not null;default:false"`
	ShowResultsImmediately bool `json:"show_results_immediately" gorm:"not null;default:false"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Batch     Batch         `json:"batch" gorm:"foreignKey:BatchID"`
	Creator   User          `json:"creator" gorm:"foreignKey:CreatedBy"`
	Questions []Question    `json:"questions" gorm:"foreignKey:QuizID"`
	Attempts  []QuizAttempt `json:"attempts" gorm:"foreignKey:QuizID"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
	AttemptCount   int `json:"attempt_count" gorm:"-"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// IsWithinWindow reports whether now falls inside the quiz scheduling window.
func (q *Quiz) IsWithinWindow(now time.Time) bool {
	return !now.Before(q.StartTime) && !now.After(q.EndTime)
}
