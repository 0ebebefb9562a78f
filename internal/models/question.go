package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

// HasOptions reports whether the type carries an option set. Invariant:
// the option set is empty iff the type is short_answer.
func (t QuestionType) HasOptions() bool {
	switch t {
	case SingleChoice, MultipleChoice, TrueFalse:
		return true
	case ShortAnswer:
		return false
	}
	return false
}

// Question belongs to exactly one quiz. Content holds the type-specific
// option set and correct-answer specification as JSONB.
type Question struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	QuizID       uint           `json:"quiz_id" gorm:"not null;index"`
	Type         QuestionType   `json:"type" gorm:"not null;size:30;index" validate:"required,question_type"`
	Text         string         `json:"text" gorm:"not null;type:text" validate:"required,min=1,max=2000"`
	Content      datatypes.JSON `json:"content" gorm:"type:jsonb"`
	Marks        float64        `json:"marks" gorm:"not null" validate:"required,marks_range"`
	DisplayOrder int            `json:"display_order" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Quiz Quiz `json:"quiz" gorm:"foreignKey:QuizID"`
}

func (Question) TableName() string {
	return "questions"
}

// ===== QUESTION CONTENT SCHEMAS (stored in Question.Content) =====

// ChoiceOption is one selectable option of a choice question.
type ChoiceOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type SingleChoiceContent struct {
	Options       []ChoiceOption `json:"options"`
	CorrectAnswer string         `json:"correct_answer"` // option ID
}

type MultipleChoiceContent struct {
	Options        []ChoiceOption `json:"options"`
	CorrectAnswers []string       `json:"correct_answers"` // option IDs
}

type TrueFalseContent struct {
	CorrectAnswer bool `json:"correct_answer"`
}

type ShortAnswerContent struct {
	AcceptedAnswers []string `json:"accepted_answers"`
}
