package repositories

import (
	"context"

	"github.com/classhub/lms-service/internal/models"
	"gorm.io/gorm"
)

// AttemptRepository interface for quiz attempt operations
type AttemptRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error)
	GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error

	// Lookup by the (quiz, student) unique pair
	GetByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (*models.QuizAttempt, error)

	// Query operations
	GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)

	// Counts used by eligibility checks
	CountSubmitted(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (int64, error)
	CountByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error)
}

// AnswerRepository interface for attempt answer operations
type AnswerRepository interface {
	// Upsert keyed on the (attempt, question) unique pair
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.AttemptAnswer) error

	// Query operations
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AttemptAnswer, error)

	// Bulk operations
	UpdateBatch(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error
}
