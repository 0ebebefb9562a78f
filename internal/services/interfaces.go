package services

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
)

// ===== QUIZ RELATED DTOs =====

type CreateQuizRequest struct {
	BatchID                uint      `json:"batch_id" validate:"required"`
	Title                  string    `json:"title" validate:"required,min=1,max=200"`
	Description            *string   `json:"description" validate:"omitempty,max=1000"`
	StartTime              time.Time `json:"start_time" validate:"required"`
	EndTime                time.Time `json:"end_time" validate:"required"`
	Duration               int       `json:"duration" validate:"required,quiz_duration"`
	MaxAttempts            int       `json:"max_attempts" validate:"omitempty,max_attempts"`
	RandomizeQuestions     bool      `json:"randomize_questions"`
	RandomizeOptions       bool      `json:"randomize_options"`
	ShowResultsImmediately bool      `json:"show_results_immediately"`
}

type UpdateQuizRequest struct {
	Title                  *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description            *string    `json:"description" validate:"omitempty,max=1000"`
	StartTime              *time.Time `json:"start_time"`
	EndTime                *time.Time `json:"end_time"`
	Duration               *int       `json:"duration" validate:"omitempty,quiz_duration"`
	MaxAttempts            *int       `json:"max_attempts" validate:"omitempty,max_attempts"`
	RandomizeQuestions     *bool      `json:"randomize_questions"`
	RandomizeOptions       *bool      `json:"randomize_options"`
	ShowResultsImmediately *bool      `json:"show_results_immediately"`
}

type UpdateStatusRequest struct {
	Status models.QuizStatus `json:"status" validate:"required,oneof=draft active archived"`
}

type QuizResponse struct {
	*models.Quiz
	CanEdit    bool `json:"can_edit"`
	CanDelete  bool `json:"can_delete"`
	CanAttempt bool `json:"can_attempt"`
}

type QuizListResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Size    int             `json:"size"`
}

// ===== QUESTION RELATED DTOs =====

type CreateQuestionRequest struct {
	Type         models.QuestionType `json:"type" validate:"required,question_type"`
	Text         string              `json:"text" validate:"required,max=2000"`
	Content      datatypes.JSON      `json:"content" validate:"required"`
	Marks        float64             `json:"marks" validate:"marks_range"`
	DisplayOrder int                 `json:"display_order"`
}

type UpdateQuestionRequest struct {
	Text    *string         `json:"text" validate:"omitempty,max=2000"`
	Content *datatypes.JSON `json:"content"`
	Marks   *float64        `json:"marks" validate:"omitempty,marks_range"`
}

type QuestionResponse struct {
	*models.Question
	CanEdit bool `json:"can_edit"`
}

// ===== ATTEMPT RELATED DTOs =====

type StartAttemptRequest struct {
	QuizID uint `json:"quiz_id" validate:"required"`
}

type SubmitAnswerRequest struct {
	QuestionID uint        `json:"question_id" validate:"required"`
	Answer     interface{} `json:"answer" validate:"required"`
}

type SubmitAttemptRequest struct {
	AttemptID uint                  `json:"attempt_id" validate:"required"`
	Answers   []SubmitAnswerRequest `json:"answers" validate:"omitempty,dive"`
}

// QuestionForAttempt is a question as delivered to a student: options in
// the student's order, correct answers stripped.
type QuestionForAttempt struct {
	ID      uint                  `json:"id"`
	Type    models.QuestionType   `json:"type"`
	Text    string                `json:"text"`
	Marks   float64               `json:"marks"`
	Options []models.ChoiceOption `json:"options,omitempty"`
}

type AttemptResponse struct {
	*models.QuizAttempt
	CanSubmit bool                 `json:"can_submit"`
	Resumed   bool                 `json:"resumed"`
	Questions []QuestionForAttempt `json:"questions,omitempty"`
}

type QuestionResult struct {
	QuestionID   uint        `json:"question_id"`
	Text         string      `json:"text"`
	Marks        float64     `json:"marks"`
	MarksAwarded float64     `json:"marks_awarded"`
	IsCorrect    *bool       `json:"is_correct"`
	Answer       interface{} `json:"answer,omitempty"`
}

type AttemptResultResponse struct {
	AttemptID   uint             `json:"attempt_id"`
	QuizID      uint             `json:"quiz_id"`
	StudentID   string           `json:"student_id"`
	Score       float64          `json:"score"`
	TotalMarks  float64          `json:"total_marks"`
	Percentage  float64          `json:"percentage"`
	SubmittedAt *time.Time       `json:"submitted_at"`
	Questions   []QuestionResult `json:"questions"`
}

// ===== BATCH RELATED DTOs =====

type CreateBatchRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type UpdateBatchRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

type BatchResponse struct {
	*models.Batch
	EnrollmentCount int64 `json:"enrollment_count"`
	CanEdit         bool  `json:"can_edit"`
}

// ===== ATTENDANCE RELATED DTOs =====

type AttendanceEntry struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required,oneof=present absent late"`
}

type RecordAttendanceRequest struct {
	Date    time.Time         `json:"date" validate:"required"`
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// ===== NOTIFICATION RELATED DTOs =====

type NotificationRequest struct {
	Type     models.NotificationType     `json:"type" validate:"required"`
	Title    string                      `json:"title" validate:"required,max=200"`
	Message  string                      `json:"message" validate:"required,max=1000"`
	Priority models.NotificationPriority `json:"priority"`
}

// ===== SERVICE INTERFACES =====

type QuizService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*QuizResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List operations
	GetByBatch(ctx context.Context, batchID uint, filters repositories.QuizFilters, userID string) (*QuizListResponse, error)
	GetByCreator(ctx context.Context, creatorID string, filters repositories.QuizFilters) (*QuizListResponse, error)

	// Status management
	UpdateStatus(ctx context.Context, id uint, req *UpdateStatusRequest, userID string) error
	Publish(ctx context.Context, id uint, userID string) error
	Archive(ctx context.Context, id uint, userID string) error

	// Statistics
	GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizStats, error)
}

type QuestionService interface {
	Create(ctx context.Context, quizID uint, req *CreateQuestionRequest, userID string) (*QuestionResponse, error)
	CreateBatch(ctx context.Context, quizID uint, reqs []*CreateQuestionRequest, userID string) ([]*QuestionResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error)
	GetByQuiz(ctx context.Context, quizID uint, userID string) ([]*QuestionResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error)
	Delete(ctx context.Context, id uint, userID string) error
	Reorder(ctx context.Context, quizID uint, orderedIDs []uint, userID string) error
}

type AttemptService interface {
	// Core attempt operations
	Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error)
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) error
	Submit(ctx context.Context, req *SubmitAttemptRequest, studentID string) (*AttemptResponse, error)

	// Get operations
	GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error)
	GetResult(ctx context.Context, attemptID uint, userID string) (*AttemptResultResponse, error)

	// List operations
	GetByQuiz(ctx context.Context, quizID uint, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error)
	GetByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error)

	// Validation
	CanStart(ctx context.Context, quizID uint, studentID string) (bool, error)
}

type BatchService interface {
	Create(ctx context.Context, req *CreateBatchRequest, teacherID string) (*BatchResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*BatchResponse, error)
	Update(ctx context.Context, id uint, req *UpdateBatchRequest, userID string) (*BatchResponse, error)
	Delete(ctx context.Context, id uint, userID string) error
	GetByTeacher(ctx context.Context, teacherID string, filters repositories.BatchFilters) ([]*BatchResponse, int64, error)
	GetByStudent(ctx context.Context, studentID string) ([]*BatchResponse, error)

	// Enrollment management
	Enroll(ctx context.Context, batchID uint, req *EnrollRequest, userID string) error
	Unenroll(ctx context.Context, batchID uint, studentID string, userID string) error
	GetEnrollments(ctx context.Context, batchID uint, userID string) ([]*models.BatchEnrollment, error)
	IsEnrolled(ctx context.Context, batchID uint, studentID string) (bool, error)
}

type AttendanceService interface {
	Record(ctx context.Context, batchID uint, req *RecordAttendanceRequest, userID string) error
	GetByDate(ctx context.Context, batchID uint, date time.Time, userID string) ([]*models.AttendanceRecord, error)
	GetStudentHistory(ctx context.Context, batchID uint, studentID string, filters repositories.AttendanceFilters, userID string) ([]*models.AttendanceRecord, int64, error)
	GetBatchStats(ctx context.Context, batchID uint, from, to time.Time, userID string) (*repositories.BatchAttendanceStats, error)
}

type NotificationService interface {
	GetByUser(ctx context.Context, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id uint, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type NotificationEventService interface {
	SendBulkNotification(ctx context.Context, userIDs []string, req *NotificationRequest) error
	NotifyQuizPublished(ctx context.Context, quiz *models.Quiz) error
	NotifyAttemptSubmitted(ctx context.Context, attempt *models.QuizAttempt) error
	NotifyEnrollment(ctx context.Context, batchID uint, studentID string) error
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Quiz() QuizService
	Question() QuestionService
	Attempt() AttemptService
	Batch() BatchService
	Attendance() AttendanceService
	Notification() NotificationService
	NotificationEvent() NotificationEventService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
