package repositories

import (
	"time"

	"github.com/classhub/lms-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	Status    *models.QuizStatus `json:"status"`
	BatchID   *uint              `json:"batch_id"`
	CreatedBy *string            `json:"created_by"`
	DateFrom  *time.Time         `json:"date_from"`
	DateTo    *time.Time         `json:"date_to"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "title", "start_time"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Submitted *bool      `json:"submitted"`
	StudentID *string    `json:"student_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`
	SortOrder string     `json:"sort_order"`
}

type BatchFilters struct {
	TeacherID *string `json:"teacher_id"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`
	SortOrder string  `json:"sort_order"`
}

type NotificationFilters struct {
	Type   *models.NotificationType `json:"type"`
	Read   *bool                    `json:"read"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

type AttendanceFilters struct {
	Status   *models.AttendanceStatus `json:"status"`
	DateFrom *time.Time               `json:"date_from"`
	DateTo   *time.Time               `json:"date_to"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type QuizStats struct {
	TotalAttempts     int     `json:"total_attempts"`
	SubmittedAttempts int     `json:"submitted_attempts"`
	AverageScore      float64 `json:"average_score"`
	AveragePercentage float64 `json:"average_percentage"`
	QuestionCount     int     `json:"question_count"`
	TotalMarks        float64 `json:"total_marks"`
}

type BatchAttendanceStats struct {
	TotalRecords int                             `json:"total_records"`
	ByStatus     map[models.AttendanceStatus]int `json:"by_status"`
	PresentRate  float64                         `json:"present_rate"`
}
