package repositories

import (
	"context"
	"time"

	"github.com/classhub/lms-service/internal/models"
	"gorm.io/gorm"
)

// BatchRepository interface for batch and enrollment operations
type BatchRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, batch *models.Batch) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Batch, error)
	GetByIDWithEnrollments(ctx context.Context, tx *gorm.DB, id uint) (*models.Batch, error)
	Update(ctx context.Context, tx *gorm.DB, batch *models.Batch) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters BatchFilters) ([]*models.Batch, int64, error)
	GetByTeacher(ctx context.Context, tx *gorm.DB, teacherID string, filters BatchFilters) ([]*models.Batch, int64, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.Batch, error)

	// Enrollment operations
	Enroll(ctx context.Context, tx *gorm.DB, enrollment *models.BatchEnrollment) error
	Unenroll(ctx context.Context, tx *gorm.DB, batchID uint, studentID string) error
	GetEnrollments(ctx context.Context, tx *gorm.DB, batchID uint) ([]*models.BatchEnrollment, error)
	IsEnrolled(ctx context.Context, tx *gorm.DB, batchID uint, studentID string) (bool, error)
	CountEnrollments(ctx context.Context, tx *gorm.DB, batchID uint) (int64, error)
}

// AttendanceRepository interface for attendance record operations
type AttendanceRepository interface {
	// Upsert keyed on the (batch, student, date) unique triple
	Upsert(ctx context.Context, tx *gorm.DB, record *models.AttendanceRecord) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AttendanceRecord, error)

	// Query operations
	GetByBatchAndDate(ctx context.Context, tx *gorm.DB, batchID uint, date time.Time) ([]*models.AttendanceRecord, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, batchID uint, studentID string, filters AttendanceFilters) ([]*models.AttendanceRecord, int64, error)

	// Statistics
	GetBatchStats(ctx context.Context, tx *gorm.DB, batchID uint, from, to time.Time) (*BatchAttendanceStats, error)
}
