package models

import (
	"time"

	"gorm.io/gorm"
)

// Batch is a teacher-owned cohort of students. Quizzes and attendance
// records hang off a batch; enrollment gates who may attempt its quizzes.
type Batch struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	TeacherID   string  `json:"teacher_id" gorm:"not null;index;size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Teacher     User              `json:"teacher" gorm:"foreignKey:TeacherID"`
	Enrollments []BatchEnrollment `json:"enrollments" gorm:"foreignKey:BatchID"`
	Quizzes     []Quiz            `json:"quizzes" gorm:"foreignKey:BatchID"`
}

func (Batch) TableName() string {
	return "batches"
}

// BatchEnrollment links one student to one batch, at most once.
type BatchEnrollment struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	BatchID   uint   `json:"batch_id" gorm:"not null;uniqueIndex:idx_batch_student"`
	StudentID string `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_batch_student"`
	Active    bool   `json:"active" gorm:"not null;default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Batch   Batch `json:"batch" gorm:"foreignKey:BatchID"`
	Student User  `json:"student" gorm:"foreignKey:StudentID"`
}

func (BatchEnrollment) TableName() string {
	return "batch_enrollments"
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

// AttendanceRecord stores one attendance mark per (batch, student, day).
// Date is truncated to midnight UTC before writes so the unique index holds.
type AttendanceRecord struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	BatchID   uint             `json:"batch_id" gorm:"not null;uniqueIndex:idx_batch_student_date"`
	StudentID string           `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_batch_student_date"`
	Date      time.Time        `json:"date" gorm:"not null;type:date;uniqueIndex:idx_batch_student_date"`
	Status    AttendanceStatus `json:"status" gorm:"not null;size:20" validate:"required,oneof=present absent late"`

	RecordedBy string    `json:"recorded_by" gorm:"not null;size:255"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Batch   Batch `json:"batch" gorm:"foreignKey:BatchID"`
	Student User  `json:"student" gorm:"foreignKey:StudentID"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}
