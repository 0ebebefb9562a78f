package models

import "time"

type NotificationType string

const (
	NotificationQuizPublished    NotificationType = "quiz.published"
	NotificationAttemptSubmitted NotificationType = "attempt.submitted"
	NotificationEnrollmentAdded  NotificationType = "enrollment.added"
	NotificationGeneral          NotificationType = "general"
)

type NotificationPriority string

const (
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)

// Notification is one per-recipient inbox row, fed by the event pipeline.
type Notification struct {
	ID      uint             `json:"id" gorm:"primaryKey"`
	UserID  string           `json:"user_id" gorm:"not null;index;size:255"`
	Type    NotificationType `json:"type" gorm:"not null;size:50"`
	Title   string           `json:"title" gorm:"not null;size:200"`
	Message string           `json:"message" gorm:"type:text"`
	Read    bool             `json:"read" gorm:"not null;default:false;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (Notification) TableName() string {
	return "notifications"
}
