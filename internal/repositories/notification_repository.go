package repositories

import (
	"context"

	"github.com/classhub/lms-service/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository interface for notification operations
type NotificationRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, notification *models.Notification) error
	CreateBatch(ctx context.Context, tx *gorm.DB, notifications []*models.Notification) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Notification, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	GetByUser(ctx context.Context, tx *gorm.DB, userID string, filters NotificationFilters) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, tx *gorm.DB, userID string) (int64, error)

	// State management
	MarkRead(ctx context.Context, tx *gorm.DB, id uint, userID string) error
	MarkAllRead(ctx context.Context, tx *gorm.DB, userID string) error
}
