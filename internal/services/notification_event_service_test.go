package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"gorm.io/gorm"

	"github.com/classhub/lms-service/internal/events"
	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
	"github.com/classhub/lms-service/internal/validator"
)

// In-memory repository doubles, just enough for the notification paths.

type memoryNotificationRepo struct {
	created []*models.Notification
}

func (m *memoryNotificationRepo) Create(ctx context.Context, tx *gorm.DB, n *models.Notification) error {
	m.created = append(m.created, n)
	return nil
}

func (m *memoryNotificationRepo) CreateBatch(ctx context.Context, tx *gorm.DB, ns []*models.Notification) error {
	m.created = append(m.created, ns...)
	return nil
}

func (m *memoryNotificationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Notification, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryNotificationRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error { return nil }

func (m *memoryNotificationRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	return nil, 0, nil
}

func (m *memoryNotificationRepo) CountUnread(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	return 0, nil
}

func (m *memoryNotificationRepo) MarkRead(ctx context.Context, tx *gorm.DB, id uint, userID string) error {
	return nil
}

func (m *memoryNotificationRepo) MarkAllRead(ctx context.Context, tx *gorm.DB, userID string) error {
	return nil
}

type mockEventRepository struct {
	notifications *memoryNotificationRepo
}

func (m *mockEventRepository) Quiz() repositories.QuizRepository             { return nil }
func (m *mockEventRepository) Question() repositories.QuestionRepository     { return nil }
func (m *mockEventRepository) Attempt() repositories.AttemptRepository       { return nil }
func (m *mockEventRepository) Answer() repositories.AnswerRepository         { return nil }
func (m *mockEventRepository) Batch() repositories.BatchRepository           { return nil }
func (m *mockEventRepository) Attendance() repositories.AttendanceRepository { return nil }
func (m *mockEventRepository) User() repositories.UserRepository             { return nil }
func (m *mockEventRepository) Notification() repositories.NotificationRepository {
	return m.notifications
}
func (m *mockEventRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockEventRepository) Ping(ctx context.Context) error { return nil }
func (m *mockEventRepository) Close() error                   { return nil }

func TestNotificationEventService_PublishEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	mockPublisher := events.NewMockEventPublisher(logger)
	v := validator.New()
	mockRepo := &mockEventRepository{notifications: &memoryNotificationRepo{}}

	service := &notificationEventService{
		repo:           mockRepo,
		eventPublisher: mockPublisher,
		logger:         logger,
		validator:      v,
	}

	ctx := context.Background()

	t.Run("SendBulkNotification", func(t *testing.T) {
		userIDs := []string{"user-1", "user-2", "user-3"}
		notification := &NotificationRequest{
			Type:     models.NotificationGeneral,
			Title:    "Maintenance window",
			Message:  "The platform will be unavailable tonight",
			Priority: models.PriorityHigh,
		}

		if err := service.SendBulkNotification(ctx, userIDs, notification); err != nil {
			t.Fatalf("Failed to send bulk notification: %v", err)
		}

		if len(mockRepo.notifications.created) != 3 {
			t.Errorf("Expected 3 inbox rows, got %d", len(mockRepo.notifications.created))
		}

		published := mockPublisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(published))
		}
		if published[0].Type != "system.bulk_notification" {
			t.Errorf("Expected event type 'system.bulk_notification', got %s", published[0].Type)
		}
	})

	t.Run("Event_Structure_Validation", func(t *testing.T) {
		mockPublisher.ClearEvents()

		notification := &NotificationRequest{
			Type:    models.NotificationGeneral,
			Title:   "Quiz due soon",
			Message: "Your quiz closes in 2 hours",
		}
		if err := service.SendBulkNotification(ctx, []string{"user-123"}, notification); err != nil {
			t.Fatalf("Failed to send notification: %v", err)
		}

		published := mockPublisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(published))
		}

		event := published[0]
		if event.ID == "" {
			t.Error("Event ID should not be empty")
		}
		if event.Source != "lms-service" {
			t.Errorf("Expected source 'lms-service', got '%s'", event.Source)
		}
		if event.Version != "1.0" {
			t.Errorf("Expected version '1.0', got '%s'", event.Version)
		}
		if event.Timestamp.IsZero() {
			t.Error("Event timestamp should be set")
		}
	})

	t.Run("Empty_Recipients_Rejected", func(t *testing.T) {
		notification := &NotificationRequest{
			Type:    models.NotificationGeneral,
			Title:   "Nobody home",
			Message: "This should not be sent",
		}
		if err := service.SendBulkNotification(ctx, nil, notification); err == nil {
			t.Error("Expected error for empty recipient list")
		}
	})
}
