package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/classhub/lms-service/internal/events"
	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
	"github.com/classhub/lms-service/internal/validator"
)

// notificationEventService fans domain happenings out to per-user inbox rows
// and mirrors them on the event bus for external consumers.
type notificationEventService struct {
	repo           repositories.Repository
	db             *gorm.DB
	eventPublisher events.EventPublisher
	logger         *slog.Logger
	validator      *validator.Validator
}

func NewNotificationEventService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher) NotificationEventService {
	return &notificationEventService{
		repo:           repo,
		db:             db,
		eventPublisher: eventPublisher,
		logger:         logger,
		validator:      validator,
	}
}

func (s *notificationEventService) SendBulkNotification(ctx context.Context, userIDs []string, req *NotificationRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if len(userIDs) == 0 {
		return ErrInvalidArgument
	}

	if err := s.deliver(ctx, userIDs, req.Type, req.Title, req.Message); err != nil {
		return err
	}

	s.publish(ctx, events.EventBulkNotification, map[string]interface{}{
		"user_ids": userIDs,
		"type":     req.Type,
		"title":    req.Title,
		"priority": req.Priority,
	})
	return nil
}

func (s *notificationEventService) NotifyQuizPublished(ctx context.Context, quiz *models.Quiz) error {
	enrollments, err := s.repo.Batch().GetEnrollments(ctx, s.db, quiz.BatchID)
	if err != nil {
		return fmt.Errorf("failed to list enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return nil
	}

	userIDs := make([]string, len(enrollments))
	for i, enrollment := range enrollments {
		userIDs[i] = enrollment.StudentID
	}

	title := fmt.Sprintf("New quiz: %s", quiz.Title)
	message := fmt.Sprintf("The quiz %q is open from %s to %s.",
		quiz.Title,
		quiz.StartTime.Format("Jan 2 15:04"),
		quiz.EndTime.Format("Jan 2 15:04"))

	if err := s.deliver(ctx, userIDs, models.NotificationQuizPublished, title, message); err != nil {
		return err
	}

	s.publish(ctx, events.EventQuizPublished, map[string]interface{}{
		"quiz_id":    quiz.ID,
		"batch_id":   quiz.BatchID,
		"title":      quiz.Title,
		"recipients": len(userIDs),
	})
	return nil
}

func (s *notificationEventService) NotifyAttemptSubmitted(ctx context.Context, attempt *models.QuizAttempt) error {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, attempt.QuizID)
	if err != nil {
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	title := fmt.Sprintf("Submission for %s", quiz.Title)
	message := fmt.Sprintf("Student %s submitted an attempt, scoring %.1f (%.0f%%).",
		attempt.StudentID, attempt.Score, attempt.Percentage)

	if err := s.deliver(ctx, []string{quiz.CreatedBy}, models.NotificationAttemptSubmitted, title, message); err != nil {
		return err
	}

	s.publish(ctx, events.EventAttemptSubmitted, map[string]interface{}{
		"attempt_id": attempt.ID,
		"quiz_id":    quiz.ID,
		"student_id": attempt.StudentID,
	})
	return nil
}

func (s *notificationEventService) NotifyEnrollment(ctx context.Context, batchID uint, studentID string) error {
	batch, err := s.repo.Batch().GetByID(ctx, s.db, batchID)
	if err != nil {
		return fmt.Errorf("failed to get batch: %w", err)
	}

	title := fmt.Sprintf("Enrolled in %s", batch.Name)
	message := fmt.Sprintf("You have been added to the batch %q.", batch.Name)

	if err := s.deliver(ctx, []string{studentID}, models.NotificationEnrollmentAdded, title, message); err != nil {
		return err
	}

	s.publish(ctx, events.EventStudentEnrolled, map[string]interface{}{
		"batch_id":   batchID,
		"student_id": studentID,
	})
	return nil
}

// deliver writes one inbox row per recipient.
func (s *notificationEventService) deliver(ctx context.Context, userIDs []string, notificationType models.NotificationType, title, message string) error {
	notifications := make([]*models.Notification, len(userIDs))
	for i, userID := range userIDs {
		notifications[i] = &models.Notification{
			UserID:  userID,
			Type:    notificationType,
			Title:   title,
			Message: message,
		}
	}

	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		return r.Notification().CreateBatch(ctx, nil, notifications)
	})
	if err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// publish mirrors the notification on the bus; failures are logged only.
func (s *notificationEventService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.eventPublisher == nil {
		return
	}
	event := events.NewEvent(eventType, data)
	if err := s.eventPublisher.Publish(ctx, events.TopicNotifications, event); err != nil {
		s.logger.Error("failed to publish notification event",
			"event_type", eventType,
			"error", err)
	}
}
