package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"gorm.io/gorm"

	"github.com/classhub/lms-service/internal/events"
	"github.com/classhub/lms-service/internal/repositories"
	"github.com/classhub/lms-service/internal/services"
)

// NotificationWorker consumes domain events and turns them into per-user
// inbox rows. It runs inside the service process; with kafka enabled the
// consumer group lets multiple instances share the stream.
type NotificationWorker struct {
	subscriber message.Subscriber
	notifier   services.NotificationEventService
	repo       repositories.Repository
	db         *gorm.DB
	logger     *slog.Logger
}

func NewNotificationWorker(subscriber message.Subscriber, notifier services.NotificationEventService, repo repositories.Repository, db *gorm.DB, logger *slog.Logger) *NotificationWorker {
	return &NotificationWorker{
		subscriber: subscriber,
		notifier:   notifier,
		repo:       repo,
		db:         db,
		logger:     logger,
	}
}

// Start subscribes to the domain topics and consumes until ctx is cancelled
// or the subscriber closes.
func (w *NotificationWorker) Start(ctx context.Context) error {
	topics := []string{events.TopicQuizzes, events.TopicAttempts, events.TopicBatches}

	for _, topic := range topics {
		messages, err := w.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
		go w.consume(ctx, topic, messages)
	}

	w.logger.Info("notification worker started", "topics", topics)
	return nil
}

func (w *NotificationWorker) consume(ctx context.Context, topic string, messages <-chan *message.Message) {
	for msg := range messages {
		if err := w.handle(ctx, msg); err != nil {
			w.logger.Error("failed to handle event",
				"topic", topic,
				"message_id", msg.UUID,
				"error", err)
		}
		// Ack regardless, a poison message must not stall the stream.
		msg.Ack()
	}
}

func (w *NotificationWorker) handle(ctx context.Context, msg *message.Message) error {
	var event events.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	switch event.Type {
	case events.EventQuizPublished:
		quizID, ok := uintField(event.Data, "quiz_id")
		if !ok {
			return fmt.Errorf("event %s missing quiz_id", event.ID)
		}
		quiz, err := w.repo.Quiz().GetByID(ctx, w.db, quizID)
		if err != nil {
			return fmt.Errorf("failed to load quiz %d: %w", quizID, err)
		}
		return w.notifier.NotifyQuizPublished(ctx, quiz)

	case events.EventAttemptSubmitted:
		attemptID, ok := uintField(event.Data, "attempt_id")
		if !ok {
			return fmt.Errorf("event %s missing attempt_id", event.ID)
		}
		attempt, err := w.repo.Attempt().GetByID(ctx, w.db, attemptID)
		if err != nil {
			return fmt.Errorf("failed to load attempt %d: %w", attemptID, err)
		}
		return w.notifier.NotifyAttemptSubmitted(ctx, attempt)

	case events.EventStudentEnrolled:
		batchID, ok := uintField(event.Data, "batch_id")
		if !ok {
			return fmt.Errorf("event %s missing batch_id", event.ID)
		}
		studentID, ok := stringField(event.Data, "student_id")
		if !ok {
			return fmt.Errorf("event %s missing student_id", event.ID)
		}
		return w.notifier.NotifyEnrollment(ctx, batchID, studentID)
	}

	// Other event types have no inbox counterpart.
	return nil
}

// uintField reads a numeric field from decoded event data. JSON numbers
// arrive as float64.
func uintField(data interface{}, key string) (uint, bool) {
	fields, ok := data.(map[string]interface{})
	if !ok {
		return 0, false
	}
	value, ok := fields[key].(float64)
	if !ok || value < 0 {
		return 0, false
	}
	return uint(value), true
}

func stringField(data interface{}, key string) (string, bool) {
	fields, ok := data.(map[string]interface{})
	if !ok {
		return "", false
	}
	value, ok := fields[key].(string)
	return value, ok && value != ""
}
