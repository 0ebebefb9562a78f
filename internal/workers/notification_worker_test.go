package workers

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/classhub/lms-service/internal/events"
	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/services"
)

type recordingNotifier struct {
	mu          sync.Mutex
	enrollments []string
}

func (n *recordingNotifier) SendBulkNotification(ctx context.Context, userIDs []string, req *services.NotificationRequest) error {
	return nil
}

func (n *recordingNotifier) NotifyQuizPublished(ctx context.Context, quiz *models.Quiz) error {
	return nil
}

func (n *recordingNotifier) NotifyAttemptSubmitted(ctx context.Context, attempt *models.QuizAttempt) error {
	return nil
}

func (n *recordingNotifier) NotifyEnrollment(ctx context.Context, batchID uint, studentID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enrollments = append(n.enrollments, studentID)
	return nil
}

func (n *recordingNotifier) enrolled() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.enrollments))
	copy(out, n.enrollments)
	return out
}

func TestNotificationWorkerConsumesEnrollment(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus := events.NewGoChannelBus(logger)
	defer bus.Close()

	notifier := &recordingNotifier{}
	worker := NewNotificationWorker(bus.Subscriber(), notifier, nil, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := worker.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	event := events.NewEvent(events.EventStudentEnrolled, map[string]interface{}{
		"batch_id":   uint(7),
		"student_id": "student-1",
	})
	if err := bus.Publish(ctx, events.TopicBatches, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if got := notifier.enrolled(); len(got) == 1 {
			if got[0] != "student-1" {
				t.Fatalf("notified student = %q, want student-1", got[0])
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("enrollment event never reached the notifier")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestUintField(t *testing.T) {
	data := map[string]interface{}{"quiz_id": float64(42), "student_id": "s-1"}

	if id, ok := uintField(data, "quiz_id"); !ok || id != 42 {
		t.Errorf("uintField = %d, %v, want 42, true", id, ok)
	}
	if _, ok := uintField(data, "missing"); ok {
		t.Error("missing key should not resolve")
	}
	if _, ok := uintField(nil, "quiz_id"); ok {
		t.Error("nil data should not resolve")
	}
	if s, ok := stringField(data, "student_id"); !ok || s != "s-1" {
		t.Errorf("stringField = %q, %v, want s-1, true", s, ok)
	}
}
