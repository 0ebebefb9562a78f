package events

// Kafka topics the service publishes on.
const (
	TopicQuizzes       = "lms.quiz-events"
	TopicAttempts      = "lms.attempt-events"
	TopicBatches       = "lms.batch-events"
	TopicNotifications = "lms.notification-events"
)

// Event types carried in the envelope.
const (
	EventQuizPublished    = "quiz.published"
	EventQuizArchived     = "quiz.archived"
	EventAttemptSubmitted = "attempt.submitted"
	EventStudentEnrolled  = "batch.student_enrolled"
	EventBulkNotification = "system.bulk_notification"
)
