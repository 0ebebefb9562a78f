package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/classhub/lms-service/internal/events"
	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
	"github.com/classhub/lms-service/internal/validator"
)

type attemptService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	randomizer     *Randomizer
	scorer         *Scorer
	policy         *AccessPolicy
	eventPublisher events.EventPublisher
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher) AttemptService {
	return &attemptService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		randomizer:     NewRandomizer(),
		scorer:         NewScorer(),
		policy:         NewAccessPolicy(),
		eventPublisher: eventPublisher,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Starting quiz attempt",
		"quiz_id", req.QuizID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, req.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	// Resume an in-progress attempt before any eligibility check: the
	// existing attempt was started under a valid window and must come back
	// with the identical question order.
	existing, err := s.repo.Attempt().GetByQuizAndStudent(ctx, s.db, req.QuizID, studentID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up existing attempt: %w", err)
	}
	if existing != nil {
		return s.resumeOrReject(ctx, existing, quiz)
	}

	canStart, err := s.CanStart(ctx, req.QuizID, studentID)
	if err != nil {
		return nil, err
	}
	if !canStart {
		return nil, ErrNotEligible
	}

	attempt, resumed, err := s.createAttempt(ctx, quiz, studentID)
	if err != nil {
		return nil, err
	}
	if resumed {
		return s.resumeOrReject(ctx, attempt, quiz)
	}

	s.logger.Info("Quiz attempt started",
		"attempt_id", attempt.ID,
		"quiz_id", req.QuizID,
		"student_id", studentID)

	return s.buildAttemptResponse(attempt, quiz, false), nil
}

// createAttempt inserts a fresh attempt and recovers the concurrent-start
// race: when two requests pass the eligibility check together, the loser of
// the unique (quiz, student) index reloads the winner's row instead of
// failing.
func (s *attemptService) createAttempt(ctx context.Context, quiz *models.Quiz, studentID string) (*models.QuizAttempt, bool, error) {
	order := s.questionOrderFor(quiz, studentID)
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode question order: %w", err)
	}

	attempt := &models.QuizAttempt{
		QuizID:        quiz.ID,
		StudentID:     studentID,
		StartedAt:     time.Now(),
		QuestionOrder: orderJSON,
	}

	err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		return r.Attempt().Create(ctx, nil, attempt)
	})
	if err == nil {
		return attempt, false, nil
	}

	if repositories.IsDuplicateKeyError(err) {
		winner, loadErr := s.repo.Attempt().GetByQuizAndStudent(ctx, s.db, quiz.ID, studentID)
		if loadErr != nil {
			return nil, false, fmt.Errorf("failed to reload attempt after duplicate key: %w", loadErr)
		}
		s.logger.Info("Concurrent start recovered to existing attempt",
			"attempt_id", winner.ID,
			"quiz_id", quiz.ID,
			"student_id", studentID)
		return winner, true, nil
	}

	return nil, false, fmt.Errorf("failed to create attempt: %w", err)
}

func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != studentID {
		return NewPermissionError(studentID, attemptID, "attempt", "submit_answer", "not owned by student")
	}
	if attempt.IsSubmitted() {
		return ErrAttemptAlreadySubmitted
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, attempt.QuizID)
	if err != nil {
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	if time.Now().After(s.attemptDeadline(attempt, quiz)) {
		if err := s.finalizeExpired(ctx, attempt, quiz); err != nil {
			return err
		}
		return ErrQuizWindowClosed
	}

	question, err := s.repo.Question().GetByID(ctx, s.db, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}
	if question.QuizID != attempt.QuizID {
		return ErrQuestionNotFound
	}

	answerJSON, err := json.Marshal(req.Answer)
	if err != nil {
		return fmt.Errorf("failed to encode answer: %w", err)
	}

	answer := &models.AttemptAnswer{
		AttemptID:  attemptID,
		QuestionID: req.QuestionID,
		Answer:     answerJSON,
	}
	if err := s.repo.Answer().Upsert(ctx, s.db, answer); err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}

	return nil
}

func (s *attemptService) Submit(ctx context.Context, req *SubmitAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Submitting quiz attempt",
		"attempt_id", req.AttemptID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, s.db, req.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, req.AttemptID, "attempt", "submit", "not owned by student")
	}

	// Double submission leaves the recorded result untouched.
	if attempt.IsSubmitted() {
		return nil, ErrAttemptAlreadySubmitted
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	// Expiry is checked lazily on every touch. A submit past the deadline
	// grades what was saved in time, not the inline answers.
	if time.Now().After(s.attemptDeadline(attempt, quiz)) {
		if err := s.finalizeExpired(ctx, attempt, quiz); err != nil {
			return nil, err
		}
		return nil, ErrQuizWindowClosed
	}

	if err := s.gradeAndFinalize(ctx, attempt, quiz, req.Answers, time.Now()); err != nil {
		return nil, err
	}

	s.logger.Info("Quiz attempt submitted",
		"attempt_id", attempt.ID,
		"score", attempt.Score,
		"percentage", attempt.Percentage)

	s.publishSubmitted(ctx, attempt, quiz)

	return s.buildAttemptResponse(attempt, quiz, false), nil
}

// ===== GET OPERATIONS =====

func (s *attemptService) GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if attempt.StudentID != userID {
		allowed, err := s.canViewAttempt(ctx, quiz, userID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, NewPermissionError(userID, id, "attempt", "view", "not owner or insufficient permissions")
		}
	}

	return s.buildAttemptResponse(attempt, quiz, false), nil
}

func (s *attemptService) GetResult(ctx context.Context, attemptID uint, userID string) (*AttemptResultResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if !attempt.IsSubmitted() {
		return nil, NewBusinessRuleError("result_requires_submission", "attempt has not been submitted yet")
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	enrolled := false
	if user.Role == models.RoleStudent {
		if attempt.StudentID != userID {
			return nil, NewPermissionError(userID, attemptID, "attempt", "view_result", "not owned by student")
		}
		enrolled, err = s.repo.Batch().IsEnrolled(ctx, s.db, quiz.BatchID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
	}

	if !s.policy.CanViewResults(user, quiz, enrolled) {
		return nil, NewPermissionError(userID, attemptID, "attempt", "view_result", "results not available to this user")
	}

	answers, err := s.repo.Answer().GetByAttempt(ctx, s.db, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	return s.buildResultResponse(attempt, quiz, answers), nil
}

// ===== LIST OPERATIONS =====

func (s *attemptService) GetByQuiz(ctx context.Context, quizID uint, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, 0, ErrQuizNotFound
		}
		return nil, 0, fmt.Errorf("failed to get quiz: %w", err)
	}

	allowed, err := s.canViewAttempt(ctx, quiz, userID)
	if err != nil {
		return nil, 0, err
	}
	if !allowed {
		return nil, 0, NewPermissionError(userID, quizID, "quiz", "list_attempts", "not owner or insufficient permissions")
	}

	attempts, total, err := s.repo.Attempt().GetByQuiz(ctx, s.db, quizID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = &AttemptResponse{
			QuizAttempt: attempt,
			CanSubmit:   !attempt.IsSubmitted(),
		}
	}
	return responses, total, nil
}

func (s *attemptService) GetByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error) {
	attempts, total, err := s.repo.Attempt().GetByStudent(ctx, s.db, studentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = &AttemptResponse{
			QuizAttempt: attempt,
			CanSubmit:   !attempt.IsSubmitted(),
		}
	}
	return responses, total, nil
}

// ===== VALIDATION =====

func (s *attemptService) CanStart(ctx context.Context, quizID uint, studentID string) (bool, error) {
	user, err := s.getUser(ctx, studentID)
	if err != nil {
		return false, err
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrQuizNotFound
		}
		return false, fmt.Errorf("failed to get quiz: %w", err)
	}

	enrolled, err := s.repo.Batch().IsEnrolled(ctx, s.db, quiz.BatchID, studentID)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}

	submitted, err := s.repo.Attempt().CountSubmitted(ctx, s.db, quizID, studentID)
	if err != nil {
		return false, fmt.Errorf("failed to count submitted attempts: %w", err)
	}

	return s.policy.CanAttempt(user, quiz, enrolled, submitted, time.Now()), nil
}
