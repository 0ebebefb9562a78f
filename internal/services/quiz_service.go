package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/classhub/lms-service/internal/events"
	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
	"github.com/classhub/lms-service/internal/validator"
)

type quizService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	policy         *AccessPolicy
	eventPublisher events.EventPublisher
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher) QuizService {
	return &quizService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		policy:         NewAccessPolicy(),
		eventPublisher: eventPublisher,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*QuizResponse, error) {
	s.logger.Info("Creating quiz", "creator_id", creatorID, "title", req.Title, "batch_id", req.BatchID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, NewBusinessRuleError("quiz_window", "end time must be after start time")
	}

	user, err := s.getUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	batch, err := s.repo.Batch().GetByID(ctx, s.db, req.BatchID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	if !s.policy.CanManageBatch(user, batch) {
		return nil, NewPermissionError(creatorID, req.BatchID, "batch", "create_quiz", "not batch owner")
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	quiz := &models.Quiz{
		BatchID:                req.BatchID,
		Title:                  req.Title,
		Description:            req.Description,
		Status:                 models.QuizDraft,
		StartTime:              req.StartTime,
		EndTime:                req.EndTime,
		Duration:               req.Duration,
		MaxAttempts:            maxAttempts,
		RandomizeQuestions:     req.RandomizeQuestions,
		RandomizeOptions:       req.RandomizeOptions,
		ShowResultsImmediately: req.ShowResultsImmediately,
		CreatedBy:              creatorID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Quiz().Create(ctx, tx, quiz)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created", "quiz_id", quiz.ID)
	return s.buildQuizResponse(ctx, quiz, user), nil
}

func (s *quizService) GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.checkQuizAccess(ctx, quiz, user); err != nil {
		return nil, err
	}

	return s.buildQuizResponse(ctx, quiz, user), nil
}

func (s *quizService) GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.checkQuizAccess(ctx, quiz, user); err != nil {
		return nil, err
	}

	// Students never see the answer key through this path.
	if user.Role == models.RoleStudent {
		for i := range quiz.Questions {
			quiz.Questions[i].Content = nil
		}
	}

	return s.buildQuizResponse(ctx, quiz, user), nil
}

func (s *quizService) Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error) {
	s.logger.Info("Updating quiz", "quiz_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !s.canAdminister(user, quiz) {
		return nil, NewPermissionError(userID, id, "quiz", "update", "not owner or insufficient permissions")
	}

	// Scheduling and delivery settings may change on any non-archived quiz.
	// Changes that alter what an attempt is graded against go through the
	// structural-edit gate instead.
	if quiz.Status == models.QuizArchived {
		return nil, NewBusinessRuleError("quiz_archived", "archived quizzes cannot be modified")
	}

	s.applyQuizUpdates(quiz, req)
	if !quiz.EndTime.After(quiz.StartTime) {
		return nil, NewBusinessRuleError("quiz_window", "end time must be after start time")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Quiz().Update(ctx, tx, quiz)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}

	return s.buildQuizResponse(ctx, quiz, user), nil
}

func (s *quizService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting quiz", "quiz_id", id, "user_id", userID)

	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if !s.canAdminister(user, quiz) {
		return NewPermissionError(userID, id, "quiz", "delete", "not owner or insufficient permissions")
	}

	hasAttempts, err := s.repo.Quiz().HasAttempts(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("failed to check attempts: %w", err)
	}

	if errs := s.validator.Business().ValidateDeletePermission(hasAttempts, quiz.Status); errs.HasErrors() {
		return errs
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Quiz().Delete(ctx, tx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	return nil
}

// ===== LIST OPERATIONS =====

func (s *quizService) GetByBatch(ctx context.Context, batchID uint, filters repositories.QuizFilters, userID string) (*QuizListResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Students only see published quizzes of batches they belong to.
	if user.Role == models.RoleStudent {
		enrolled, err := s.repo.Batch().IsEnrolled(ctx, s.db, batchID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if !enrolled {
			return nil, NewPermissionError(userID, batchID, "batch", "list_quizzes", "not enrolled in batch")
		}
		active := models.QuizActive
		filters.Status = &active
	}

	quizzes, total, err := s.repo.Quiz().GetByBatch(ctx, s.db, batchID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	return s.buildQuizListResponse(ctx, quizzes, total, filters, user), nil
}

func (s *quizService) GetByCreator(ctx context.Context, creatorID string, filters repositories.QuizFilters) (*QuizListResponse, error) {
	user, err := s.getUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	quizzes, total, err := s.repo.Quiz().GetByCreator(ctx, s.db, creatorID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	return s.buildQuizListResponse(ctx, quizzes, total, filters, user), nil
}

// ===== STATUS MANAGEMENT =====

func (s *quizService) UpdateStatus(ctx context.Context, id uint, req *UpdateStatusRequest, userID string) error {
	s.logger.Info("Updating quiz status", "quiz_id", id, "status", req.Status, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if !s.canAdminister(user, quiz) {
		return NewPermissionError(userID, id, "quiz", "update_status", "not owner or insufficient permissions")
	}

	questionCount, err := s.repo.Question().CountByQuiz(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}

	if errs := s.validator.Business().ValidateStatusTransition(quiz.Status, req.Status, int(questionCount)); errs.HasErrors() {
		return errs
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Quiz().UpdateStatus(ctx, tx, id, req.Status)
	})
	if err != nil {
		return fmt.Errorf("failed to update quiz status: %w", err)
	}

	switch req.Status {
	case models.QuizActive:
		s.publishStatusEvent(ctx, quiz, events.EventQuizPublished)
	case models.QuizArchived:
		s.publishStatusEvent(ctx, quiz, events.EventQuizArchived)
	}

	return nil
}

func (s *quizService) Publish(ctx context.Context, id uint, userID string) error {
	return s.UpdateStatus(ctx, id, &UpdateStatusRequest{Status: models.QuizActive}, userID)
}

func (s *quizService) Archive(ctx context.Context, id uint, userID string) error {
	return s.UpdateStatus(ctx, id, &UpdateStatusRequest{Status: models.QuizArchived}, userID)
}

// ===== STATISTICS =====

func (s *quizService) GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizStats, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !s.canAdminister(user, quiz) {
		return nil, NewPermissionError(userID, id, "quiz", "view_stats", "not owner or insufficient permissions")
	}

	stats, err := s.repo.Quiz().GetStats(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}
	return stats, nil
}

// ===== HELPERS =====

func (s *quizService) getQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

func (s *quizService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, s.db, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// canAdminister is the owner-or-admin gate used by every mutating quiz
// operation.
func (s *quizService) canAdminister(user *models.User, quiz *models.Quiz) bool {
	if user.Role == models.RoleAdmin {
		return true
	}
	return user.Role == models.RoleTeacher && quiz.CreatedBy == user.ID
}

// checkQuizAccess rejects reads from users with no relation to the quiz.
func (s *quizService) checkQuizAccess(ctx context.Context, quiz *models.Quiz, user *models.User) error {
	if s.canAdminister(user, quiz) {
		return nil
	}
	if user.Role == models.RoleStudent {
		enrolled, err := s.repo.Batch().IsEnrolled(ctx, s.db, quiz.BatchID, user.ID)
		if err != nil {
			return fmt.Errorf("failed to check enrollment: %w", err)
		}
		if enrolled && quiz.Status == models.QuizActive {
			return nil
		}
	}
	return NewPermissionError(user.ID, quiz.ID, "quiz", "read", "not owner or insufficient permissions")
}

func (s *quizService) applyQuizUpdates(quiz *models.Quiz, req *UpdateQuizRequest) {
	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.StartTime != nil {
		quiz.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		quiz.EndTime = *req.EndTime
	}
	if req.Duration != nil {
		quiz.Duration = *req.Duration
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}
	if req.RandomizeQuestions != nil {
		quiz.RandomizeQuestions = *req.RandomizeQuestions
	}
	if req.RandomizeOptions != nil {
		quiz.RandomizeOptions = *req.RandomizeOptions
	}
	if req.ShowResultsImmediately != nil {
		quiz.ShowResultsImmediately = *req.ShowResultsImmediately
	}
}

func (s *quizService) buildQuizResponse(ctx context.Context, quiz *models.Quiz, user *models.User) *QuizResponse {
	resp := &QuizResponse{
		Quiz:      quiz,
		CanEdit:   s.canAdminister(user, quiz) && quiz.Status != models.QuizArchived,
		CanDelete: s.canAdminister(user, quiz),
	}

	if user.Role == models.RoleStudent {
		enrolled, err := s.repo.Batch().IsEnrolled(ctx, s.db, quiz.BatchID, user.ID)
		if err != nil {
			s.logger.Error("failed to check enrollment", "quiz_id", quiz.ID, "error", err)
		} else {
			submitted, err := s.repo.Attempt().CountSubmitted(ctx, s.db, quiz.ID, user.ID)
			if err != nil {
				s.logger.Error("failed to count attempts", "quiz_id", quiz.ID, "error", err)
			} else {
				resp.CanAttempt = s.policy.CanAttempt(user, quiz, enrolled, submitted, time.Now())
			}
		}
	}

	return resp
}

func (s *quizService) buildQuizListResponse(ctx context.Context, quizzes []*models.Quiz, total int64, filters repositories.QuizFilters, user *models.User) *QuizListResponse {
	responses := make([]*QuizResponse, len(quizzes))
	for i, quiz := range quizzes {
		responses[i] = s.buildQuizResponse(ctx, quiz, user)
	}

	size := filters.Limit
	if size <= 0 {
		size = len(responses)
	}
	page := 1
	if size > 0 {
		page = filters.Offset/size + 1
	}

	return &QuizListResponse{
		Quizzes: responses,
		Total:   total,
		Page:    page,
		Size:    size,
	}
}

func (s *quizService) publishStatusEvent(ctx context.Context, quiz *models.Quiz, eventType string) {
	if s.eventPublisher == nil {
		return
	}

	event := events.NewEvent(eventType, map[string]interface{}{
		"quiz_id":  quiz.ID,
		"batch_id": quiz.BatchID,
		"title":    quiz.Title,
	})
	if err := s.eventPublisher.Publish(ctx, events.TopicQuizzes, event); err != nil {
		s.logger.Error("failed to publish quiz event",
			"quiz_id", quiz.ID,
			"event_type", eventType,
			"error", err)
	}
}
