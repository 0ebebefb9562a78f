package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
	"github.com/classhub/lms-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	policy    *AccessPolicy
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		policy:    NewAccessPolicy(),
	}
}

// ===== CRUD OPERATIONS =====

func (s *questionService) Create(ctx context.Context, quizID uint, req *CreateQuestionRequest, userID string) (*QuestionResponse, error) {
	s.logger.Info("Creating question", "quiz_id", quizID, "type", req.Type, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := validateQuestionContent(req.Type, req.Content); err != nil {
		return nil, err
	}

	quiz, err := s.checkStructuralEdit(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	displayOrder := req.DisplayOrder
	if displayOrder == 0 {
		count, err := s.repo.Question().CountByQuiz(ctx, s.db, quizID)
		if err != nil {
			return nil, fmt.Errorf("failed to count questions: %w", err)
		}
		displayOrder = int(count) + 1
	}

	question := &models.Question{
		QuizID:       quizID,
		Type:         req.Type,
		Text:         req.Text,
		Content:      req.Content,
		Marks:        req.Marks,
		DisplayOrder: displayOrder,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Question().Create(ctx, tx, question); err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
		return s.recomputeTotalMarks(ctx, tx, quiz)
	})
	if err != nil {
		return nil, err
	}

	return &QuestionResponse{Question: question, CanEdit: true}, nil
}

func (s *questionService) CreateBatch(ctx context.Context, quizID uint, reqs []*CreateQuestionRequest, userID string) ([]*QuestionResponse, error) {
	s.logger.Info("Creating questions in batch", "quiz_id", quizID, "count", len(reqs), "user_id", userID)

	if len(reqs) == 0 {
		return nil, ErrInvalidArgument
	}
	for i, req := range reqs {
		if err := s.validator.Validate(req); err != nil {
			return nil, fmt.Errorf("question %d: validation failed: %w", i+1, err)
		}
		if err := validateQuestionContent(req.Type, req.Content); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}

	quiz, err := s.checkStructuralEdit(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.Question().CountByQuiz(ctx, s.db, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	questions := make([]*models.Question, len(reqs))
	for i, req := range reqs {
		displayOrder := req.DisplayOrder
		if displayOrder == 0 {
			displayOrder = int(count) + i + 1
		}
		questions[i] = &models.Question{
			QuizID:       quizID,
			Type:         req.Type,
			Text:         req.Text,
			Content:      req.Content,
			Marks:        req.Marks,
			DisplayOrder: displayOrder,
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Question().CreateBatch(ctx, tx, questions); err != nil {
			return fmt.Errorf("failed to create questions: %w", err)
		}
		return s.recomputeTotalMarks(ctx, tx, quiz)
	})
	if err != nil {
		return nil, err
	}

	responses := make([]*QuestionResponse, len(questions))
	for i, q := range questions {
		responses[i] = &QuestionResponse{Question: q, CanEdit: true}
	}
	return responses, nil
}

func (s *questionService) GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error) {
	question, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	quiz, user, err := s.loadQuizAndUser(ctx, question.QuizID, userID)
	if err != nil {
		return nil, err
	}

	if user.Role == models.RoleStudent {
		return nil, NewPermissionError(userID, id, "question", "read", "students receive questions through attempts")
	}
	if user.Role == models.RoleTeacher && quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "question", "read", "not quiz owner")
	}

	attemptCount, err := s.repo.Attempt().CountByQuiz(ctx, s.db, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	return &QuestionResponse{
		Question: question,
		CanEdit:  s.policy.CanEditQuizStructure(user, quiz, attemptCount),
	}, nil
}

func (s *questionService) GetByQuiz(ctx context.Context, quizID uint, userID string) ([]*QuestionResponse, error) {
	quiz, user, err := s.loadQuizAndUser(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	if user.Role == models.RoleStudent {
		return nil, NewPermissionError(userID, quizID, "quiz", "list_questions", "students receive questions through attempts")
	}
	if user.Role == models.RoleTeacher && quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, quizID, "quiz", "list_questions", "not quiz owner")
	}

	questions, err := s.repo.Question().GetByQuiz(ctx, s.db, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	attemptCount, err := s.repo.Attempt().CountByQuiz(ctx, s.db, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	canEdit := s.policy.CanEditQuizStructure(user, quiz, attemptCount)

	responses := make([]*QuestionResponse, len(questions))
	for i, q := range questions {
		responses[i] = &QuestionResponse{Question: q, CanEdit: canEdit}
	}
	return responses, nil
}

func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error) {
	s.logger.Info("Updating question", "question_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	question, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	quiz, err := s.checkStructuralEdit(ctx, question.QuizID, userID)
	if err != nil {
		return nil, err
	}

	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Content != nil {
		if err := validateQuestionContent(question.Type, *req.Content); err != nil {
			return nil, err
		}
		question.Content = *req.Content
	}
	if req.Marks != nil {
		question.Marks = *req.Marks
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Question().Update(ctx, tx, question); err != nil {
			return fmt.Errorf("failed to update question: %w", err)
		}
		return s.recomputeTotalMarks(ctx, tx, quiz)
	})
	if err != nil {
		return nil, err
	}

	return &QuestionResponse{Question: question, CanEdit: true}, nil
}

func (s *questionService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting question", "question_id", id, "user_id", userID)

	question, err := s.getQuestion(ctx, id)
	if err != nil {
		return err
	}

	quiz, err := s.checkStructuralEdit(ctx, question.QuizID, userID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Question().Delete(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete question: %w", err)
		}
		return s.recomputeTotalMarks(ctx, tx, quiz)
	})
}

func (s *questionService) Reorder(ctx context.Context, quizID uint, orderedIDs []uint, userID string) error {
	s.logger.Info("Reordering questions", "quiz_id", quizID, "user_id", userID)

	if len(orderedIDs) == 0 {
		return ErrInvalidArgument
	}

	if _, err := s.checkStructuralEdit(ctx, quizID, userID); err != nil {
		return err
	}

	count, err := s.repo.Question().CountByQuiz(ctx, s.db, quizID)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	if int64(len(orderedIDs)) != count {
		return NewBusinessRuleError("reorder_complete", "reorder must include every question of the quiz exactly once")
	}
	seen := make(map[uint]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return NewBusinessRuleError("reorder_complete", "reorder must include every question of the quiz exactly once")
		}
		seen[id] = true
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Question().UpdateDisplayOrder(ctx, tx, quizID, orderedIDs)
	})
}

// ===== HELPERS =====

func (s *questionService) getQuestion(ctx context.Context, id uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

func (s *questionService) loadQuizAndUser(ctx context.Context, quizID uint, userID string) (*models.Quiz, *models.User, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrQuizNotFound
		}
		return nil, nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	user, err := s.repo.User().GetByID(ctx, s.db, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	return quiz, user, nil
}

// checkStructuralEdit is the single gate for every change to a quiz's
// question set. It enforces both ownership and the draft-with-no-attempts
// rule.
func (s *questionService) checkStructuralEdit(ctx context.Context, quizID uint, userID string) (*models.Quiz, error) {
	quiz, user, err := s.loadQuizAndUser(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	if user.Role != models.RoleAdmin && (user.Role != models.RoleTeacher || quiz.CreatedBy != userID) {
		return nil, NewPermissionError(userID, quizID, "quiz", "edit_structure", "not owner or insufficient permissions")
	}

	attemptCount, err := s.repo.Attempt().CountByQuiz(ctx, s.db, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	if errs := s.validator.Business().ValidateStructuralEdit(quiz.Status, attemptCount); errs.HasErrors() {
		return nil, errs
	}

	return quiz, nil
}

// recomputeTotalMarks keeps the stored quiz total in step with its
// questions. Runs inside the same transaction as the structural change.
func (s *questionService) recomputeTotalMarks(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	total, err := s.repo.Question().SumMarksByQuiz(ctx, tx, quiz.ID)
	if err != nil {
		return fmt.Errorf("failed to sum question marks: %w", err)
	}
	quiz.TotalMarks = total
	if err := s.repo.Quiz().Update(ctx, tx, quiz); err != nil {
		return fmt.Errorf("failed to update quiz total marks: %w", err)
	}
	return nil
}

// validateQuestionContent checks the type-specific content payload. The
// option set must be present exactly when the type carries options, and the
// answer key must reference real options.
func validateQuestionContent(questionType models.QuestionType, content []byte) error {
	switch questionType {
	case models.SingleChoice:
		var c models.SingleChoiceContent
		if err := json.Unmarshal(content, &c); err != nil {
			return NewBusinessRuleError("question_content", "invalid single choice content")
		}
		if len(c.Options) < 2 {
			return NewBusinessRuleError("question_content", "single choice question needs at least two options")
		}
		if !optionExists(c.Options, c.CorrectAnswer) {
			return NewBusinessRuleError("question_content", "correct answer must reference an option")
		}
	case models.MultipleChoice:
		var c models.MultipleChoiceContent
		if err := json.Unmarshal(content, &c); err != nil {
			return NewBusinessRuleError("question_content", "invalid multiple choice content")
		}
		if len(c.Options) < 2 {
			return NewBusinessRuleError("question_content", "multiple choice question needs at least two options")
		}
		if len(c.CorrectAnswers) == 0 {
			return NewBusinessRuleError("question_content", "multiple choice question needs at least one correct answer")
		}
		for _, answer := range c.CorrectAnswers {
			if !optionExists(c.Options, answer) {
				return NewBusinessRuleError("question_content", "correct answers must reference options")
			}
		}
	case models.TrueFalse:
		var c models.TrueFalseContent
		if err := json.Unmarshal(content, &c); err != nil {
			return NewBusinessRuleError("question_content", "invalid true/false content")
		}
	case models.ShortAnswer:
		var c models.ShortAnswerContent
		if err := json.Unmarshal(content, &c); err != nil {
			return NewBusinessRuleError("question_content", "invalid short answer content")
		}
		if len(c.AcceptedAnswers) == 0 {
			return NewBusinessRuleError("question_content", "short answer question needs at least one accepted answer")
		}
	default:
		return NewBusinessRuleError("question_type", fmt.Sprintf("unsupported question type: %s", questionType))
	}
	return nil
}

func optionExists(options []models.ChoiceOption, id string) bool {
	for _, option := range options {
		if option.ID == id {
			return true
		}
	}
	return false
}
