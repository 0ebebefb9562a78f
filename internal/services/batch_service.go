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

type batchService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	policy         *AccessPolicy
	eventPublisher events.EventPublisher
}

func NewBatchService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher) BatchService {
	return &batchService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		policy:         NewAccessPolicy(),
		eventPublisher: eventPublisher,
	}
}

// ===== CRUD OPERATIONS =====

func (s *batchService) Create(ctx context.Context, req *CreateBatchRequest, teacherID string) (*BatchResponse, error) {
	s.logger.Info("Creating batch", "teacher_id", teacherID, "name", req.Name)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.getUser(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleTeacher && user.Role != models.RoleAdmin {
		return nil, NewPermissionError(teacherID, 0, "batch", "create", "insufficient role permissions")
	}

	batch := &models.Batch{
		Name:        req.Name,
		Description: req.Description,
		TeacherID:   teacherID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Batch().Create(ctx, tx, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	s.logger.Info("Batch created", "batch_id", batch.ID)
	return &BatchResponse{Batch: batch, CanEdit: true}, nil
}

func (s *batchService) GetByID(ctx context.Context, id uint, userID string) (*BatchResponse, error) {
	batch, err := s.getBatch(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanManageBatch(user, batch) {
		enrolled, err := s.repo.Batch().IsEnrolled(ctx, s.db, id, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if !enrolled {
			return nil, NewPermissionError(userID, id, "batch", "read", "not owner or member")
		}
	}

	return s.buildBatchResponse(ctx, batch, user), nil
}

func (s *batchService) Update(ctx context.Context, id uint, req *UpdateBatchRequest, userID string) (*BatchResponse, error) {
	s.logger.Info("Updating batch", "batch_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	batch, user, err := s.requireManageable(ctx, id, userID, "update")
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		batch.Name = *req.Name
	}
	if req.Description != nil {
		batch.Description = req.Description
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Batch().Update(ctx, tx, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update batch: %w", err)
	}

	return s.buildBatchResponse(ctx, batch, user), nil
}

func (s *batchService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting batch", "batch_id", id, "user_id", userID)

	if _, _, err := s.requireManageable(ctx, id, userID, "delete"); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Batch().Delete(ctx, tx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

func (s *batchService) GetByTeacher(ctx context.Context, teacherID string, filters repositories.BatchFilters) ([]*BatchResponse, int64, error) {
	batches, total, err := s.repo.Batch().GetByTeacher(ctx, s.db, teacherID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list batches: %w", err)
	}

	responses := make([]*BatchResponse, len(batches))
	for i, batch := range batches {
		responses[i] = &BatchResponse{Batch: batch, CanEdit: batch.TeacherID == teacherID}
	}
	return responses, total, nil
}

func (s *batchService) GetByStudent(ctx context.Context, studentID string) ([]*BatchResponse, error) {
	batches, err := s.repo.Batch().GetByStudent(ctx, s.db, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	responses := make([]*BatchResponse, len(batches))
	for i, batch := range batches {
		responses[i] = &BatchResponse{Batch: batch}
	}
	return responses, nil
}

// ===== ENROLLMENT MANAGEMENT =====

func (s *batchService) Enroll(ctx context.Context, batchID uint, req *EnrollRequest, userID string) error {
	s.logger.Info("Enrolling student", "batch_id", batchID, "student_id", req.StudentID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if _, _, err := s.requireManageable(ctx, batchID, userID, "enroll"); err != nil {
		return err
	}

	student, err := s.repo.User().GetByID(ctx, s.db, req.StudentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get student: %w", err)
	}
	if student.Role != models.RoleStudent {
		return NewBusinessRuleError("enroll_student_only", "only students can be enrolled in a batch")
	}

	enrolled, err := s.repo.Batch().IsEnrolled(ctx, s.db, batchID, req.StudentID)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return ErrDuplicateEnrollment
	}

	enrollment := &models.BatchEnrollment{
		BatchID:   batchID,
		StudentID: req.StudentID,
		Active:    true,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Batch().Enroll(ctx, tx, enrollment)
	})
	if err != nil {
		return fmt.Errorf("failed to enroll student: %w", err)
	}

	s.publishEnrollment(ctx, batchID, req.StudentID)
	return nil
}

func (s *batchService) Unenroll(ctx context.Context, batchID uint, studentID string, userID string) error {
	s.logger.Info("Unenrolling student", "batch_id", batchID, "student_id", studentID, "user_id", userID)

	if _, _, err := s.requireManageable(ctx, batchID, userID, "unenroll"); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Batch().Unenroll(ctx, tx, batchID, studentID)
	})
	if err != nil {
		return fmt.Errorf("failed to unenroll student: %w", err)
	}
	return nil
}

func (s *batchService) GetEnrollments(ctx context.Context, batchID uint, userID string) ([]*models.BatchEnrollment, error) {
	if _, _, err := s.requireManageable(ctx, batchID, userID, "list_enrollments"); err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Batch().GetEnrollments(ctx, s.db, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

func (s *batchService) IsEnrolled(ctx context.Context, batchID uint, studentID string) (bool, error) {
	return s.repo.Batch().IsEnrolled(ctx, s.db, batchID, studentID)
}

// ===== HELPERS =====

func (s *batchService) getBatch(ctx context.Context, id uint) (*models.Batch, error) {
	batch, err := s.repo.Batch().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

func (s *batchService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, s.db, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *batchService) requireManageable(ctx context.Context, batchID uint, userID, action string) (*models.Batch, *models.User, error) {
	batch, err := s.getBatch(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !s.policy.CanManageBatch(user, batch) {
		return nil, nil, NewPermissionError(userID, batchID, "batch", action, "not owner or insufficient permissions")
	}
	return batch, user, nil
}

func (s *batchService) buildBatchResponse(ctx context.Context, batch *models.Batch, user *models.User) *BatchResponse {
	resp := &BatchResponse{
		Batch:   batch,
		CanEdit: s.policy.CanManageBatch(user, batch),
	}

	count, err := s.repo.Batch().CountEnrollments(ctx, s.db, batch.ID)
	if err != nil {
		s.logger.Error("failed to count enrollments", "batch_id", batch.ID, "error", err)
	} else {
		resp.EnrollmentCount = count
	}
	return resp
}

func (s *batchService) publishEnrollment(ctx context.Context, batchID uint, studentID string) {
	if s.eventPublisher == nil {
		return
	}

	event := events.NewEvent(events.EventStudentEnrolled, map[string]interface{}{
		"batch_id":   batchID,
		"student_id": studentID,
	})
	if err := s.eventPublisher.Publish(ctx, events.TopicBatches, event); err != nil {
		s.logger.Error("failed to publish enrollment event",
			"batch_id", batchID,
			"student_id", studentID,
			"error", err)
	}
}
