package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
	"github.com/classhub/lms-service/internal/validator"
)

type attendanceService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	policy    *AccessPolicy
}

func NewAttendanceService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) AttendanceService {
	return &attendanceService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		policy:    NewAccessPolicy(),
	}
}

func (s *attendanceService) Record(ctx context.Context, batchID uint, req *RecordAttendanceRequest, userID string) error {
	s.logger.Info("Recording attendance", "batch_id", batchID, "date", req.Date, "entries", len(req.Entries))

	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.requireManageable(ctx, batchID, userID, "record_attendance"); err != nil {
		return err
	}

	// Marking is idempotent per day: re-recording a student overwrites the
	// earlier status for the same date.
	day := req.Date.UTC().Truncate(24 * time.Hour)

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range req.Entries {
			enrolled, err := s.repo.Batch().IsEnrolled(ctx, tx, batchID, entry.StudentID)
			if err != nil {
				return fmt.Errorf("failed to check enrollment: %w", err)
			}
			if !enrolled {
				return NewBusinessRuleError("attendance_enrollment", fmt.Sprintf("student %s is not enrolled in this batch", entry.StudentID))
			}

			record := &models.AttendanceRecord{
				BatchID:    batchID,
				StudentID:  entry.StudentID,
				Date:       day,
				Status:     entry.Status,
				RecordedBy: userID,
			}
			if err := s.repo.Attendance().Upsert(ctx, tx, record); err != nil {
				return fmt.Errorf("failed to save attendance record: %w", err)
			}
		}
		return nil
	})
}

func (s *attendanceService) GetByDate(ctx context.Context, batchID uint, date time.Time, userID string) ([]*models.AttendanceRecord, error) {
	if _, err := s.requireManageable(ctx, batchID, userID, "view_attendance"); err != nil {
		return nil, err
	}

	records, err := s.repo.Attendance().GetByBatchAndDate(ctx, s.db, batchID, date.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	return records, nil
}

func (s *attendanceService) GetStudentHistory(ctx context.Context, batchID uint, studentID string, filters repositories.AttendanceFilters, userID string) ([]*models.AttendanceRecord, int64, error) {
	// Students may read their own history, staff the whole batch.
	if userID != studentID {
		if _, err := s.requireManageable(ctx, batchID, userID, "view_attendance"); err != nil {
			return nil, 0, err
		}
	}

	records, total, err := s.repo.Attendance().GetByStudent(ctx, s.db, batchID, studentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance records: %w", err)
	}
	return records, total, nil
}

func (s *attendanceService) GetBatchStats(ctx context.Context, batchID uint, from, to time.Time, userID string) (*repositories.BatchAttendanceStats, error) {
	if _, err := s.requireManageable(ctx, batchID, userID, "view_attendance_stats"); err != nil {
		return nil, err
	}

	stats, err := s.repo.Attendance().GetBatchStats(ctx, s.db, batchID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance stats: %w", err)
	}
	return stats, nil
}

func (s *attendanceService) requireManageable(ctx context.Context, batchID uint, userID, action string) (*models.Batch, error) {
	batch, err := s.repo.Batch().GetByID(ctx, s.db, batchID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	user, err := s.repo.User().GetByID(ctx, s.db, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	allowed := s.policy.CanManageBatch(user, batch)
	if action == "record_attendance" {
		allowed = s.policy.CanRecordAttendance(user, batch)
	}
	if !allowed {
		return nil, NewPermissionError(userID, batchID, "batch", action, "not owner or insufficient permissions")
	}
	return batch, nil
}
