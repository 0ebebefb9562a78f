package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/classhub/lms-service/internal/cache"
	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
)

type BatchPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewBatchPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.BatchRepository {
	return &BatchPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (b *BatchPostgreSQL) Create(ctx context.Context, tx *gorm.DB, batch *models.Batch) error {
	db := b.getDB(tx)
	if err := db.WithContext(ctx).Create(batch).Error; err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

func (b *BatchPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Batch, error) {
	db := b.getDB(tx)
	var batch models.Batch
	if err := db.WithContext(ctx).First(&batch, id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (b *BatchPostgreSQL) GetByIDWithEnrollments(ctx context.Context, tx *gorm.DB, id uint) (*models.Batch, error) {
	db := b.getDB(tx)
	var batch models.Batch
	if err := db.WithContext(ctx).
		Preload("Enrollments", "active = ?", true).
		Preload("Enrollments.Student").
		First(&batch, id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (b *BatchPostgreSQL) Update(ctx context.Context, tx *gorm.DB, batch *models.Batch) error {
	db := b.getDB(tx)
	if err := db.WithContext(ctx).Save(batch).Error; err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}
	return nil
}

func (b *BatchPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := b.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.Batch{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

func (b *BatchPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.BatchFilters) ([]*models.Batch, int64, error) {
	db := b.getDB(tx)
	var batches []*models.Batch
	var total int64

	query := db.WithContext(ctx).Model(&models.Batch{})
	if filters.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filters.TeacherID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = b.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&batches).Error; err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}

func (b *BatchPostgreSQL) GetByTeacher(ctx context.Context, tx *gorm.DB, teacherID string, filters repositories.BatchFilters) ([]*models.Batch, int64, error) {
	filters.TeacherID = &teacherID
	return b.List(ctx, tx, filters)
}

func (b *BatchPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.Batch, error) {
	db := b.getDB(tx)
	var batches []*models.Batch
	err := db.WithContext(ctx).
		Joins("JOIN batch_enrollments ON batch_enrollments.batch_id = batches.id").
		Where("batch_enrollments.student_id = ? AND batch_enrollments.active = ?", studentID, true).
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get batches by student: %w", err)
	}
	return batches, nil
}

// Enroll adds a student to a batch, reactivating a previous enrollment
// if one exists.
func (b *BatchPostgreSQL) Enroll(ctx context.Context, tx *gorm.DB, enrollment *models.BatchEnrollment) error {
	db := b.getDB(tx)
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "batch_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "updated_at"}),
	}).Create(enrollment).Error
	if err != nil {
		return fmt.Errorf("failed to enroll student: %w", err)
	}
	b.cacheManager.Exists.Delete(ctx, fmt.Sprintf("enrolled:%d:%s", enrollment.BatchID, enrollment.StudentID))
	return nil
}

func (b *BatchPostgreSQL) Unenroll(ctx context.Context, tx *gorm.DB, batchID uint, studentID string) error {
	db := b.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.BatchEnrollment{}).
		Where("batch_id = ? AND student_id = ?", batchID, studentID).
		Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to unenroll student: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	b.cacheManager.Exists.Delete(ctx, fmt.Sprintf("enrolled:%d:%s", batchID, studentID))
	return nil
}

func (b *BatchPostgreSQL) GetEnrollments(ctx context.Context, tx *gorm.DB, batchID uint) ([]*models.BatchEnrollment, error) {
	db := b.getDB(tx)
	var enrollments []*models.BatchEnrollment
	if err := db.WithContext(ctx).
		Where("batch_id = ? AND active = ?", batchID, true).
		Preload("Student").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to get enrollments: %w", err)
	}
	return enrollments, nil
}

// IsEnrolled reports whether a student has an active enrollment, with caching
func (b *BatchPostgreSQL) IsEnrolled(ctx context.Context, tx *gorm.DB, batchID uint, studentID string) (bool, error) {
	db := b.getDB(tx)
	cacheKey := fmt.Sprintf("enrolled:%d:%s", batchID, studentID)
	var enrolled bool

	err := b.cacheManager.Exists.CacheOrExecute(ctx, cacheKey, &enrolled, cache.ExistsCacheConfig.TTL, func() (interface{}, error) {
		var count int64
		if err := db.WithContext(ctx).
			Model(&models.BatchEnrollment{}).
			Where("batch_id = ? AND student_id = ? AND active = ?", batchID, studentID, true).
			Count(&count).Error; err != nil {
			return nil, err
		}
		result := count > 0
		return &result, nil
	})

	return enrolled, err
}

func (b *BatchPostgreSQL) CountEnrollments(ctx context.Context, tx *gorm.DB, batchID uint) (int64, error) {
	db := b.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.BatchEnrollment{}).
		Where("batch_id = ? AND active = ?", batchID, true).
		Count(&count).Error
	return count, err
}

func (b *BatchPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return b.db
}

// ===== ATTENDANCE REPOSITORY IMPLEMENTATION =====

// AttendancePostgreSQL implements the AttendanceRepository interface
type AttendancePostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttendancePostgreSQL(db *gorm.DB) repositories.AttendanceRepository {
	return &AttendancePostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// Upsert writes a record, replacing any previous record for the same
// student on the same date.
func (a *AttendancePostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, record *models.AttendanceRecord) error {
	db := a.getDB(tx)
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "batch_id"}, {Name: "student_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "recorded_by", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert attendance record: %w", err)
	}
	return nil
}

func (a *AttendancePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AttendanceRecord, error) {
	db := a.getDB(tx)
	var record models.AttendanceRecord
	if err := db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (a *AttendancePostgreSQL) GetByBatchAndDate(ctx context.Context, tx *gorm.DB, batchID uint, date time.Time) ([]*models.AttendanceRecord, error) {
	db := a.getDB(tx)
	var records []*models.AttendanceRecord
	if err := db.WithContext(ctx).
		Where("batch_id = ? AND date = ?", batchID, date.Format("2006-01-02")).
		Preload("Student").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get attendance records: %w", err)
	}
	return records, nil
}

func (a *AttendancePostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, batchID uint, studentID string, filters repositories.AttendanceFilters) ([]*models.AttendanceRecord, int64, error) {
	db := a.getDB(tx)
	var records []*models.AttendanceRecord
	var total int64

	query := db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("batch_id = ? AND student_id = ?", batchID, studentID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("date >= ?", filters.DateFrom.Format("2006-01-02"))
	}
	if filters.DateTo != nil {
		query = query.Where("date <= ?", filters.DateTo.Format("2006-01-02"))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("date DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (a *AttendancePostgreSQL) GetBatchStats(ctx context.Context, tx *gorm.DB, batchID uint, from, to time.Time) (*repositories.BatchAttendanceStats, error) {
	db := a.getDB(tx)

	var rows []struct {
		Status models.AttendanceStatus
		Count  int
	}
	err := db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Select("status, COUNT(*) AS count").
		Where("batch_id = ? AND date >= ? AND date <= ?", batchID, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance stats: %w", err)
	}

	stats := &repositories.BatchAttendanceStats{
		ByStatus: make(map[models.AttendanceStatus]int),
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalRecords += row.Count
	}
	if stats.TotalRecords > 0 {
		stats.PresentRate = float64(stats.ByStatus[models.AttendancePresent]) / float64(stats.TotalRecords) * 100
	}

	return stats, nil
}

func (a *AttendancePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
