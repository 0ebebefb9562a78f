package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/classhub/lms-service/internal/cache"
	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
)

type QuizPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuizPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuizPostgreSQL) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(quiz).Error; err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	return nil
}

// GetByID retrieves a quiz by ID with caching
func (q *QuizPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var quiz models.Quiz

	err := q.cacheManager.Quiz.CacheOrExecute(ctx, cacheKey, &quiz, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var dbQuiz models.Quiz
		if err := db.WithContext(ctx).First(&dbQuiz, id).Error; err != nil {
			return nil, err
		}
		return &dbQuiz, nil
	})

	return &quiz, err
}

func (q *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.getDB(tx)
	var quiz models.Quiz
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC, id ASC")
		}).
		First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(quiz).Error; err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	q.cacheManager.InvalidateQuiz(ctx, quiz.ID)
	return nil
}

func (q *QuizPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.Quiz{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	q.cacheManager.InvalidateQuiz(ctx, id)
	return nil
}

func (q *QuizPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	db := q.getDB(tx)
	var quizzes []*models.Quiz
	var total int64

	query := db.WithContext(ctx).Model(&models.Quiz{})
	query = q.helpers.ApplyQuizFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, err
	}

	return quizzes, total, nil
}

func (q *QuizPostgreSQL) GetByBatch(ctx context.Context, tx *gorm.DB, batchID uint, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	filters.BatchID = &batchID
	return q.List(ctx, tx, filters)
}

func (q *QuizPostgreSQL) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	filters.CreatedBy = &creatorID
	return q.List(ctx, tx, filters)
}

func (q *QuizPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.QuizStatus) error {
	db := q.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update quiz status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	q.cacheManager.InvalidateQuiz(ctx, id)
	return nil
}

func (q *QuizPostgreSQL) ExistsByTitle(ctx context.Context, tx *gorm.DB, title string, batchID uint, excludeID *uint) (bool, error) {
	db := q.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("title = ? AND batch_id = ?", title, batchID)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (q *QuizPostgreSQL) HasAttempts(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := q.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (q *QuizPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, id uint) (*repositories.QuizStats, error) {
	db := q.getDB(tx)
	stats := &repositories.QuizStats{}

	var totals struct {
		Total     int64
		Submitted int64
		AvgScore  float64
		AvgPct    float64
	}
	err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Select(`COUNT(*) AS total,
			COUNT(submitted_at) AS submitted,
			COALESCE(AVG(score) FILTER (WHERE submitted_at IS NOT NULL), 0) AS avg_score,
			COALESCE(AVG(percentage) FILTER (WHERE submitted_at IS NOT NULL), 0) AS avg_pct`).
		Where("quiz_id = ?", id).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}

	stats.TotalAttempts = int(totals.Total)
	stats.SubmittedAttempts = int(totals.Submitted)
	stats.AverageScore = totals.AvgScore
	stats.AveragePercentage = totals.AvgPct

	var qinfo struct {
		Count int64
		Marks float64
	}
	err = db.WithContext(ctx).
		Model(&models.Question{}).
		Select("COUNT(*) AS count, COALESCE(SUM(marks), 0) AS marks").
		Where("quiz_id = ?", id).
		Scan(&qinfo).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get question totals: %w", err)
	}

	stats.QuestionCount = int(qinfo.Count)
	stats.TotalMarks = qinfo.Marks

	return stats, nil
}

func (q *QuizPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}
