package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
	"github.com/classhub/lms-service/internal/validator"
)

// In-memory repository doubles for the attempt lifecycle paths.

type stubAttemptRepo struct {
	attempt   *models.QuizAttempt
	createErr error
	created   []*models.QuizAttempt
	updated   []*models.QuizAttempt
}

func (s *stubAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, attempt)
	return nil
}

func (s *stubAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	if s.attempt == nil || s.attempt.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.attempt, nil
}

func (s *stubAttemptRepo) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	return s.GetByID(ctx, tx, id)
}

func (s *stubAttemptRepo) Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	s.updated = append(s.updated, attempt)
	return nil
}

func (s *stubAttemptRepo) GetByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (*models.QuizAttempt, error) {
	if s.attempt == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.attempt, nil
}

func (s *stubAttemptRepo) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	return nil, 0, nil
}

func (s *stubAttemptRepo) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	return nil, 0, nil
}

func (s *stubAttemptRepo) CountSubmitted(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (int64, error) {
	return 0, nil
}

func (s *stubAttemptRepo) CountByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error) {
	return 0, nil
}

type stubAnswerRepo struct {
	upserted []*models.AttemptAnswer
	batched  []*models.AttemptAnswer
}

func (s *stubAnswerRepo) Upsert(ctx context.Context, tx *gorm.DB, answer *models.AttemptAnswer) error {
	s.upserted = append(s.upserted, answer)
	return nil
}

func (s *stubAnswerRepo) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AttemptAnswer, error) {
	return nil, nil
}

func (s *stubAnswerRepo) UpdateBatch(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error {
	s.batched = append(s.batched, answers...)
	return nil
}

type stubQuizRepo struct {
	quiz *models.Quiz
}

func (s *stubQuizRepo) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error { return nil }

func (s *stubQuizRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	if s.quiz == nil || s.quiz.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.quiz, nil
}

func (s *stubQuizRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	return s.GetByID(ctx, tx, id)
}

func (s *stubQuizRepo) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error { return nil }
func (s *stubQuizRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error           { return nil }

func (s *stubQuizRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	return nil, 0, nil
}

func (s *stubQuizRepo) GetByBatch(ctx context.Context, tx *gorm.DB, batchID uint, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	return nil, 0, nil
}

func (s *stubQuizRepo) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	return nil, 0, nil
}

func (s *stubQuizRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.QuizStatus) error {
	return nil
}

func (s *stubQuizRepo) ExistsByTitle(ctx context.Context, tx *gorm.DB, title string, batchID uint, excludeID *uint) (bool, error) {
	return false, nil
}

func (s *stubQuizRepo) HasAttempts(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	return false, nil
}

func (s *stubQuizRepo) GetStats(ctx context.Context, tx *gorm.DB, id uint) (*repositories.QuizStats, error) {
	return nil, nil
}

type stubRepository struct {
	attempts *stubAttemptRepo
	answers  *stubAnswerRepo
	quizzes  *stubQuizRepo
}

func (r *stubRepository) Quiz() repositories.QuizRepository                 { return r.quizzes }
func (r *stubRepository) Question() repositories.QuestionRepository         { return nil }
func (r *stubRepository) Attempt() repositories.AttemptRepository           { return r.attempts }
func (r *stubRepository) Answer() repositories.AnswerRepository             { return r.answers }
func (r *stubRepository) Batch() repositories.BatchRepository               { return nil }
func (r *stubRepository) Attendance() repositories.AttendanceRepository     { return nil }
func (r *stubRepository) User() repositories.UserRepository                 { return nil }
func (r *stubRepository) Notification() repositories.NotificationRepository { return nil }
func (r *stubRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}
func (r *stubRepository) Ping(ctx context.Context) error { return nil }
func (r *stubRepository) Close() error                   { return nil }

func newStubAttemptService(repo repositories.Repository) *attemptService {
	return &attemptService{
		repo:       repo,
		logger:     slog.New(slog.NewTextHandler(os.Stdout, nil)),
		validator:  validator.New(),
		randomizer: NewRandomizer(),
		scorer:     NewScorer(),
		policy:     NewAccessPolicy(),
	}
}

func TestSubmitTwiceKeepsFirstResult(t *testing.T) {
	submittedAt := time.Now().Add(-time.Minute)
	attempt := &models.QuizAttempt{
		ID:          7,
		QuizID:      1,
		StudentID:   "student-1",
		StartedAt:   time.Now().Add(-30 * time.Minute),
		SubmittedAt: &submittedAt,
		Score:       8,
		Percentage:  80,
		Completed:   true,
	}
	repo := &stubRepository{
		attempts: &stubAttemptRepo{attempt: attempt},
		answers:  &stubAnswerRepo{},
		quizzes:  &stubQuizRepo{},
	}
	s := newStubAttemptService(repo)

	_, err := s.Submit(context.Background(), &SubmitAttemptRequest{AttemptID: 7}, "student-1")
	if err != ErrAttemptAlreadySubmitted {
		t.Fatalf("err = %v, want ErrAttemptAlreadySubmitted", err)
	}
	if attempt.Score != 8 || !attempt.SubmittedAt.Equal(submittedAt) {
		t.Error("Second submit must leave score and submission time unchanged")
	}
	if len(repo.attempts.updated) != 0 {
		t.Error("Second submit must not write the attempt")
	}
}

func TestSubmitPastDeadline(t *testing.T) {
	content, err := json.Marshal(models.SingleChoiceContent{
		Options: []models.ChoiceOption{
			{ID: "a", Text: "Red", Order: 1},
			{ID: "b", Text: "Blue", Order: 2},
		},
		CorrectAnswer: "b",
	})
	if err != nil {
		t.Fatal(err)
	}

	started := time.Now().Add(-2 * time.Hour)
	quiz := &models.Quiz{
		ID:         1,
		Duration:   30,
		EndTime:    time.Now().Add(-time.Hour),
		TotalMarks: 5,
		Questions: []models.Question{
			{ID: 11, QuizID: 1, Type: models.SingleChoice, Text: "Pick a color", Marks: 5, Content: content},
		},
	}
	attempt := &models.QuizAttempt{
		ID:        7,
		QuizID:    1,
		StudentID: "student-1",
		StartedAt: started,
		Answers: []models.AttemptAnswer{
			{ID: 1, AttemptID: 7, QuestionID: 11, Answer: datatypes.JSON(`"b"`)},
		},
	}
	repo := &stubRepository{
		attempts: &stubAttemptRepo{attempt: attempt},
		answers:  &stubAnswerRepo{},
		quizzes:  &stubQuizRepo{quiz: quiz},
	}
	s := newStubAttemptService(repo)

	req := &SubmitAttemptRequest{
		AttemptID: 7,
		Answers:   []SubmitAnswerRequest{{QuestionID: 11, Answer: "a"}},
	}
	_, err = s.Submit(context.Background(), req, "student-1")
	if err != ErrQuizWindowClosed {
		t.Fatalf("err = %v, want ErrQuizWindowClosed", err)
	}

	// The attempt is finalized from what was saved in time, stamped with
	// the deadline, and the late inline answer is discarded.
	if attempt.SubmittedAt == nil || !attempt.SubmittedAt.Equal(started.Add(30*time.Minute)) {
		t.Errorf("SubmittedAt = %v, want the deadline %v", attempt.SubmittedAt, started.Add(30*time.Minute))
	}
	if !attempt.Completed {
		t.Error("Expired attempt should be marked completed")
	}
	if attempt.Score != 5 {
		t.Errorf("Score = %v, want 5 from the answer saved before the deadline", attempt.Score)
	}
	if len(repo.answers.upserted) != 0 {
		t.Error("Late inline answers must not be persisted")
	}
	if len(repo.attempts.updated) != 1 {
		t.Errorf("Expected 1 attempt write, got %d", len(repo.attempts.updated))
	}
}

func TestCreateAttemptRecoversConcurrentStart(t *testing.T) {
	winner := &models.QuizAttempt{
		ID:        3,
		QuizID:    1,
		StudentID: "student-1",
		StartedAt: time.Now().Add(-time.Minute),
	}
	repo := &stubRepository{
		attempts: &stubAttemptRepo{attempt: winner, createErr: gorm.ErrDuplicatedKey},
		answers:  &stubAnswerRepo{},
		quizzes:  &stubQuizRepo{},
	}
	s := newStubAttemptService(repo)

	quiz := &models.Quiz{ID: 1, Duration: 30, EndTime: time.Now().Add(time.Hour)}
	got, resumed, err := s.createAttempt(context.Background(), quiz, "student-1")
	if err != nil {
		t.Fatalf("createAttempt returned %v, want the existing attempt", err)
	}
	if !resumed {
		t.Error("Recovered attempt should be flagged as resumed")
	}
	if got.ID != winner.ID {
		t.Errorf("Attempt ID = %d, want the winner's %d", got.ID, winner.ID)
	}
}
