package services

import (
	"testing"
	"time"

	"github.com/classhub/lms-service/internal/models"
)

func testUser(id string, role models.UserRole) *models.User {
	return &models.User{ID: id, Name: "Test User", Email: id + "@example.com", Role: role}
}

func activeQuiz(createdBy string) *models.Quiz {
	now := time.Now()
	return &models.Quiz{
		ID:          1,
		BatchID:     1,
		Title:       "Weekly quiz",
		Status:      models.QuizActive,
		StartTime:   now.Add(-time.Hour),
		EndTime:     now.Add(time.Hour),
		Duration:    30,
		MaxAttempts: 1,
		CreatedBy:   createdBy,
	}
}

func TestCanAttempt(t *testing.T) {
	policy := NewAccessPolicy()
	now := time.Now()

	student := testUser("student-1", models.RoleStudent)
	teacher := testUser("teacher-1", models.RoleTeacher)
	admin := testUser("admin-1", models.RoleAdmin)

	tests := []struct {
		name      string
		user      *models.User
		quiz      *models.Quiz
		enrolled  bool
		submitted int64
		want      bool
	}{
		{"enrolled student on active quiz", student, activeQuiz("teacher-1"), true, 0, true},
		{"student not enrolled", student, activeQuiz("teacher-1"), false, 0, false},
		{"teacher cannot attempt", teacher, activeQuiz("teacher-1"), true, 0, false},
		{"admin cannot attempt", admin, activeQuiz("teacher-1"), true, 0, false},
		{"submitted attempts at limit", student, activeQuiz("teacher-1"), true, 1, false},
		{"nil user", nil, activeQuiz("teacher-1"), true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.CanAttempt(tt.user, tt.quiz, tt.enrolled, tt.submitted, now)
			if got != tt.want {
				t.Errorf("CanAttempt = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("draft quiz not attemptable", func(t *testing.T) {
		quiz := activeQuiz("teacher-1")
		quiz.Status = models.QuizDraft
		if policy.CanAttempt(student, quiz, true, 0, now) {
			t.Error("Draft quiz should not be attemptable")
		}
	})

	t.Run("window closed", func(t *testing.T) {
		quiz := activeQuiz("teacher-1")
		quiz.EndTime = now.Add(-time.Minute)
		if policy.CanAttempt(student, quiz, true, 0, now) {
			t.Error("Quiz past its end time should not be attemptable")
		}
	})

	t.Run("higher max attempts allows retake", func(t *testing.T) {
		quiz := activeQuiz("teacher-1")
		quiz.MaxAttempts = 3
		if !policy.CanAttempt(student, quiz, true, 2, now) {
			t.Error("Student below the attempt limit should be eligible")
		}
		if policy.CanAttempt(student, quiz, true, 3, now) {
			t.Error("Student at the attempt limit should not be eligible")
		}
	})
}

func TestCanEditQuizStructure(t *testing.T) {
	policy := NewAccessPolicy()

	owner := testUser("teacher-1", models.RoleTeacher)
	other := testUser("teacher-2", models.RoleTeacher)
	admin := testUser("admin-1", models.RoleAdmin)
	student := testUser("student-1", models.RoleStudent)

	draft := activeQuiz("teacher-1")
	draft.Status = models.QuizDraft

	active := activeQuiz("teacher-1")

	tests := []struct {
		name     string
		user     *models.User
		quiz     *models.Quiz
		attempts int64
		want     bool
	}{
		{"owner edits draft without attempts", owner, draft, 0, true},
		{"owner edits active quiz before first attempt", owner, active, 0, true},
		{"owner blocked once a published quiz has attempts", owner, active, 1, false},
		{"non-owner teacher blocked", other, draft, 0, false},
		{"student blocked", student, draft, 0, false},
		{"admin edits draft", admin, draft, 0, true},
		{"admin blocked once a published quiz has attempts", admin, active, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.CanEditQuizStructure(tt.user, tt.quiz, tt.attempts)
			if got != tt.want {
				t.Errorf("CanEditQuizStructure = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanViewResults(t *testing.T) {
	policy := NewAccessPolicy()

	owner := testUser("teacher-1", models.RoleTeacher)
	other := testUser("teacher-2", models.RoleTeacher)
	admin := testUser("admin-1", models.RoleAdmin)
	student := testUser("student-1", models.RoleStudent)

	quiz := activeQuiz("teacher-1")

	t.Run("admin always sees results", func(t *testing.T) {
		if !policy.CanViewResults(admin, quiz, false) {
			t.Error("Admin should always see results")
		}
	})

	t.Run("owning teacher sees results", func(t *testing.T) {
		if !policy.CanViewResults(owner, quiz, false) {
			t.Error("Owning teacher should see results")
		}
	})

	t.Run("other teacher blocked", func(t *testing.T) {
		if policy.CanViewResults(other, quiz, false) {
			t.Error("Non-owning teacher should not see results")
		}
	})

	t.Run("student needs immediate results and enrollment", func(t *testing.T) {
		if policy.CanViewResults(student, quiz, true) {
			t.Error("Student should not see results when quiz withholds them")
		}

		quiz.ShowResultsImmediately = true
		if !policy.CanViewResults(student, quiz, true) {
			t.Error("Enrolled student should see immediately-published results")
		}
		if policy.CanViewResults(student, quiz, false) {
			t.Error("Unenrolled student should not see results")
		}
	})
}

func TestCanManageBatch(t *testing.T) {
	policy := NewAccessPolicy()

	batch := &models.Batch{ID: 1, Name: "Batch A", TeacherID: "teacher-1"}

	if !policy.CanManageBatch(testUser("teacher-1", models.RoleTeacher), batch) {
		t.Error("Owning teacher should manage the batch")
	}
	if policy.CanManageBatch(testUser("teacher-2", models.RoleTeacher), batch) {
		t.Error("Other teacher should not manage the batch")
	}
	if !policy.CanManageBatch(testUser("admin-1", models.RoleAdmin), batch) {
		t.Error("Admin should manage any batch")
	}
	if policy.CanManageBatch(testUser("student-1", models.RoleStudent), batch) {
		t.Error("Student should not manage the batch")
	}
}

func TestCanRecordAttendance(t *testing.T) {
	policy := NewAccessPolicy()

	batch := &models.Batch{ID: 1, Name: "Batch A", TeacherID: "teacher-1"}

	if !policy.CanRecordAttendance(testUser("teacher-1", models.RoleTeacher), batch) {
		t.Error("Owning teacher should record attendance")
	}
	if policy.CanRecordAttendance(testUser("student-1", models.RoleStudent), batch) {
		t.Error("Student should not record attendance")
	}
}
