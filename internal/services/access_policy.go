package services

import (
	"time"

	"github.com/classhub/lms-service/internal/models"
)

// AccessPolicy holds the authorization rules as pure functions over
// already-loaded state. Callers fetch the user, quiz and enrollment facts
// and the policy decides; no I/O happens here.
type AccessPolicy struct{}

func NewAccessPolicy() *AccessPolicy {
	return &AccessPolicy{}
}

// CanAttempt decides whether a student may start or continue an attempt.
// Teachers and admins never take quizzes.
func (p *AccessPolicy) CanAttempt(user *models.User, quiz *models.Quiz, enrolled bool, submittedAttempts int64, now time.Time) bool {
	if user == nil || quiz == nil {
		return false
	}
	if user.Role != models.RoleStudent {
		return false
	}
	if !enrolled {
		return false
	}
	if quiz.Status != models.QuizActive {
		return false
	}
	if !quiz.IsWithinWindow(now) {
		return false
	}
	// Only submitted attempts count toward the limit; an in-progress
	// attempt is resumed, not recounted.
	if submittedAttempts >= int64(quiz.MaxAttempts) {
		return false
	}
	return true
}

// CanEditQuizStructure decides whether quiz questions, options or marks may
// be changed. Only the owning teacher or an admin may edit, while the quiz is
// still draft or nobody has attempted it. Once an attempt exists against a
// published quiz the structure is frozen for good.
func (p *AccessPolicy) CanEditQuizStructure(user *models.User, quiz *models.Quiz, attemptCount int64) bool {
	if user == nil || quiz == nil {
		return false
	}
	if user.Role == models.RoleAdmin {
		return quiz.Status == models.QuizDraft || attemptCount == 0
	}
	if user.Role != models.RoleTeacher || quiz.CreatedBy != user.ID {
		return false
	}
	return quiz.Status == models.QuizDraft || attemptCount == 0
}

// CanViewResults decides whether a user may see attempt results for a quiz.
// Admins always can, the owning teacher always can, and a student can see
// their own results only when the quiz publishes them immediately and the
// student is enrolled in the batch.
func (p *AccessPolicy) CanViewResults(user *models.User, quiz *models.Quiz, enrolled bool) bool {
	if user == nil || quiz == nil {
		return false
	}
	switch user.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return quiz.CreatedBy == user.ID
	case models.RoleStudent:
		return quiz.ShowResultsImmediately && enrolled
	}
	return false
}

// CanManageBatch decides whether a user may change a batch or its
// enrollments and attendance.
func (p *AccessPolicy) CanManageBatch(user *models.User, batch *models.Batch) bool {
	if user == nil || batch == nil {
		return false
	}
	if user.Role == models.RoleAdmin {
		return true
	}
	return user.Role == models.RoleTeacher && batch.TeacherID == user.ID
}

// CanRecordAttendance follows the batch management rule: the owning teacher
// or an admin marks attendance.
func (p *AccessPolicy) CanRecordAttendance(user *models.User, batch *models.Batch) bool {
	return p.CanManageBatch(user, batch)
}
