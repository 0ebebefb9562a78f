package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by services. Handlers map these to HTTP codes.
var (
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrBatchNotFound        = errors.New("batch not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrAnswerNotFound       = errors.New("answer not found")
	ErrNotificationNotFound = errors.New("notification not found")

	ErrNotEligible             = errors.New("student is not eligible to attempt this quiz")
	ErrAttemptAlreadySubmitted = errors.New("attempt has already been submitted")
	ErrQuizWindowClosed        = errors.New("quiz window has closed")
	ErrQuizNotActive           = errors.New("quiz is not active")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrDuplicateEnrollment     = errors.New("student is already enrolled in this batch")
)

// PermissionError describes a denied action with enough context to log
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError carries a rule violation that is not a permission issue
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}
