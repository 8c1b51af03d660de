package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// Taxonomy roots. Every specific error below wraps exactly one of them.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidState     = errors.New("invalid state")
	ErrDuplicateAttempt = errors.New("duplicate attempt")
	ErrInactiveAccount  = errors.New("account is inactive")
	ErrQuizLocked       = errors.New("quiz is locked")
	ErrValidation       = errors.New("validation failed")
)

var (
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrQuizNotFound     = fmt.Errorf("quiz %w", ErrNotFound)
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	ErrAttemptNotFound  = fmt.Errorf("attempt %w", ErrNotFound)

	ErrAttemptNotActive    = fmt.Errorf("attempt is not in progress: %w", ErrInvalidState)
	ErrAttemptNotCompleted = fmt.Errorf("attempt is not completed: %w", ErrInvalidState)
	ErrQuizInactive        = fmt.Errorf("quiz is not active: %w", ErrInvalidState)

	ErrQuestionNotInQuiz = fmt.Errorf("question of this quiz %w", ErrNotFound)
	ErrInvalidOrder      = fmt.Errorf("question ids must list every question of the quiz once: %w", ErrValidation)
)

// ValidationErrors is returned for malformed requests
type ValidationErrors = validator.ValidationErrors

// PermissionError carries who was denied what
type PermissionError struct {
	UserID     string
	ResourceID interface{}
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID interface{}, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %v: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}

// BusinessRuleError reports a rule violation together with its context
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
	cause   error
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

// NewQuizLockedError explains which edit was refused on a quiz that has attempts
func NewQuizLockedError(quizID uint, edit string) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    "quiz_locked",
		Message: fmt.Sprintf("quiz %d already has attempts; %s is not allowed", quizID, edit),
		Context: map[string]interface{}{"quiz_id": quizID, "edit": edit},
		cause:   ErrQuizLocked,
	}
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func (e *BusinessRuleError) Unwrap() error {
	return e.cause
}
