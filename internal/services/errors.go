package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sjperalta/parktime-api/internal/repository"
)

// Common service errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrPermissionDenied   = errors.New("permission denied")
)

// AuthenticationError reports failed credentials. Message is safe to show; Reason is
// internal and only logged.
type AuthenticationError struct {
	Message string
	Reason  string
}

func (e *AuthenticationError) Error() string { return e.Message }

// AuthorizationError reports that the actor lacks capability for the target.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrPermissionDenied) match any AuthorizationError.
func (e *AuthorizationError) Is(target error) bool { return target == ErrPermissionDenied }

// ValidationError reports input the caller must correct.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports a missing (or soft-deleted) record.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// ErrAuthentication creates an AuthenticationError with the generic message.
func ErrAuthentication(reason string) error {
	return &AuthenticationError{Message: ErrInvalidCredentials.Error(), Reason: reason}
}

// ErrForbidden creates an AuthorizationError.
func ErrForbidden(format string, args ...any) error {
	return &AuthorizationError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError.
func ErrValidation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound creates a NotFoundError.
func ErrNotFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// notFoundOr translates gorm's missing-row error, passing anything else through.
func notFoundOr(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound(resource, id)
	}
	return err
}

// duplicateOr translates unique violations into a ValidationError.
func duplicateOr(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return ErrValidation(format, args...)
	}
	return err
}
