// Package apperrors defines the error taxonomy shared by every service.
// Specific failures wrap one of the base sentinels so callers can match
// the kind with errors.Is without depending on exact messages.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or contradictory input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an authenticated but unauthorized action.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks a duplicate relationship treated as a hard failure.
	ErrConflict = errors.New("conflict")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
