package command

import (
	"fmt"

	"github.com/keshon/tagwarden/internal/permission"
)

// PermissionDeniedError is returned when the invoker's level is too low.
type PermissionDeniedError struct {
	Required permission.Level
	Actual   permission.Level
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("requires %s, have %s", e.Required, e.Actual)
}

// ValidationError carries a message meant for the invoker.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid returns a ValidationError with a formatted message.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ExternalServiceError wraps a failure of the chat platform or a download.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *ExternalServiceError) Unwrap() error { return e.Err }

// External wraps err as an ExternalServiceError; nil stays nil.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalServiceError{Op: op, Err: err}
}
