package models

import (
	"errors"
	"fmt"
)

// ErrNotFound signals a reference to a project or transaction that does not
// exist. Operations hitting it are no-ops; callers report and continue.
var ErrNotFound = errors.New("not found")

// ValidationError describes rejected user input to a mutation. The state is
// unchanged when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
