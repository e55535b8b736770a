package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced id does not exist. Operations that
	// return it perform no partial mutation.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the operation would violate a relationship that
	// must hold, such as deleting a user that still owns transactions.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports malformed or incomplete input. Index is >= 0
// when the failing record is part of a batch, -1 otherwise.
type ValidationError struct {
	Field  string
	Reason string
	Index  int
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("record %d: invalid %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a single-record validation error.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Index: -1}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
