package types

import (
	"errors"
	"fmt"
)

// Storage and mapper errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrValidation    = errors.New("validation failed")
	ErrInvalidSchema = errors.New("invalid schema")
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidData   = errors.New("invalid record data")
	ErrRecordDeleted = errors.New("record has been deleted")
	ErrTableNotFound = errors.New("table not found")
	ErrTxDone        = errors.New("transaction already committed or rolled back")
)

// ValidationError reports a rejected attribute. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
