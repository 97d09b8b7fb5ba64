// Package errs holds the error kinds shared by the timesheet, leave and
// overtime domains. Handlers map them to HTTP responses with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = fmt.Errorf("insufficient leave balance: %w", ErrValidation)
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Field extracts the field and reason of a validation failure, if any.
func Field(err error) (string, string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field, ve.Reason, true
	}
	return "", "", false
}

// AtRow qualifies a validation failure with the 1-based row of a bulk
// import. Other errors pass through unchanged.
func AtRow(row int, err error) error {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	field := fmt.Sprintf("rows[%d]", row)
	if ve.Field != "" {
		field += "." + ve.Field
	}
	return &ValidationError{Field: field, Reason: ve.Reason}
}
