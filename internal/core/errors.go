package core

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the control surface. Batch passes log and
// continue instead of propagating these.
var (
	// ErrNotFound is returned when a definition does not exist or is not
	// owned by the caller. Ownership mismatches deliberately look like a
	// missing definition so the control surface never leaks existence.
	ErrNotFound = errors.New("recurring definition not found")

	// ErrAlreadyPaused is returned when pausing a definition that is not active.
	ErrAlreadyPaused = errors.New("recurring definition already paused")

	// ErrAlreadyActive is returned when resuming a definition that is active.
	ErrAlreadyActive = errors.New("recurring definition already active")

	// ErrExpired is returned when resuming a definition whose schedule has
	// run past its end date.
	ErrExpired = errors.New("recurring definition has expired")

	// ErrDuplicateOccurrence is returned by the transaction store when a row
	// for the same (definition, calendar day) pair already exists. Callers
	// treat it as "already materialized", never as a failure.
	ErrDuplicateOccurrence = errors.New("occurrence already materialized for this day")
)

// ValidationError reports a rule or schedule constraint violation on caller
// input. It is surfaced to the caller and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err indicates a missing or unowned definition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err indicates an illegal state transition.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyPaused) ||
		errors.Is(err, ErrAlreadyActive) ||
		errors.Is(err, ErrExpired)
}
