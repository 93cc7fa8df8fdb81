// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrConflict signals that an operation cannot proceed due to
// conflicting state (a showing overlapping another planned showing for
// the same agent, or deleting a property that deals still reference),
// while ValidationError carries per-field messages for malformed input.
package repository

import "errors"

// ErrConflict is returned when a write cannot be performed because of
// conflicting state. Handlers translate it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrNoChange indicates an UPDATE attempted to set fields equal to
// current values.
var ErrNoChange = errors.New("no change")

// Not-found sentinels. Lookups through a visibility scope return the
// same sentinel whether the row never existed, was deleted or is simply
// invisible to the caller, so existence does not leak.
var (
	ErrPropertyNotFound    = errors.New("property not found")
	ErrDealNotFound        = errors.New("deal not found")
	ErrShowingNotFound     = errors.New("showing not found")
	ErrSavedSearchNotFound = errors.New("saved search not found")
	ErrKYCProfileNotFound  = errors.New("kyc profile not found")
	ErrImageNotFound       = errors.New("image not found")
)

// ValidationError carries field-attributed validation messages.  It is
// never fatal; handlers render it as a 400 with a per-field object.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	for f, msg := range e.Fields {
		return f + ": " + msg
	}
	return "validation failed"
}

// NewValidationError builds a single-field validation failure.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// AsValidation unwraps err into a ValidationError when possible.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
