package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the public lookup and ownership paths. Ownership
// failures are reported identically whether or not the record exists.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ValidationError rejects malformed input before anything touches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictKind classifies why a proposed booking was rejected at write time.
type ConflictKind string

const (
	ConflictSlotTaken           ConflictKind = "slot_taken"
	ConflictOutsideAvailability ConflictKind = "outside_availability"
	ConflictDateBlocked         ConflictKind = "date_blocked"
)

// ConflictError is a user-correctable condition: the caller should re-fetch
// fresh availability and pick again.
type ConflictError struct {
	Kind ConflictKind
}

func NewConflictError(kind ConflictKind) *ConflictError {
	return &ConflictError{Kind: kind}
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case ConflictSlotTaken:
		return "slot is no longer available"
	case ConflictOutsideAvailability:
		return "requested time is outside the host's availability"
	case ConflictDateBlocked:
		return "the host is unavailable on that date"
	default:
		return "booking conflict"
	}
}

func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// LoadTimezone resolves an IANA zone name, treating "" as UTC.
func LoadTimezone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
