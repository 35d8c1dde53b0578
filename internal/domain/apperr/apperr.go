// Package apperr defines the error taxonomy shared by the dispatch core.
//
// Every business failure wraps exactly one of the sentinels below so callers
// can branch with errors.Is. Gate denials additionally carry a reason code
// through *ForbiddenError.
package apperr

import (
	"context"
	"errors"
)

var (
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("store unavailable")
)

// ForbiddenError is returned when a policy denies an action. Reason is a
// stable machine-readable code such as "driver_off_duty".
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Reason
}

// Is makes errors.Is(err, ErrForbidden) hold for every ForbiddenError.
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// Forbidden builds a ForbiddenError with the given reason code.
func Forbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}

// ReasonOf extracts the denial reason from err, if any.
func ReasonOf(err error) (string, bool) {
	var fe *ForbiddenError
	if errors.As(err, &fe) {
		return fe.Reason, true
	}
	return "", false
}

// Retryable reports whether the caller may refresh its state and try again.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrConflict), errors.Is(err, ErrUnavailable):
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}

// Code returns a short code naming the taxonomy member of err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
