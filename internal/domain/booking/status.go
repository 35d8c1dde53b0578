package booking

import (
	"errors"
	"slices"
	"strings"
)

// Status is a booking status as stored in the `bookings.status` column.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid booking status")

// Preconditions for the conditional write of each transition.
var (
	AcceptFrom   = []Status{StatusPending, StatusAssigned}
	CompleteFrom = []Status{StatusInProgress}
	DeclineFrom  = []Status{StatusPending, StatusAssigned, StatusInProgress}
)

// ParseStatus normalizes (lowercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed booking status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// Terminal indicates if the status is in a terminal state.
func (status Status) Terminal() bool {
	return status == StatusCompleted || status == StatusCancelled
}

// CanTransitionTo specifies if the status can transition to the next status.
func (status Status) CanTransitionTo(next Status) bool {
	switch next {
	case StatusInProgress:
		return slices.Contains(AcceptFrom, status)
	case StatusCompleted:
		return slices.Contains(CompleteFrom, status)
	case StatusCancelled:
		return slices.Contains(DeclineFrom, status)
	default:
		return false
	}
}

// Strings converts statuses for use as a SQL array parameter.
func Strings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
