package shift

import (
	"errors"
	"strings"
)

// Status is a shift status as stored in the `driver_shifts.status` column.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusBreak     Status = "break"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid shift status")

// ParseStatus normalizes (lowercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed shift status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusScheduled, StatusActive, StatusBreak, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// Open reports whether the shift still blocks a new shift for the same driver.
func (status Status) Open() bool {
	return status == StatusScheduled || status == StatusActive || status == StatusBreak
}

// OnDuty reports whether the driver is reachable by dispatch.
func (status Status) OnDuty() bool {
	return status == StatusActive || status == StatusBreak
}

// Terminal indicates that no further transition is possible.
func (status Status) Terminal() bool {
	return status == StatusCompleted || status == StatusCancelled
}

// CanTransitionTo specifies if the status can transition to the next status.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusScheduled:
		return next == StatusActive || next == StatusCancelled
	case StatusActive:
		return next == StatusBreak || next == StatusCompleted
	case StatusBreak:
		return next == StatusActive || next == StatusCompleted
	default:
		return false
	}
}
