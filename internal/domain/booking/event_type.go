package booking

import (
	"errors"
	"strings"
)

// EventType corresponds to the values of `booking_events.event_type`.
type EventType string

const (
	EventAccepted  EventType = "BOOKING_ACCEPTED"
	EventDeclined  EventType = "BOOKING_DECLINED"
	EventCompleted EventType = "BOOKING_COMPLETED"
)

var ErrInvalidEventType = errors.New("invalid booking event type")

// ParseEventType normalizes (uppercases+trims) and validates an event type string.
func ParseEventType(input string) (EventType, error) {
	eventType := EventType(strings.ToUpper(strings.TrimSpace(input)))
	if eventType.Valid() {
		return eventType, nil
	}
	return "", ErrInvalidEventType
}

// Valid reports whether eventType is one of the allowed event type constants.
func (eventType EventType) Valid() bool {
	switch eventType {
	case EventAccepted, EventDeclined, EventCompleted:
		return true
	default:
		return false
	}
}

// EventFor maps the status a transition lands on to its audit event.
func EventFor(status Status) (EventType, bool) {
	switch status {
	case StatusInProgress:
		return EventAccepted, true
	case StatusCancelled:
		return EventDeclined, true
	case StatusCompleted:
		return EventCompleted, true
	default:
		return "", false
	}
}
