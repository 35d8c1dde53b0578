// Package gate decides whether two parties may message each other right now.
// Decisions are pure and must be re-evaluated on every send attempt.
package gate

import (
	"time"

	"ride-dispatch/internal/domain/booking"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/shift"
)

// DefaultWindow bounds both the pre-pickup and the post-completion windows.
const DefaultWindow = 30 * time.Minute

// Denial reasons.
const (
	ReasonDriverOffDuty        = "driver_off_duty"
	ReasonOutsideBookingWindow = "outside_booking_window"
	ReasonNoBookingReference   = "no_booking_reference"
)

// BookingState is the slice of a booking the gate looks at.
type BookingState struct {
	Status     booking.Status
	PickupTime time.Time
}

// Context is everything the gate needs for one decision.
type Context struct {
	Relationship chat.Relationship

	// ShiftStatus is the driver's current shift, nil when there is none.
	ShiftStatus *shift.Status

	// Booking is nil when the conversation has no booking reference.
	Booking *BookingState

	Now    time.Time
	Window time.Duration // zero means DefaultWindow
}

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// CanSend reports whether a message may be sent now.
func CanSend(c Context) bool {
	return Evaluate(c).Allowed
}

// Evaluate returns the decision and, when denied, the reason.
func Evaluate(c Context) Decision {
	switch c.Relationship {
	case chat.RelationshipDuty:
		return evaluateDuty(c)
	case chat.RelationshipBooking:
		return evaluateBooking(c)
	default:
		return deny(ReasonNoBookingReference)
	}
}

func evaluateDuty(c Context) Decision {
	if c.ShiftStatus != nil && c.ShiftStatus.OnDuty() {
		return allow()
	}
	return deny(ReasonDriverOffDuty)
}

func evaluateBooking(c Context) Decision {
	if c.Booking == nil {
		return deny(ReasonNoBookingReference)
	}

	window := c.Window
	if window <= 0 {
		window = DefaultWindow
	}
	limit := Minutes(window)

	now := c.Now.UTC()
	pickup := c.Booking.PickupTime.UTC()

	switch c.Booking.Status {
	case booking.StatusInProgress:
		return allow()
	case booking.StatusCompleted:
		if Minutes(now.Sub(pickup)) <= limit {
			return allow()
		}
	}

	if before := pickup.Sub(now); before >= 0 && Minutes(before) <= limit {
		return allow()
	}
	return deny(ReasonOutsideBookingWindow)
}

// Minutes converts a duration to whole minutes rounding up, so any part of a
// minute counts as a full one. Negative durations round toward zero.
func Minutes(d time.Duration) int64 {
	m := int64(d / time.Minute)
	if d%time.Minute > 0 {
		m++
	}
	return m
}
