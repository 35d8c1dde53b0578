package booking

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"ride-dispatch/internal/domain/apperr"
)

// Booking is the domain entity corresponding to the `bookings` table.
// Bookings are created upstream; this core only moves them through assignment.
type Booking struct {
	ID        string
	CompanyID string

	Status   Status
	DriverID *string // nil while unassigned and after cancellation

	PickupTime  time.Time
	Price       float64
	Passengers  int
	CustomerRef string

	CompletedAt *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	ErrIDRequired       = fmt.Errorf("%w: booking id is required", apperr.ErrValidation)
	ErrDriverRequired   = fmt.Errorf("%w: driver id is required", apperr.ErrValidation)
	ErrInvalidPassenger = fmt.Errorf("%w: passengers must be positive", apperr.ErrValidation)
	ErrNegativePrice    = fmt.Errorf("%w: price cannot be negative", apperr.ErrValidation)

	ErrAlreadyTaken  = fmt.Errorf("%w: booking is no longer open for acceptance", apperr.ErrConflict)
	ErrNotInProgress = fmt.Errorf("%w: booking is not in progress", apperr.ErrInvalidState)
	ErrTerminal      = fmt.Errorf("%w: booking is already completed or cancelled", apperr.ErrInvalidState)
)

// New builds a pending booking. Used by seeding and tests.
func New(id, companyID, customerRef string, pickup time.Time, price float64, passengers int, now time.Time) (*Booking, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, ErrIDRequired
	}
	if passengers < 1 {
		return nil, ErrInvalidPassenger
	}
	if price < 0 {
		return nil, ErrNegativePrice
	}

	now = now.UTC()
	return &Booking{
		ID:          id,
		CompanyID:   strings.TrimSpace(companyID),
		Status:      StatusPending,
		PickupTime:  pickup.UTC(),
		Price:       price,
		Passengers:  passengers,
		CustomerRef: strings.TrimSpace(customerRef),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Accept moves pending|assigned -> in_progress and records the driver.
// An assigned booking can only be accepted by its driver. Losing the booking
// to another transition is reported as a conflict.
func (b *Booking) Accept(driverID string, now time.Time) error {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return ErrDriverRequired
	}
	if !slices.Contains(AcceptFrom, b.Status) {
		return ErrAlreadyTaken
	}
	if b.Status == StatusAssigned && b.DriverID != nil && *b.DriverID != driverID {
		return apperr.Forbidden("not_assigned_driver")
	}

	b.DriverID = &driverID
	b.setStatus(StatusInProgress, now)
	return nil
}

// Decline cancels a non-terminal booking and clears the driver so it can be reassigned upstream.
func (b *Booking) Decline(now time.Time) error {
	if !slices.Contains(DeclineFrom, b.Status) {
		return ErrTerminal
	}

	t := now.UTC()
	b.DriverID = nil
	b.CancelledAt = &t
	b.setStatus(StatusCancelled, now)
	return nil
}

// Complete moves in_progress -> completed.
func (b *Booking) Complete(now time.Time) error {
	if !slices.Contains(CompleteFrom, b.Status) {
		return ErrNotInProgress
	}

	t := now.UTC()
	b.CompletedAt = &t
	b.setStatus(StatusCompleted, now)
	return nil
}

// AssignedTo reports whether driverID is the booking's driver.
func (b *Booking) AssignedTo(driverID string) bool {
	return b.DriverID != nil && *b.DriverID == driverID
}

// Clone returns a deep copy.
func (b Booking) Clone() Booking {
	out := b
	out.DriverID = clonePtr(b.DriverID)
	out.CompletedAt = clonePtr(b.CompletedAt)
	out.CancelledAt = clonePtr(b.CancelledAt)
	return out
}

func (b *Booking) setStatus(status Status, now time.Time) {
	b.Status = status
	b.UpdatedAt = now.UTC()
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
