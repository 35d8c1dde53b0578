package service

import (
	"context"
	"fmt"
	"time"

	"ride-dispatch/internal/domain/booking"
	"ride-dispatch/internal/domain/optimistic"
	"ride-dispatch/internal/ports"
)

// Pending is a booking transition applied locally and awaiting its conditional write.
type Pending struct {
	update   *optimistic.Update[booking.Booking]
	target   *booking.Booking
	expected []booking.Status
	event    booking.EventType
	at       time.Time
}

// Tentative returns the locally applied next state.
func (p *Pending) Tentative() booking.Booking { return p.update.Tentative() }

// Snapshot returns the state to restore if the write does not land.
func (p *Pending) Snapshot() booking.Booking { return p.update.Snapshot() }

// Expected lists the statuses the stored booking must still have for the write to succeed.
func (p *Pending) Expected() []booking.Status { return append([]booking.Status(nil), p.expected...) }

// BeginAccept tentatively moves b to in_progress for driverID.
func (service *Lifecycle) BeginAccept(b *booking.Booking, driverID string) (*Pending, error) {
	return service.begin(b, booking.AcceptFrom, func(b *booking.Booking, now time.Time) error {
		return b.Accept(driverID, now)
	})
}

// BeginDecline tentatively cancels b and clears its driver.
func (service *Lifecycle) BeginDecline(b *booking.Booking) (*Pending, error) {
	return service.begin(b, booking.DeclineFrom, func(b *booking.Booking, now time.Time) error {
		return b.Decline(now)
	})
}

// BeginComplete tentatively completes b.
func (service *Lifecycle) BeginComplete(b *booking.Booking) (*Pending, error) {
	return service.begin(b, booking.CompleteFrom, func(b *booking.Booking, now time.Time) error {
		return b.Complete(now)
	})
}

func (service *Lifecycle) begin(b *booking.Booking, expected []booking.Status, apply func(*booking.Booking, time.Time) error) (*Pending, error) {
	now := service.clock.Now()
	update, err := optimistic.Begin(b, func(b *booking.Booking) error {
		return apply(b, now)
	})
	if err != nil {
		return nil, err
	}

	event, _ := booking.EventFor(b.Status)
	return &Pending{update: update, target: b, expected: expected, event: event, at: now}, nil
}

// Commit issues the conditional write for p together with its audit row.
// On any failure, including cancellation of ctx, the booking passed to Begin*
// is restored to its snapshot and the error is returned; apperr.Retryable
// tells whether refreshing and retrying makes sense.
func (service *Lifecycle) Commit(ctx context.Context, p *Pending) error {
	corrID := generateCorrelationID()
	previous := p.update.Snapshot().Status

	err := p.update.Commit(ctx, func(ctx context.Context, next booking.Booking) error {
		return service.uow.WithinTx(ctx, func(txCtx context.Context) error {
			if err := service.bookings.CompareAndSwap(txCtx, next, p.expected); err != nil {
				return err
			}
			return service.events.Append(txCtx, ports.BookingEvent{
				BookingID: next.ID,
				EventType: p.event,
				Data: map[string]any{
					"previous_status": previous.String(),
					"status":          next.Status.String(),
					"driver_id":       driverOf(next),
					"correlation_id":  corrID,
				},
				CreatedAt: p.at,
			})
		})
	})
	if err != nil {
		service.logger.Error(ctx, "booking_commit_failed", "Booking transition was not committed", err, map[string]any{
			"booking_id": p.target.ID,
			"event":      string(p.event),
			"request_id": corrID,
		})
		return fmt.Errorf("commit booking %s: %w", p.target.ID, err)
	}

	committed := *p.target
	service.publishBookingStatus(ctx, committed, previous, corrID)

	service.logger.Info(ctx, "booking_"+string(committed.Status),
		fmt.Sprintf("Booking %s moved %s -> %s", committed.ID, previous, committed.Status),
		map[string]any{
			"booking_id": committed.ID,
			"driver_id":  driverOf(committed),
			"request_id": corrID,
		},
	)
	return nil
}
