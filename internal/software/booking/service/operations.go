package service

import (
	"context"
	"fmt"
	"strings"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/booking"
	"ride-dispatch/internal/ports"
)

// Accept assigns the calling driver and starts the booking.
func (service *Lifecycle) Accept(ctx context.Context, actor ports.Actor, bookingID string) (ports.BookingView, error) {
	if !actor.Role.IsDriver() {
		return ports.BookingView{}, apperr.Forbidden("not_driver")
	}
	return service.run(ctx, actor, bookingID, func(b *booking.Booking) (*Pending, error) {
		return service.BeginAccept(b, actor.UserID)
	})
}

// Decline cancels the booking. Drivers may only decline bookings assigned to them.
func (service *Lifecycle) Decline(ctx context.Context, actor ports.Actor, bookingID string) (ports.BookingView, error) {
	return service.run(ctx, actor, bookingID, func(b *booking.Booking) (*Pending, error) {
		if err := requireAssigned(actor, b); err != nil {
			return nil, err
		}
		return service.BeginDecline(b)
	})
}

// Complete finishes an in-progress booking.
func (service *Lifecycle) Complete(ctx context.Context, actor ports.Actor, bookingID string) (ports.BookingView, error) {
	return service.run(ctx, actor, bookingID, func(b *booking.Booking) (*Pending, error) {
		if err := requireAssigned(actor, b); err != nil {
			return nil, err
		}
		return service.BeginComplete(b)
	})
}

// Get returns the stored booking.
func (service *Lifecycle) Get(ctx context.Context, actor ports.Actor, bookingID string) (ports.BookingView, error) {
	b, err := service.load(ctx, actor, bookingID)
	if err != nil {
		return ports.BookingView{}, err
	}
	return toView(*b), nil
}

// run composes load, begin and commit.
func (service *Lifecycle) run(ctx context.Context, actor ports.Actor, bookingID string, begin func(*booking.Booking) (*Pending, error)) (ports.BookingView, error) {
	b, err := service.load(ctx, actor, bookingID)
	if err != nil {
		return ports.BookingView{}, err
	}
	ctx = service.logger.WithBookingID(ctx, b.ID)

	p, err := begin(b)
	if err != nil {
		service.logger.Debug(ctx, "booking_transition_rejected", err.Error(), map[string]any{
			"status": b.Status.String(),
			"code":   apperr.Code(err),
		})
		return ports.BookingView{}, err
	}

	if err := service.Commit(ctx, p); err != nil {
		return ports.BookingView{}, err
	}
	return toView(*b), nil
}

func (service *Lifecycle) load(ctx context.Context, actor ports.Actor, bookingID string) (*booking.Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, booking.ErrIDRequired
	}

	var b *booking.Booking
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		b, err = service.bookings.GetByID(txCtx, bookingID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if actor.CompanyID != "" && b.CompanyID != "" && actor.CompanyID != b.CompanyID {
		return nil, fmt.Errorf("%w: booking %s", apperr.ErrNotFound, bookingID)
	}
	return b, nil
}

func requireAssigned(actor ports.Actor, b *booking.Booking) error {
	if actor.Privileged() {
		return nil
	}
	if actor.Role.IsDriver() && b.AssignedTo(actor.UserID) {
		return nil
	}
	return apperr.Forbidden("not_assigned_driver")
}
