package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/booking"
	"ride-dispatch/internal/domain/shift"
	"ride-dispatch/internal/ports"
)

// BookingRepo persists bookings using pgx and plain SQL.
type BookingRepo struct{}

// NewBookingRepo constructs a new BookingRepo.
func NewBookingRepo() ports.BookingRepository {
	return &BookingRepo{}
}

const bookingColumns = `id, company_id, status, driver_id, pickup_time, price::float8, passengers,
	customer_ref, completed_at, cancelled_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		b      booking.Booking
		status string
	)
	err := row.Scan(
		&b.ID, &b.CompanyID, &status, &b.DriverID, &b.PickupTime, &b.Price, &b.Passengers,
		&b.CustomerRef, &b.CompletedAt, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if b.Status, err = booking.ParseStatus(status); err != nil {
		return nil, err
	}
	return &b, nil
}

// Insert stores a booking created upstream.
func (repo *BookingRepo) Insert(ctx context.Context, b *booking.Booking) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (id, company_id, status, driver_id, pickup_time, price, passengers,
			customer_ref, completed_at, cancelled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		b.ID, b.CompanyID, b.Status.String(), b.DriverID, b.PickupTime, b.Price, b.Passengers,
		b.CustomerRef, b.CompletedAt, b.CancelledAt, b.CreatedAt, b.UpdatedAt,
	)
	return mapError(err)
}

func (repo *BookingRepo) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

// CompareAndSwap writes next only while the stored status is one of expected.
func (repo *BookingRepo) CompareAndSwap(ctx context.Context, next booking.Booking, expected []booking.Status) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $3,
		    driver_id = $4,
		    completed_at = $5,
		    cancelled_at = $6,
		    updated_at = $7
		WHERE id = $1 AND status = ANY($2::text[])
	`,
		next.ID, booking.Strings(expected), next.Status.String(), next.DriverID,
		next.CompletedAt, next.CancelledAt, next.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, next.ID).Scan(&current)
	if err != nil {
		return mapError(err)
	}
	return fmt.Errorf("%w: booking %s is %s", apperr.ErrConflict, next.ID, current)
}

// CompletedTotals aggregates the driver's bookings completed inside [from, to].
func (repo *BookingRepo) CompletedTotals(ctx context.Context, driverID string, from, to time.Time) (shift.Totals, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return shift.Totals{}, err
	}

	var t shift.Totals
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(price), 0)::float8
		FROM bookings
		WHERE driver_id = $1
		  AND status = 'completed'
		  AND completed_at BETWEEN $2 AND $3
	`, driverID, from, to).Scan(&t.Bookings, &t.Revenue)
	if err != nil {
		return shift.Totals{}, mapError(err)
	}
	return t, nil
}
