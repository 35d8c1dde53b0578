package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"ride-dispatch/internal/ports"
)

// BookingEventRepo appends the booking audit trail.
type BookingEventRepo struct{}

// NewBookingEventRepo constructs a new BookingEventRepo.
func NewBookingEventRepo() ports.BookingEventRepository {
	return &BookingEventRepo{}
}

// Append inserts a booking_events row.
func (repo *BookingEventRepo) Append(ctx context.Context, event ports.BookingEvent) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if !event.EventType.Valid() {
		return fmt.Errorf("invalid booking event type %q", event.EventType)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("encode booking event data: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_events (booking_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3::jsonb, $4)
	`, event.BookingID, string(event.EventType), string(data), event.CreatedAt)
	return mapError(err)
}
