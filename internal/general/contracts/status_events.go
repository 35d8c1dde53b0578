package contracts

import "time"

// BookingStatusMessage is published after every committed booking transition.
// Routing key: "booking.status.{status}" on ExchangeDispatchTopic.
type BookingStatusMessage struct {
	BookingID string    `json:"booking_id"`
	Status    string    `json:"status"` // in_progress|completed|cancelled
	Previous  string    `json:"previous_status"`
	DriverID  string    `json:"driver_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}

// ShiftStatusMessage is published after every committed shift transition.
// Routing key: "shift.status.{status}" on ExchangeDispatchTopic.
type ShiftStatusMessage struct {
	ShiftID   string    `json:"shift_id"`
	DriverID  string    `json:"driver_id"`
	CompanyID string    `json:"company_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
