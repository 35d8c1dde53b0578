package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"ride-dispatch/internal/domain/booking"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/ports"
)

// generateCorrelationID creates a correlation ID for tracing a request across the broker.
func generateCorrelationID() string {
	return "req_" + uuid.NewString()
}

func driverOf(b booking.Booking) string {
	if b.DriverID == nil {
		return ""
	}
	return *b.DriverID
}

func toView(b booking.Booking) ports.BookingView {
	return ports.BookingView{
		BookingID:   b.ID,
		CompanyID:   b.CompanyID,
		Status:      b.Status.String(),
		DriverID:    b.DriverID,
		PickupTime:  b.PickupTime,
		Price:       b.Price,
		Passengers:  b.Passengers,
		CustomerRef: b.CustomerRef,
		CompletedAt: b.CompletedAt,
		CancelledAt: b.CancelledAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// publishBookingStatus sends a booking status update to the dispatch topic exchange using routing key
// booking.status.{status}, e.g., booking.status.in_progress. Best-effort, outside the tx.
func (service *Lifecycle) publishBookingStatus(ctx context.Context, b booking.Booking, previous booking.Status, corrID string) {
	routingKey := contracts.RouteBookingStatusPrefix + strings.ToLower(b.Status.String())

	body, err := json.Marshal(contracts.BookingStatusMessage{
		BookingID: b.ID,
		Status:    b.Status.String(),
		Previous:  previous.String(),
		DriverID:  driverOf(b),
		Timestamp: b.UpdatedAt,
		Envelope: contracts.Envelope{
			CorrelationID: corrID,
			Producer:      "dispatch-service",
			SentAt:        service.clock.Now(),
		},
	})
	if err == nil {
		err = service.pub.Publish(contracts.ExchangeDispatchTopic, routingKey, body)
	}
	if err != nil {
		service.logger.Error(ctx, "booking_status_publish_failed", "Failed to publish booking status", err, map[string]any{
			"booking_id":  b.ID,
			"routing_key": routingKey,
			"request_id":  corrID,
		})
		return
	}

	service.logger.Debug(ctx, "booking_status_published", "Published booking status to RabbitMQ", map[string]any{
		"routing_key": routingKey,
	})
}
