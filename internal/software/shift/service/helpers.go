package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/shift"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/ports"
)

// authorize lets drivers act on their own shifts only.
func authorize(actor ports.Actor, driverID string) error {
	if actor.Privileged() {
		return nil
	}
	if actor.Role.IsDriver() && actor.UserID == driverID {
		return nil
	}
	return apperr.Forbidden("not_shift_owner")
}

// authorizeShift hides shifts of other companies and then applies authorize.
func authorizeShift(actor ports.Actor, s *shift.Shift) error {
	if !sameCompany(actor, s.CompanyID) {
		return fmt.Errorf("%w: shift %s", apperr.ErrNotFound, s.ID)
	}
	return authorize(actor, s.DriverID)
}

func sameCompany(actor ports.Actor, companyID string) bool {
	return actor.CompanyID == "" || companyID == "" || actor.CompanyID == companyID
}

// generateCorrelationID creates a correlation ID for tracing a request across the broker.
func generateCorrelationID() string {
	return "req_" + uuid.NewString()
}

// toView renders a shift with elapsed values computed at now.
func toView(s shift.Shift, now time.Time) ports.ShiftView {
	breaks := make([]ports.BreakView, len(s.Breaks))
	for i, b := range s.Breaks {
		breaks[i] = ports.BreakView{Start: b.Start, End: b.End, DurationMinutes: b.DurationMinutes}
	}

	return ports.ShiftView{
		ShiftID:             s.ID,
		DriverID:            s.DriverID,
		CompanyID:           s.CompanyID,
		Status:              s.Status.String(),
		StartedAt:           s.StartedAt,
		EndedAt:             s.EndedAt,
		Breaks:              breaks,
		TotalBookings:       s.TotalBookings,
		TotalRevenue:        s.TotalRevenue,
		ElapsedWorkSeconds:  int64(shift.ElapsedWork(s, now) / time.Second),
		ElapsedBreakSeconds: int64(shift.ElapsedBreak(s, now) / time.Second),
		ComputedAt:          now,
	}
}

// publishShiftStatus sends a shift status update to the dispatch topic exchange using routing key
// shift.status.{status}. Failures are logged and never undo the committed write.
func (service *shiftService) publishShiftStatus(ctx context.Context, s shift.Shift, corrID string) {
	routingKey := contracts.RouteShiftStatusPrefix + strings.ToLower(s.Status.String())

	body, err := json.Marshal(contracts.ShiftStatusMessage{
		ShiftID:   s.ID,
		DriverID:  s.DriverID,
		CompanyID: s.CompanyID,
		Status:    s.Status.String(),
		Timestamp: s.UpdatedAt,
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
		service.logger.Error(ctx, "shift_status_publish_failed", "Failed to publish shift status", err, map[string]any{
			"shift_id":    s.ID,
			"routing_key": routingKey,
			"request_id":  corrID,
		})
		return
	}

	service.logger.Debug(ctx, "shift_status_published", "Published shift status to RabbitMQ", map[string]any{
		"routing_key": routingKey,
	})
}
