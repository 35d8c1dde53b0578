package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/optimistic"
	"ride-dispatch/internal/domain/shift"
	"ride-dispatch/internal/ports"
)

// mutation applies one shift transition at now. txCtx is the transaction context.
type mutation func(txCtx context.Context, s *shift.Shift, now time.Time) error

// ActivateShift starts a scheduled shift.
func (service *shiftService) ActivateShift(ctx context.Context, actor ports.Actor, shiftID string) (ports.ShiftView, error) {
	return service.transition(ctx, actor, shiftID, "shift_activated", func(_ context.Context, s *shift.Shift, now time.Time) error {
		return s.Activate(now)
	})
}

// StartBreak pauses an active shift.
func (service *shiftService) StartBreak(ctx context.Context, actor ports.Actor, shiftID string) (ports.ShiftView, error) {
	return service.transition(ctx, actor, shiftID, "shift_break_started", func(_ context.Context, s *shift.Shift, now time.Time) error {
		return s.StartBreak(now)
	})
}

// EndBreak resumes a shift that is on break.
func (service *shiftService) EndBreak(ctx context.Context, actor ports.Actor, shiftID string) (ports.ShiftView, error) {
	return service.transition(ctx, actor, shiftID, "shift_break_ended", func(_ context.Context, s *shift.Shift, now time.Time) error {
		return s.EndBreak(now)
	})
}

// EndShift completes the shift. Without caller totals, the driver's bookings
// completed during the shift are aggregated.
func (service *shiftService) EndShift(ctx context.Context, actor ports.Actor, in ports.EndShiftInput) (ports.ShiftView, error) {
	return service.transition(ctx, actor, in.ShiftID, "shift_ended", func(txCtx context.Context, s *shift.Shift, now time.Time) error {
		if in.Totals != nil {
			return s.End(now, *in.Totals)
		}
		if !s.Status.OnDuty() {
			// let End report the precise state error
			return s.End(now, shift.Totals{})
		}

		totals, err := service.bookings.CompletedTotals(txCtx, s.DriverID, s.StartedAt, now)
		if err != nil {
			return fmt.Errorf("aggregate shift totals: %w", err)
		}
		return s.End(now, totals)
	})
}

// CancelShift drops a scheduled shift.
func (service *shiftService) CancelShift(ctx context.Context, actor ports.Actor, shiftID string) (ports.ShiftView, error) {
	return service.transition(ctx, actor, shiftID, "shift_cancelled", func(_ context.Context, s *shift.Shift, now time.Time) error {
		return s.Cancel(now)
	})
}

// transition loads the shift, applies mutate tentatively and confirms it with a
// conditional write on the status the shift was loaded with.
func (service *shiftService) transition(ctx context.Context, actor ports.Actor, shiftID, action string, mutate mutation) (ports.ShiftView, error) {
	shiftID = strings.TrimSpace(shiftID)
	if shiftID == "" {
		return ports.ShiftView{}, fmt.Errorf("%w: shift id is required", apperr.ErrValidation)
	}
	corrID := generateCorrelationID()

	var (
		result   shift.Shift
		previous shift.Status
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// load the shift
		s, err := service.shifts.GetByID(txCtx, shiftID)
		if err != nil {
			return err
		}
		if err := authorizeShift(actor, s); err != nil {
			return err
		}
		previous = s.Status

		// apply locally, keeping the undo snapshot
		now := service.clock.Now()
		update, err := optimistic.Begin(s, func(s *shift.Shift) error {
			return mutate(txCtx, s, now)
		})
		if err != nil {
			return err
		}

		// confirm with a CAS on the loaded status
		if err := update.Commit(txCtx, func(ctx context.Context, next shift.Shift) error {
			return service.shifts.CompareAndSwap(ctx, next, previous)
		}); err != nil {
			return err
		}

		result = *s
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, action+"_failed", "Shift transition failed", err, map[string]any{
			"shift_id":   shiftID,
			"code":       apperr.Code(err),
			"retryable":  apperr.Retryable(err),
			"request_id": corrID,
		})
		return ports.ShiftView{}, err
	}

	service.publishShiftStatus(ctx, result, corrID)

	service.logger.Info(ctx, action,
		fmt.Sprintf("Shift %s moved %s -> %s", result.ID, previous, result.Status),
		map[string]any{
			"shift_id":   result.ID,
			"driver_id":  result.DriverID,
			"request_id": corrID,
		},
	)

	return toView(result, service.clock.Now()), nil
}
