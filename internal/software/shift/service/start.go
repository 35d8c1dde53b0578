package service

import (
	"context"
	"fmt"
	"strings"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/shift"
	"ride-dispatch/internal/ports"
)

// StartShift opens an active shift for the driver at the current time.
func (service *shiftService) StartShift(ctx context.Context, actor ports.Actor, in ports.StartShiftInput) (ports.ShiftView, error) {
	return service.open(ctx, actor, in, "shift_started", func(driverID, companyID string) (*shift.Shift, error) {
		return shift.New(driverID, companyID, service.clock.Now())
	})
}

// ScheduleShift records a planned shift; it blocks other shifts for the driver like an active one.
func (service *shiftService) ScheduleShift(ctx context.Context, actor ports.Actor, in ports.StartShiftInput) (ports.ShiftView, error) {
	if in.PlannedStart == nil {
		return ports.ShiftView{}, fmt.Errorf("%w: planned_start is required", apperr.ErrValidation)
	}
	return service.open(ctx, actor, in, "shift_scheduled", func(driverID, companyID string) (*shift.Shift, error) {
		return shift.NewScheduled(driverID, companyID, *in.PlannedStart, service.clock.Now())
	})
}

func (service *shiftService) open(
	ctx context.Context,
	actor ports.Actor,
	in ports.StartShiftInput,
	action string,
	build func(driverID, companyID string) (*shift.Shift, error),
) (ports.ShiftView, error) {
	driverID := strings.TrimSpace(in.DriverID)
	if driverID == "" && actor.Role.IsDriver() {
		driverID = actor.UserID
	}
	companyID := strings.TrimSpace(in.CompanyID)
	if companyID == "" {
		companyID = actor.CompanyID
	}
	if !sameCompany(actor, companyID) {
		return ports.ShiftView{}, apperr.Forbidden("foreign_company")
	}
	if err := authorize(actor, driverID); err != nil {
		return ports.ShiftView{}, err
	}

	s, err := build(driverID, companyID)
	if err != nil {
		return ports.ShiftView{}, err
	}
	corrID := generateCorrelationID()

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.shifts.Insert(txCtx, s)
	})
	if err != nil {
		service.logger.Error(ctx, action+"_failed", "Failed to open shift", err, map[string]any{
			"driver_id":  driverID,
			"company_id": companyID,
			"request_id": corrID,
		})
		return ports.ShiftView{}, err
	}

	service.publishShiftStatus(ctx, *s, corrID)

	service.logger.Info(ctx, action,
		fmt.Sprintf("Shift %s opened for driver %s", s.ID, driverID),
		map[string]any{
			"shift_id":   s.ID,
			"driver_id":  driverID,
			"status":     s.Status.String(),
			"request_id": corrID,
		},
	)

	return toView(*s, service.clock.Now()), nil
}
