package service

import (
	"context"
	"strings"

	"ride-dispatch/internal/domain/shift"
	"ride-dispatch/internal/ports"
)

// Get returns a shift with elapsed values at the current time.
func (service *shiftService) Get(ctx context.Context, actor ports.Actor, shiftID string) (ports.ShiftView, error) {
	var s *shift.Shift
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		s, err = service.shifts.GetByID(txCtx, strings.TrimSpace(shiftID))
		return err
	})
	if err != nil {
		return ports.ShiftView{}, err
	}
	if err := authorizeShift(actor, s); err != nil {
		return ports.ShiftView{}, err
	}
	return toView(*s, service.clock.Now()), nil
}

// Current returns the driver's scheduled, active or break shift.
func (service *shiftService) Current(ctx context.Context, actor ports.Actor, driverID string) (ports.ShiftView, error) {
	driverID = strings.TrimSpace(driverID)
	if err := authorize(actor, driverID); err != nil {
		return ports.ShiftView{}, err
	}

	var s *shift.Shift
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		s, err = service.shifts.GetOpenForDriver(txCtx, driverID)
		return err
	})
	if err != nil {
		return ports.ShiftView{}, err
	}
	if err := authorizeShift(actor, s); err != nil {
		return ports.ShiftView{}, err
	}
	return toView(*s, service.clock.Now()), nil
}
