package service

import (
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/ports"
)

// shiftService encapsulates the shift tracker logic and dependencies.
type shiftService struct {
	logger   *logger.Logger
	uow      ports.UnitOfWork
	shifts   ports.ShiftRepository
	bookings ports.BookingRepository
	pub      ports.EventPublisher
	clock    ports.Clock
}

// NewShiftService creates a new instance of the ShiftService with the provided dependencies.
func NewShiftService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	shifts ports.ShiftRepository,
	bookings ports.BookingRepository,
	pub ports.EventPublisher,
	clock ports.Clock,
) ports.ShiftService {
	return &shiftService{
		logger:   logger,
		uow:      uow,
		shifts:   shifts,
		bookings: bookings,
		pub:      pub,
		clock:    clock,
	}
}
