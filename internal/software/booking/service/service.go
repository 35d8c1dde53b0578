package service

import (
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/ports"
)

// Lifecycle drives bookings through accept, decline and complete. Besides the
// one-shot operations of ports.BookingService it exposes the two phases
// (Begin*/Commit) for callers that render the tentative state first.
type Lifecycle struct {
	logger   *logger.Logger
	uow      ports.UnitOfWork
	bookings ports.BookingRepository
	events   ports.BookingEventRepository
	pub      ports.EventPublisher
	clock    ports.Clock
}

var _ ports.BookingService = (*Lifecycle)(nil)

// NewLifecycle creates a booking lifecycle with the provided dependencies.
func NewLifecycle(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	bookings ports.BookingRepository,
	events ports.BookingEventRepository,
	pub ports.EventPublisher,
	clock ports.Clock,
) *Lifecycle {
	return &Lifecycle{
		logger:   logger,
		uow:      uow,
		bookings: bookings,
		events:   events,
		pub:      pub,
		clock:    clock,
	}
}
