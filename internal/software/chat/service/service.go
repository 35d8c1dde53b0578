package service

import (
	"time"

	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/gate"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/ports"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Options tune message policy.
type Options struct {
	Policy        chat.AttachmentPolicy
	BookingWindow time.Duration // zero means gate.DefaultWindow
}

// Deps are the collaborators of the chat service.
type Deps struct {
	UoW           ports.UnitOfWork
	Conversations ports.ConversationRepository
	Messages      ports.MessageRepository
	Shifts        ports.ShiftRepository
	Bookings      ports.BookingRepository
	Blobs         ports.BlobStorage
	Publisher     ports.EventPublisher
	Source        ports.EventSource
	Clock         ports.Clock
}

// chatService encapsulates the conversation channel.
type chatService struct {
	logger        *logger.Logger
	uow           ports.UnitOfWork
	conversations ports.ConversationRepository
	messages      ports.MessageRepository
	shifts        ports.ShiftRepository
	bookings      ports.BookingRepository
	blobs         ports.BlobStorage
	pub           ports.EventPublisher
	source        ports.EventSource
	clock         ports.Clock

	policy chat.AttachmentPolicy
	window time.Duration
}

// NewChatService creates the conversation channel service.
func NewChatService(logger *logger.Logger, deps Deps, opts Options) ports.ChatService {
	if opts.Policy.Allowed == nil {
		maxBytes := opts.Policy.MaxBytes
		opts.Policy = chat.DefaultAttachmentPolicy()
		if maxBytes > 0 {
			opts.Policy.MaxBytes = maxBytes
		}
	}
	if opts.BookingWindow <= 0 {
		opts.BookingWindow = gate.DefaultWindow
	}

	return &chatService{
		logger:        logger,
		uow:           deps.UoW,
		conversations: deps.Conversations,
		messages:      deps.Messages,
		shifts:        deps.Shifts,
		bookings:      deps.Bookings,
		blobs:         deps.Blobs,
		pub:           deps.Publisher,
		source:        deps.Source,
		clock:         deps.Clock,
		policy:        opts.Policy,
		window:        opts.BookingWindow,
	}
}
