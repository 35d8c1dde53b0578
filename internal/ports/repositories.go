package ports

import (
	"context"
	"time"

	"ride-dispatch/internal/domain/booking"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/shift"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ShiftRepository defines the methods for managing driver shifts.
type ShiftRepository interface {
	// Insert stores a new shift and assigns its ID. Fails with apperr.ErrConflict when the
	// driver already has a scheduled, active or break shift.
	Insert(ctx context.Context, s *shift.Shift) error
	GetByID(ctx context.Context, id string) (*shift.Shift, error)
	// GetOpenForDriver returns apperr.ErrNotFound when the driver has no open shift.
	GetOpenForDriver(ctx context.Context, driverID string) (*shift.Shift, error)
	// CompareAndSwap writes next only if the stored status still equals expected.
	CompareAndSwap(ctx context.Context, next shift.Shift, expected shift.Status) error
}

// BookingRepository defines the methods for managing bookings.
type BookingRepository interface {
	Insert(ctx context.Context, b *booking.Booking) error
	GetByID(ctx context.Context, id string) (*booking.Booking, error)
	// CompareAndSwap writes next only if the stored status is one of expected.
	CompareAndSwap(ctx context.Context, next booking.Booking, expected []booking.Status) error
	// CompletedTotals aggregates bookings completed by driverID inside [from, to].
	CompletedTotals(ctx context.Context, driverID string, from, to time.Time) (shift.Totals, error)
}

// BookingEventRepository appends the booking audit trail.
type BookingEventRepository interface {
	Append(ctx context.Context, e BookingEvent) error
}

// BookingEvent is one audit row.
type BookingEvent struct {
	BookingID string
	EventType booking.EventType
	Data      map[string]any
	CreatedAt time.Time
}

// ConversationRepository defines the methods for managing conversations.
type ConversationRepository interface {
	// GetOrCreate returns the conversation with the same (company, participants, booking) key,
	// inserting c when none exists. created reports whether this call inserted it.
	GetOrCreate(ctx context.Context, c *chat.Conversation) (conv *chat.Conversation, created bool, err error)
	GetByID(ctx context.Context, id string) (*chat.Conversation, error)
	ListForParticipant(ctx context.Context, companyID string, p chat.Participant) ([]*chat.Conversation, error)
}

// MessageRepository defines the methods for managing message history.
type MessageRepository interface {
	// Append assigns the next per-conversation seq and stores m.
	Append(ctx context.Context, m *chat.Message) error
	// ListAfter returns up to limit messages with seq > afterSeq ordered by createdAt, seq.
	ListAfter(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]chat.Message, error)
	// MarkRead stamps readAt on unread messages not sent by reader and returns how many changed.
	MarkRead(ctx context.Context, conversationID string, reader chat.Participant, at time.Time) (int, error)
}

// BlobStorage stores attachment bytes and returns a URL for them.
type BlobStorage interface {
	Upload(ctx context.Context, data []byte, contentType string) (url string, err error)
}

// Blob is a stored attachment.
type Blob struct {
	ID          string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// BlobReader serves stored attachments back.
type BlobReader interface {
	Get(ctx context.Context, id string) (*Blob, error)
}
