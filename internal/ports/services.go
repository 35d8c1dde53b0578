package ports

import (
	"context"
	"time"

	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/shift"
	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/contracts"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID    string
	Role      user.Role
	CompanyID string
}

// Privileged reports whether the actor may act on entities it does not own.
func (a Actor) Privileged() bool {
	return a.Role == user.RoleDispatcher || a.Role == user.RoleAdmin
}

// ----- DTOs for Shift Tracker -----

// BreakView is a single break in API responses.
type BreakView struct {
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
}

// ShiftView is returned by every ShiftService operation. Elapsed values are computed at the service clock's now.
type ShiftView struct {
	ShiftID             string      `json:"shift_id"`
	DriverID            string      `json:"driver_id"`
	CompanyID           string      `json:"company_id"`
	Status              string      `json:"status"`
	StartedAt           time.Time   `json:"started_at"`
	EndedAt             *time.Time  `json:"ended_at,omitempty"`
	Breaks              []BreakView `json:"breaks"`
	TotalBookings       int         `json:"total_bookings"`
	TotalRevenue        float64     `json:"total_revenue"`
	ElapsedWorkSeconds  int64       `json:"elapsed_work_seconds"`
	ElapsedBreakSeconds int64       `json:"elapsed_break_seconds"`
	ComputedAt          time.Time   `json:"computed_at"`
}

// StartShiftInput is the validated input for starting or scheduling a shift.
type StartShiftInput struct {
	DriverID     string
	CompanyID    string
	PlannedStart *time.Time // only for ScheduleShift
}

// EndShiftInput carries optional caller-computed totals.
type EndShiftInput struct {
	ShiftID string
	Totals  *shift.Totals // nil: aggregate completed bookings
}

// ----- Shift Service Interface -----

// ShiftService exposes the driver duty-cycle operations.
type ShiftService interface {
	StartShift(ctx context.Context, actor Actor, in StartShiftInput) (ShiftView, error)
	ScheduleShift(ctx context.Context, actor Actor, in StartShiftInput) (ShiftView, error)
	ActivateShift(ctx context.Context, actor Actor, shiftID string) (ShiftView, error)
	StartBreak(ctx context.Context, actor Actor, shiftID string) (ShiftView, error)
	EndBreak(ctx context.Context, actor Actor, shiftID string) (ShiftView, error)
	EndShift(ctx context.Context, actor Actor, in EndShiftInput) (ShiftView, error)
	CancelShift(ctx context.Context, actor Actor, shiftID string) (ShiftView, error)
	Get(ctx context.Context, actor Actor, shiftID string) (ShiftView, error)
	Current(ctx context.Context, actor Actor, driverID string) (ShiftView, error)
}

// ---------------------------------------------------------------------------------------------------------------

// ----- DTOs for Booking Lifecycle -----

// BookingView is returned by BookingService operations.
type BookingView struct {
	BookingID   string     `json:"booking_id"`
	CompanyID   string     `json:"company_id"`
	Status      string     `json:"status"`
	DriverID    *string    `json:"driver_id"`
	PickupTime  time.Time  `json:"pickup_time"`
	Price       float64    `json:"price"`
	Passengers  int        `json:"passengers"`
	CustomerRef string     `json:"customer_ref"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ----- Booking Service Interface -----

// BookingService exposes the booking assignment lifecycle.
type BookingService interface {
	Accept(ctx context.Context, actor Actor, bookingID string) (BookingView, error)
	Decline(ctx context.Context, actor Actor, bookingID string) (BookingView, error)
	Complete(ctx context.Context, actor Actor, bookingID string) (BookingView, error)
	Get(ctx context.Context, actor Actor, bookingID string) (BookingView, error)
}

// ---------------------------------------------------------------------------------------------------------------

// ----- DTOs for Conversation Channel -----

// ConversationView is returned by conversation operations.
type ConversationView struct {
	ConversationID string                     `json:"conversation_id"`
	CompanyID      string                     `json:"company_id"`
	Participants   []contracts.ParticipantRef `json:"participants"`
	BookingID      *string                    `json:"booking_id,omitempty"`
	LastSeq        int64                      `json:"last_seq"`
	CreatedAt      time.Time                  `json:"created_at"`
	Created        bool                       `json:"created"`
}

// OpenConversationInput is the validated input for get-or-create.
type OpenConversationInput struct {
	CompanyID string
	Self      chat.Participant
	Other     chat.Participant
	BookingID *string
}

// SendMessageInput is the validated input for sending a message.
type SendMessageInput struct {
	ConversationID string
	Sender         chat.Participant
	Draft          chat.Draft
}

// HistoryInput selects a page of history.
type HistoryInput struct {
	ConversationID string
	Reader         chat.Participant
	AfterSeq       int64
	Limit          int
}

// HistoryResult is a page of ordered messages.
type HistoryResult struct {
	ConversationID string                  `json:"conversation_id"`
	Messages       []contracts.ChatMessage `json:"messages"`
	NextAfterSeq   int64                   `json:"next_after_seq"`
}

// MarkReadResult reports how many messages were stamped.
type MarkReadResult struct {
	ConversationID string    `json:"conversation_id"`
	Updated        int       `json:"updated"`
	ReadAt         time.Time `json:"read_at"`
}

// MessageWatch is a live, cancellable feed of a conversation's new messages.
type MessageWatch interface {
	// Messages is closed when the watch ends; check Err afterwards.
	Messages() <-chan contracts.ChatMessage
	Close() error
	// Err is non-nil when the watch ended because the stream was lost.
	Err() error
}

// ----- Chat Service Interface -----

// ChatService exposes the conversation channel.
type ChatService interface {
	GetOrCreate(ctx context.Context, in OpenConversationInput) (ConversationView, error)
	ListForParticipant(ctx context.Context, companyID string, p chat.Participant) ([]ConversationView, error)
	Send(ctx context.Context, in SendMessageInput) (contracts.ChatMessage, error)
	History(ctx context.Context, in HistoryInput) (HistoryResult, error)
	MarkRead(ctx context.Context, conversationID string, reader chat.Participant) (MarkReadResult, error)
	Watch(ctx context.Context, conversationID string, viewer chat.Participant, afterSeq int64) (MessageWatch, error)
}
