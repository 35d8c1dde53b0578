// Package memory holds in-process adapters for the store, blob storage and
// event source. They honour the same conditional-write contracts as the
// Postgres and RabbitMQ adapters and back the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/booking"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/shift"
	"ride-dispatch/internal/ports"
)

// Store keeps every entity behind one mutex.
type Store struct {
	mu sync.Mutex

	shifts        map[string]shift.Shift
	bookings      map[string]booking.Booking
	bookingEvents []ports.BookingEvent
	conversations map[string]chat.Conversation
	convKeys      map[string]string
	messages      map[string][]chat.Message

	faults map[string]error

	// BeforeWrite, when set, runs before every conditional write with the
	// operation name. Tests use it to line up concurrent writers.
	BeforeWrite func(op string)
}

func NewStore() *Store {
	return &Store{
		shifts:        map[string]shift.Shift{},
		bookings:      map[string]booking.Booking{},
		conversations: map[string]chat.Conversation{},
		convKeys:      map[string]string{},
		messages:      map[string][]chat.Message{},
		faults:        map[string]error{},
	}
}

// Fail makes the next call of op return err.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	s.faults[op] = err
	s.mu.Unlock()
}

// enter runs the write hook, takes the lock and consumes an injected fault.
func (s *Store) enter(ctx context.Context, op string) error {
	if s.BeforeWrite != nil {
		s.BeforeWrite(op)
	}
	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err, ok := s.faults[op]; ok {
		delete(s.faults, op)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Shifts() *Shifts               { return &Shifts{s: s} }
func (s *Store) Bookings() *Bookings           { return &Bookings{s: s} }
func (s *Store) BookingEvents() *BookingEvents { return &BookingEvents{s: s} }
func (s *Store) Conversations() *Conversations { return &Conversations{s: s} }
func (s *Store) Messages() *Messages           { return &Messages{s: s} }

// UnitOfWork runs fn directly; every memory operation is already atomic.
type UnitOfWork struct{}

func (UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ----- shifts -----

type Shifts struct{ s *Store }

var _ ports.ShiftRepository = (*Shifts)(nil)

func (r *Shifts) Insert(ctx context.Context, sh *shift.Shift) error {
	if err := r.s.enter(ctx, "shift.insert"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	for _, existing := range r.s.shifts {
		if existing.DriverID == sh.DriverID && existing.Status.Open() {
			return shift.ErrOpenShiftExists
		}
	}
	if sh.ID == "" {
		sh.ID = uuid.NewString()
	}
	r.s.shifts[sh.ID] = sh.Clone()
	return nil
}

func (r *Shifts) GetByID(ctx context.Context, id string) (*shift.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sh, ok := r.s.shifts[id]
	if !ok {
		return nil, fmt.Errorf("%w: shift %s", apperr.ErrNotFound, id)
	}
	out := sh.Clone()
	return &out, nil
}

func (r *Shifts) GetOpenForDriver(ctx context.Context, driverID string) (*shift.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, sh := range r.s.shifts {
		if sh.DriverID == driverID && sh.Status.Open() {
			out := sh.Clone()
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: no open shift for driver %s", apperr.ErrNotFound, driverID)
}

func (r *Shifts) CompareAndSwap(ctx context.Context, next shift.Shift, expected shift.Status) error {
	if err := r.s.enter(ctx, "shift.cas"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	cur, ok := r.s.shifts[next.ID]
	if !ok {
		return fmt.Errorf("%w: shift %s", apperr.ErrNotFound, next.ID)
	}
	if cur.Status != expected {
		return fmt.Errorf("%w: shift %s is %s, expected %s", apperr.ErrConflict, next.ID, cur.Status, expected)
	}
	r.s.shifts[next.ID] = next.Clone()
	return nil
}

// ----- bookings -----

type Bookings struct{ s *Store }

var _ ports.BookingRepository = (*Bookings)(nil)

func (r *Bookings) Insert(ctx context.Context, b *booking.Booking) error {
	if err := r.s.enter(ctx, "booking.insert"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, ok := r.s.bookings[b.ID]; ok {
		return fmt.Errorf("%w: booking %s already exists", apperr.ErrConflict, b.ID)
	}
	r.s.bookings[b.ID] = b.Clone()
	return nil
}

func (r *Bookings) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: booking %s", apperr.ErrNotFound, id)
	}
	out := b.Clone()
	return &out, nil
}

func (r *Bookings) CompareAndSwap(ctx context.Context, next booking.Booking, expected []booking.Status) error {
	if err := r.s.enter(ctx, "booking.cas"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	cur, ok := r.s.bookings[next.ID]
	if !ok {
		return fmt.Errorf("%w: booking %s", apperr.ErrNotFound, next.ID)
	}
	for _, st := range expected {
		if cur.Status == st {
			r.s.bookings[next.ID] = next.Clone()
			return nil
		}
	}
	return fmt.Errorf("%w: booking %s is %s", apperr.ErrConflict, next.ID, cur.Status)
}

func (r *Bookings) CompletedTotals(ctx context.Context, driverID string, from, to time.Time) (shift.Totals, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var t shift.Totals
	for _, b := range r.s.bookings {
		if b.Status != booking.StatusCompleted || !b.AssignedTo(driverID) || b.CompletedAt == nil {
			continue
		}
		if b.CompletedAt.Before(from) || b.CompletedAt.After(to) {
			continue
		}
		t.Bookings++
		t.Revenue += b.Price
	}
	return t, nil
}

type BookingEvents struct{ s *Store }

var _ ports.BookingEventRepository = (*BookingEvents)(nil)

func (r *BookingEvents) Append(ctx context.Context, e ports.BookingEvent) error {
	if err := r.s.enter(ctx, "booking_event.append"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	r.s.bookingEvents = append(r.s.bookingEvents, e)
	return nil
}

// List returns the audit trail of a booking in append order.
func (r *BookingEvents) List(bookingID string) []ports.BookingEvent {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []ports.BookingEvent
	for _, e := range r.s.bookingEvents {
		if e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out
}

// ----- conversations -----

type Conversations struct{ s *Store }

var _ ports.ConversationRepository = (*Conversations)(nil)

func conversationKey(c *chat.Conversation) string {
	a, b := chat.Canonical(c.Participant1, c.Participant2)
	return c.CompanyID + "|" + a.Key() + "|" + b.Key() + "|" + c.BookingKey()
}

func (r *Conversations) GetOrCreate(ctx context.Context, c *chat.Conversation) (*chat.Conversation, bool, error) {
	if err := r.s.enter(ctx, "conversation.get_or_create"); err != nil {
		return nil, false, err
	}
	defer r.s.mu.Unlock()

	key := conversationKey(c)
	if id, ok := r.s.convKeys[key]; ok {
		out := r.s.conversations[id]
		return cloneConversation(out), false, nil
	}

	stored := *cloneConversation(*c)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	r.s.conversations[stored.ID] = stored
	r.s.convKeys[key] = stored.ID
	return cloneConversation(stored), true, nil
}

func (r *Conversations) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, id)
	}
	return cloneConversation(c), nil
}

func (r *Conversations) ListForParticipant(ctx context.Context, companyID string, p chat.Participant) ([]*chat.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*chat.Conversation
	for _, c := range r.s.conversations {
		if c.CompanyID == companyID && c.Has(p) {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneConversation(c chat.Conversation) *chat.Conversation {
	if c.BookingID != nil {
		id := *c.BookingID
		c.BookingID = &id
	}
	return &c
}

// ----- messages -----

type Messages struct{ s *Store }

var _ ports.MessageRepository = (*Messages)(nil)

func (r *Messages) Append(ctx context.Context, m *chat.Message) error {
	if err := r.s.enter(ctx, "message.append"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	conv, ok := r.s.conversations[m.ConversationID]
	if !ok {
		return fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, m.ConversationID)
	}
	conv.LastSeq++
	r.s.conversations[conv.ID] = conv

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Seq = conv.LastSeq
	if prev := r.s.messages[conv.ID]; len(prev) > 0 && m.CreatedAt.Before(prev[len(prev)-1].CreatedAt) {
		m.CreatedAt = prev[len(prev)-1].CreatedAt
	}
	r.s.messages[conv.ID] = append(r.s.messages[conv.ID], *m)
	return nil
}

func (r *Messages) ListAfter(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]chat.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []chat.Message
	for _, m := range r.s.messages[conversationID] {
		if m.Seq > afterSeq {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Messages) MarkRead(ctx context.Context, conversationID string, reader chat.Participant, at time.Time) (int, error) {
	if err := r.s.enter(ctx, "message.mark_read"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()

	msgs := r.s.messages[conversationID]
	n := 0
	for i := range msgs {
		if msgs[i].Sender == reader || msgs[i].ReadAt != nil {
			continue
		}
		t := at
		msgs[i].ReadAt = &t
		n++
	}
	return n, nil
}

func cloneMessage(m chat.Message) chat.Message {
	if m.ReadAt != nil {
		t := *m.ReadAt
		m.ReadAt = &t
	}
	return m
}
