package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/booking"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/shift"
)

var now = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func TestShiftCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Shifts()

	s, err := shift.New("driver-1", "co-1", now)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, s))
	require.NotEmpty(t, s.ID)

	// one open shift per driver
	again, err := shift.New("driver-1", "co-1", now)
	require.NoError(t, err)
	require.ErrorIs(t, repo.Insert(ctx, again), apperr.ErrConflict)

	next := s.Clone()
	require.NoError(t, next.StartBreak(now.Add(time.Hour)))
	require.NoError(t, repo.CompareAndSwap(ctx, next, shift.StatusActive))

	// stale expectation
	require.ErrorIs(t, repo.CompareAndSwap(ctx, next, shift.StatusActive), apperr.ErrConflict)

	got, err := repo.GetOpenForDriver(ctx, "driver-1")
	require.NoError(t, err)
	require.Equal(t, shift.StatusBreak, got.Status)

	// stored copies are not aliased
	got.Breaks[0].Start = time.Time{}
	again2, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.False(t, again2.Breaks[0].Start.IsZero())
}

func TestBookingCompareAndSwapAnyOf(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Bookings()

	b, err := booking.New("bk-1", "co-1", "cust-1", now, 10, 1, now)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, b))

	next := b.Clone()
	require.NoError(t, next.Accept("driver-1", now))
	require.NoError(t, repo.CompareAndSwap(ctx, next, booking.AcceptFrom))
	require.ErrorIs(t, repo.CompareAndSwap(ctx, next, booking.AcceptFrom), apperr.ErrConflict)

	missing := next.Clone()
	missing.ID = "bk-2"
	require.ErrorIs(t, repo.CompareAndSwap(ctx, missing, booking.AcceptFrom), apperr.ErrNotFound)
}

func TestFaultsAndCancellation(t *testing.T) {
	store := NewStore()
	boom := errors.New("boom")
	store.Fail("booking.insert", boom)

	b, err := booking.New("bk-1", "co-1", "cust-1", now, 10, 1, now)
	require.NoError(t, err)
	require.ErrorIs(t, store.Bookings().Insert(context.Background(), b), boom)
	// consumed
	require.NoError(t, store.Bookings().Insert(context.Background(), b))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := b.Clone()
	require.ErrorIs(t, store.Bookings().CompareAndSwap(ctx, next, booking.AcceptFrom), context.Canceled)
}

func TestMessagesGetDenseSeq(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	driver := chat.Participant{Kind: chat.KindDriver, ID: "driver-1"}
	ops := chat.Participant{Kind: chat.KindDispatcher, ID: "ops-1"}

	c, err := chat.NewConversation("co-1", ops, driver, nil, now)
	require.NoError(t, err)
	conv, created, err := store.Conversations().GetOrCreate(ctx, c)
	require.NoError(t, err)
	require.True(t, created)

	for i := range 3 {
		m := chat.Message{ConversationID: conv.ID, Sender: ops, Body: chat.Text{Text: "hi"}, CreatedAt: now.Add(time.Duration(i) * time.Second)}
		require.NoError(t, store.Messages().Append(ctx, &m))
		require.EqualValues(t, i+1, m.Seq)
	}

	page, err := store.Messages().ListAfter(ctx, conv.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.EqualValues(t, 2, page[0].Seq)

	n, err := store.Messages().MarkRead(ctx, conv.ID, driver, now)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	n, err = store.Messages().MarkRead(ctx, conv.ID, ops, now)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestBusFanOutAndDrop(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	st, err := bus.Subscribe(context.Background(), "conversation.c1.message")
	require.NoError(t, err)
	require.Equal(t, 1, bus.Subscribers("conversation.c1.message"))

	require.NoError(t, bus.Publish("dispatch_topic", "conversation.c1.message", []byte("1")))
	require.NoError(t, bus.Publish("dispatch_topic", "conversation.c2.message", []byte("2")))

	ev := <-st.Events()
	require.Equal(t, "1", string(ev.Body))

	bus.Drop("conversation.c1.message")
	_, ok := <-st.Events()
	require.False(t, ok)
	require.Len(t, bus.PublishedTo("conversation.c2.message"), 1)
}

func TestBlobs(t *testing.T) {
	blobs := NewBlobs("http://files.test/")
	url, err := blobs.Upload(context.Background(), []byte("abc"), "text/plain")
	require.NoError(t, err)
	require.Contains(t, url, "http://files.test/attachments/")

	id := url[len("http://files.test/attachments/"):]
	b, err := blobs.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "abc", string(b.Data))

	blobs.FailNext(apperr.ErrUnavailable)
	_, err = blobs.Upload(context.Background(), []byte("x"), "text/plain")
	require.ErrorIs(t, err, apperr.ErrUnavailable)
	require.Equal(t, 1, blobs.Len())
}
