package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ride-dispatch/internal/domain/apperr"
)

var now = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newBooking(t *testing.T, status Status) *Booking {
	t.Helper()
	b, err := New("bk-1", "company-1", "cust-1", now.Add(time.Hour), 25, 2, now)
	require.NoError(t, err)
	b.Status = status
	if status == StatusAssigned || status == StatusInProgress {
		d := "driver-0"
		b.DriverID = &d
	}
	return b
}

func TestAcceptOnlyFromPendingOrAssigned(t *testing.T) {
	cases := []struct {
		from    Status
		wantErr error
	}{
		{StatusPending, nil},
		{StatusAssigned, nil},
		{StatusInProgress, apperr.ErrConflict},
		{StatusCompleted, apperr.ErrConflict},
		{StatusCancelled, apperr.ErrConflict},
	}

	for _, tc := range cases {
		t.Run(string(tc.from), func(t *testing.T) {
			b := newBooking(t, tc.from)
			driver := "driver-7"
			if tc.from == StatusAssigned {
				driver = "driver-0"
			}
			err := b.Accept(driver, now)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Equal(t, tc.from, b.Status)
				return
			}
			require.NoError(t, err)
			require.Equal(t, StatusInProgress, b.Status)
			require.True(t, b.AssignedTo(driver))
		})
	}
}

func TestAcceptAssignedOnlyByItsDriver(t *testing.T) {
	b := newBooking(t, StatusAssigned)

	err := b.Accept("driver-7", now)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	reason, ok := apperr.ReasonOf(err)
	require.True(t, ok)
	require.Equal(t, "not_assigned_driver", reason)
	require.Equal(t, StatusAssigned, b.Status)
	require.True(t, b.AssignedTo("driver-0"))
}

func TestAcceptRequiresDriver(t *testing.T) {
	b := newBooking(t, StatusPending)
	require.ErrorIs(t, b.Accept("  ", now), apperr.ErrValidation)
}

func TestCompleteOnlyFromInProgress(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusAssigned, StatusCompleted, StatusCancelled} {
		b := newBooking(t, from)
		require.ErrorIs(t, b.Complete(now), apperr.ErrInvalidState, from)
	}

	b := newBooking(t, StatusInProgress)
	require.NoError(t, b.Complete(now))
	require.Equal(t, StatusCompleted, b.Status)
	require.Equal(t, now, *b.CompletedAt)
}

func TestDeclineClearsDriverFromAnyNonTerminal(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusAssigned, StatusInProgress} {
		b := newBooking(t, from)
		require.NoError(t, b.Decline(now), from)
		require.Equal(t, StatusCancelled, b.Status)
		require.Nil(t, b.DriverID)
		require.NotNil(t, b.CancelledAt)
	}

	for _, from := range []Status{StatusCompleted, StatusCancelled} {
		b := newBooking(t, from)
		require.ErrorIs(t, b.Decline(now), apperr.ErrInvalidState, from)
	}
}

func TestCloneDoesNotShareDriver(t *testing.T) {
	b := newBooking(t, StatusAssigned)
	c := b.Clone()
	*c.DriverID = "someone-else"
	require.Equal(t, "driver-0", *b.DriverID)
}

func TestNewValidates(t *testing.T) {
	_, err := New("", "c", "x", now, 10, 1, now)
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = New("id", "c", "x", now, 10, 0, now)
	require.ErrorIs(t, err, ErrInvalidPassenger)
	_, err = New("id", "c", "x", now, -1, 1, now)
	require.ErrorIs(t, err, ErrNegativePrice)
}

func TestStatusHelpers(t *testing.T) {
	s, err := ParseStatus(" IN_PROGRESS ")
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, s)
	require.True(t, StatusAssigned.CanTransitionTo(StatusInProgress))
	require.False(t, StatusCompleted.CanTransitionTo(StatusCancelled))
	require.Equal(t, []string{"pending", "assigned"}, Strings(AcceptFrom))

	ev, ok := EventFor(StatusCancelled)
	require.True(t, ok)
	require.Equal(t, EventDeclined, ev)
}
