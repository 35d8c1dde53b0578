package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ride-dispatch/internal/domain/booking"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/shift"
)

func clock(h, m int) time.Time {
	return time.Date(2025, 3, 14, h, m, 0, 0, time.UTC)
}

func bookingCtx(status booking.Status, pickup, now time.Time) Context {
	return Context{
		Relationship: chat.RelationshipBooking,
		Booking:      &BookingState{Status: status, PickupTime: pickup},
		Now:          now,
	}
}

func statusPtr(s shift.Status) *shift.Status { return &s }

func TestDutyRelationship(t *testing.T) {
	cases := []struct {
		name   string
		status *shift.Status
		want   bool
	}{
		{"no shift", nil, false},
		{"scheduled", statusPtr(shift.StatusScheduled), false},
		{"active", statusPtr(shift.StatusActive), true},
		{"break", statusPtr(shift.StatusBreak), true},
		{"completed", statusPtr(shift.StatusCompleted), false},
		{"cancelled", statusPtr(shift.StatusCancelled), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Evaluate(Context{Relationship: chat.RelationshipDuty, ShiftStatus: tc.status, Now: clock(10, 0)})
			require.Equal(t, tc.want, d.Allowed)
			if !tc.want {
				require.Equal(t, ReasonDriverOffDuty, d.Reason)
			}
		})
	}
}

func TestScenarioPickupWindow(t *testing.T) {
	pickup := clock(14, 0)
	require.True(t, CanSend(bookingCtx(booking.StatusAssigned, pickup, clock(13, 35))))

	d := Evaluate(bookingCtx(booking.StatusAssigned, pickup, clock(13, 25)))
	require.False(t, d.Allowed)
	require.Equal(t, ReasonOutsideBookingWindow, d.Reason)
}

func TestScenarioAfterCompletion(t *testing.T) {
	pickup := clock(9, 0)
	require.True(t, CanSend(bookingCtx(booking.StatusCompleted, pickup, clock(9, 25))))
	require.False(t, CanSend(bookingCtx(booking.StatusCompleted, pickup, clock(9, 35))))
}

func TestInProgressAlwaysAllowed(t *testing.T) {
	pickup := clock(9, 0)
	require.True(t, CanSend(bookingCtx(booking.StatusInProgress, pickup, clock(3, 0))))
	require.True(t, CanSend(bookingCtx(booking.StatusInProgress, pickup, clock(23, 0))))
}

func TestPrePickupWindowIsMonotonic(t *testing.T) {
	pickup := clock(14, 0)
	start := pickup.Add(-DefaultWindow)

	for _, status := range []booking.Status{booking.StatusPending, booking.StatusAssigned} {
		for offset := -2 * time.Hour; offset <= 0; offset += 7 * time.Second {
			now := pickup.Add(offset)
			want := !now.Before(start)
			require.Equal(t, want, CanSend(bookingCtx(status, pickup, now)), "status=%s now=%s", status, now)
		}
		require.False(t, CanSend(bookingCtx(status, pickup, start.Add(-time.Second))))
		require.True(t, CanSend(bookingCtx(status, pickup, start)))
		require.True(t, CanSend(bookingCtx(status, pickup, pickup)))
		require.False(t, CanSend(bookingCtx(status, pickup, pickup.Add(time.Second))))
	}
}

func TestCancelledBookingOnlyInsideWindow(t *testing.T) {
	pickup := clock(14, 0)
	require.True(t, CanSend(bookingCtx(booking.StatusCancelled, pickup, clock(13, 50))))
	require.False(t, CanSend(bookingCtx(booking.StatusCancelled, pickup, clock(14, 10))))
}

func TestNoBookingReference(t *testing.T) {
	d := Evaluate(Context{Relationship: chat.RelationshipBooking, Now: clock(10, 0)})
	require.False(t, d.Allowed)
	require.Equal(t, ReasonNoBookingReference, d.Reason)
}

func TestCustomWindow(t *testing.T) {
	c := bookingCtx(booking.StatusPending, clock(14, 0), clock(13, 15))
	require.False(t, CanSend(c))
	c.Window = time.Hour
	require.True(t, CanSend(c))
}

func TestMinutesRoundsUp(t *testing.T) {
	require.Equal(t, int64(0), Minutes(0))
	require.Equal(t, int64(1), Minutes(time.Second))
	require.Equal(t, int64(30), Minutes(30*time.Minute))
	require.Equal(t, int64(31), Minutes(30*time.Minute+time.Millisecond))
	require.Equal(t, int64(-1), Minutes(-90*time.Second))
}
