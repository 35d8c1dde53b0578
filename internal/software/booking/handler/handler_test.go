package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ride-dispatch/internal/domain/booking"
	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/clock"
	"ride-dispatch/internal/general/httpx"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/memory"
	"ride-dispatch/internal/ports"
	"ride-dispatch/internal/software/booking/service"
)

type fixture struct {
	mux   *http.ServeMux
	mgr   *jwt.Manager
	store *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.NewWithWriter("dispatch-service", io.Discard)
	store := memory.NewStore()
	clk := clock.NewManual(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	svc := service.NewLifecycle(log, memory.UnitOfWork{}, store.Bookings(), store.BookingEvents(), memory.NewBus(), clk)

	b, err := booking.New("bk-1", "co-1", "cust-1", clk.Now().Add(time.Hour), 42, 2, clk.Now())
	require.NoError(t, err)
	require.NoError(t, store.Bookings().Insert(context.Background(), b))

	mgr := jwt.NewManager("test-secret", time.Hour)
	mux := http.NewServeMux()
	NewBookingHTTPHandler(svc, log, mgr).RegisterRoutes(mux)
	return &fixture{mux: mux, mgr: mgr, store: store}
}

func (f *fixture) post(t *testing.T, path, userID string, role user.Role) *httptest.ResponseRecorder {
	t.Helper()

	tok, _, err := f.mgr.IssueUserToken(userID, role, "co-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestAcceptThenComplete(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/bookings/bk-1/accept", "driver-1", user.RoleDriver)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v ports.BookingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Equal(t, "in_progress", v.Status)
	require.Equal(t, "driver-1", *v.DriverID)

	// a second driver lost the race
	rec = f.post(t, "/bookings/bk-1/accept", "driver-2", user.RoleDriver)
	require.Equal(t, http.StatusConflict, rec.Code)
	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Retryable)

	rec = f.post(t, "/bookings/bk-1/complete", "driver-1", user.RoleDriver)
	require.Equal(t, http.StatusOK, rec.Code)

	// nothing left to complete
	rec = f.post(t, "/bookings/bk-1/complete", "driver-1", user.RoleDriver)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeclineByOtherDriverIsForbidden(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.post(t, "/bookings/bk-1/accept", "driver-1", user.RoleDriver).Code)

	rec := f.post(t, "/bookings/bk-1/decline", "driver-2", user.RoleDriver)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.post(t, "/bookings/bk-1/decline", "ops-1", user.RoleDispatcher)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCustomersCannotReachBookingOps(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/bookings/bk-1/accept", "cust-1", user.RoleCustomer)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.post(t, "/bookings/missing/accept", "driver-1", user.RoleDriver)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
