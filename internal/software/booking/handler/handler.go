package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/httpx"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/ports"
)

// BookingHTTPHandler adapts HTTP requests to the BookingService.
type BookingHTTPHandler struct {
	svc    ports.BookingService
	logger *logger.Logger
	auth   *jwt.Manager
	resp   *httpx.Responder
}

// NewBookingHTTPHandler wires an HTTP handler around the BookingService.
func NewBookingHTTPHandler(svc ports.BookingService, logger *logger.Logger, auth *jwt.Manager) *BookingHTTPHandler {
	return &BookingHTTPHandler{svc: svc, logger: logger, auth: auth, resp: httpx.NewResponder(logger)}
}

// RegisterRoutes mounts booking endpoints on the provided mux.
func (handler *BookingHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	guard := jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver, user.RoleDispatcher, user.RoleAdmin)

	mux.HandleFunc("POST /bookings/{booking_id}/accept", guard(handler.serve("accept", handler.svc.Accept)))
	mux.HandleFunc("POST /bookings/{booking_id}/decline", guard(handler.serve("decline", handler.svc.Decline)))
	mux.HandleFunc("POST /bookings/{booking_id}/complete", guard(handler.serve("complete", handler.svc.Complete)))
	mux.HandleFunc("GET /bookings/{booking_id}", guard(handler.serve("get", handler.svc.Get)))
}

type bookingOp func(ctx context.Context, actor ports.Actor, bookingID string) (ports.BookingView, error)

// ----- Handler: POST /bookings/{booking_id}/{op}, GET /bookings/{booking_id} -----

func (handler *BookingHTTPHandler) serve(name string, op bookingOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := handler.resp.WithReqID(r.Context(), r)

		bookingID := strings.TrimSpace(r.PathValue("booking_id"))
		ctx = handler.logger.WithBookingID(ctx, bookingID)

		// bound service call
		ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		res, err := op(ctxWithTimeout, jwt.RequireClaims(r).Actor(), bookingID)
		if err != nil {
			handler.logger.Debug(ctx, "booking_request_failed", "Booking "+name+" failed", map[string]any{"op": name})
			handler.resp.Fail(ctx, w, err)
			return
		}

		handler.resp.JSON(ctx, w, http.StatusOK, res)
	}
}
