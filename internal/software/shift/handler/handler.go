package handler

import (
	"context"
	"net/http"
	"time"

	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/httpx"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/ports"
)

const serviceTimeout = 5 * time.Second

// ShiftHTTPHandler adapts HTTP requests to the ShiftService.
type ShiftHTTPHandler struct {
	svc    ports.ShiftService
	logger *logger.Logger
	auth   *jwt.Manager
	resp   *httpx.Responder
}

// NewShiftHTTPHandler wires an HTTP handler around the ShiftService.
func NewShiftHTTPHandler(svc ports.ShiftService, logger *logger.Logger, auth *jwt.Manager) *ShiftHTTPHandler {
	return &ShiftHTTPHandler{svc: svc, logger: logger, auth: auth, resp: httpx.NewResponder(logger)}
}

// RegisterRoutes mounts shift endpoints on the provided mux.
func (handler *ShiftHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	staff := []user.Role{user.RoleDriver, user.RoleDispatcher, user.RoleAdmin}
	guard := jwt.AuthMiddlewareFunc(handler.auth, staff...)

	mux.HandleFunc("POST /shifts", guard(handler.handleStartShift))
	mux.HandleFunc("POST /shifts/schedule", guard(handler.handleScheduleShift))
	mux.HandleFunc("POST /shifts/{shift_id}/activate", guard(handler.transition(handler.svc.ActivateShift)))
	mux.HandleFunc("POST /shifts/{shift_id}/break/start", guard(handler.transition(handler.svc.StartBreak)))
	mux.HandleFunc("POST /shifts/{shift_id}/break/end", guard(handler.transition(handler.svc.EndBreak)))
	mux.HandleFunc("POST /shifts/{shift_id}/end", guard(handler.handleEndShift))
	mux.HandleFunc("POST /shifts/{shift_id}/cancel", guard(handler.transition(handler.svc.CancelShift)))
	mux.HandleFunc("GET /shifts/{shift_id}", guard(handler.transition(handler.svc.Get)))
	mux.HandleFunc("GET /drivers/{driver_id}/shift", guard(handler.handleCurrentShift))
}

// actor returns the caller behind the JWT middleware.
func actor(r *http.Request) ports.Actor {
	return jwt.RequireClaims(r).Actor()
}

// bounded runs fn with the per-request service timeout.
func bounded[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()
	return fn(ctx)
}
