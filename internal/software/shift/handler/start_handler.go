package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type startShiftRequest struct {
	DriverID     string     `json:"driver_id"`     // defaults to the token subject for drivers
	PlannedStart *time.Time `json:"planned_start"` // schedule only
}

// ----- Handler: POST /shifts -----

func (handler *ShiftHTTPHandler) handleStartShift(w http.ResponseWriter, r *http.Request) {
	handler.open(w, r, false)
}

// ----- Handler: POST /shifts/schedule -----

func (handler *ShiftHTTPHandler) handleScheduleShift(w http.ResponseWriter, r *http.Request) {
	handler.open(w, r, true)
}

func (handler *ShiftHTTPHandler) open(w http.ResponseWriter, r *http.Request, scheduled bool) {
	ctx := handler.resp.WithReqID(r.Context(), r)

	var req startShiftRequest
	if r.ContentLength != 0 {
		if !handler.resp.DecodeJSON(ctx, w, r, 64<<10, &req) {
			return
		}
	}
	if scheduled && req.PlannedStart == nil {
		handler.resp.Fail(ctx, w, fmt.Errorf("%w: planned_start is required", apperr.ErrValidation))
		return
	}

	a := actor(r)
	in := ports.StartShiftInput{DriverID: req.DriverID, CompanyID: a.CompanyID}

	res, err := bounded(ctx, func(ctx context.Context) (ports.ShiftView, error) {
		if scheduled {
			planned := req.PlannedStart.UTC()
			in.PlannedStart = &planned
			return handler.svc.ScheduleShift(ctx, a, in)
		}
		return handler.svc.StartShift(ctx, a, in)
	})
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}

	handler.resp.JSON(ctx, w, http.StatusCreated, res)
}
