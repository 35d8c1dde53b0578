package handler

import (
	"context"
	"net/http"
	"strings"

	"ride-dispatch/internal/domain/shift"
	"ride-dispatch/internal/ports"
)

type shiftOp func(ctx context.Context, actor ports.Actor, shiftID string) (ports.ShiftView, error)

// transition serves every /shifts/{shift_id} operation that needs no body.
func (handler *ShiftHTTPHandler) transition(op shiftOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := handler.resp.WithReqID(r.Context(), r)
		shiftID := strings.TrimSpace(r.PathValue("shift_id"))

		res, err := bounded(ctx, func(ctx context.Context) (ports.ShiftView, error) {
			return op(ctx, actor(r), shiftID)
		})
		if err != nil {
			handler.resp.Fail(ctx, w, err)
			return
		}
		handler.resp.JSON(ctx, w, http.StatusOK, res)
	}
}

// --- Request DTO (HTTP boundary) ---

// endShiftRequest optionally carries totals computed by the caller; without
// them the service sums the driver's completed bookings.
type endShiftRequest struct {
	TotalBookings *int     `json:"total_bookings"`
	TotalRevenue  *float64 `json:"total_revenue"`
}

// ----- Handler: POST /shifts/{shift_id}/end -----

func (handler *ShiftHTTPHandler) handleEndShift(w http.ResponseWriter, r *http.Request) {
	ctx := handler.resp.WithReqID(r.Context(), r)

	var req endShiftRequest
	if r.ContentLength != 0 {
		if !handler.resp.DecodeJSON(ctx, w, r, 16<<10, &req) {
			return
		}
	}

	in := ports.EndShiftInput{ShiftID: strings.TrimSpace(r.PathValue("shift_id"))}
	if req.TotalBookings != nil || req.TotalRevenue != nil {
		t := shift.Totals{}
		if req.TotalBookings != nil {
			t.Bookings = *req.TotalBookings
		}
		if req.TotalRevenue != nil {
			t.Revenue = *req.TotalRevenue
		}
		in.Totals = &t
	}

	res, err := bounded(ctx, func(ctx context.Context) (ports.ShiftView, error) {
		return handler.svc.EndShift(ctx, actor(r), in)
	})
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}
	handler.resp.JSON(ctx, w, http.StatusOK, res)
}

// ----- Handler: GET /drivers/{driver_id}/shift -----

func (handler *ShiftHTTPHandler) handleCurrentShift(w http.ResponseWriter, r *http.Request) {
	ctx := handler.resp.WithReqID(r.Context(), r)
	driverID := strings.TrimSpace(r.PathValue("driver_id"))

	res, err := bounded(ctx, func(ctx context.Context) (ports.ShiftView, error) {
		return handler.svc.Current(ctx, actor(r), driverID)
	})
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}
	handler.resp.JSON(ctx, w, http.StatusOK, res)
}
