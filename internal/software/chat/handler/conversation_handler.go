package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type openConversationRequest struct {
	With      contracts.ParticipantRef `json:"with"`
	BookingID *string                  `json:"booking_id"`
}

// ----- Handler: POST /conversations -----

func (handler *ChatHTTPHandler) handleOpenConversation(w http.ResponseWriter, r *http.Request) {
	ctx := handler.resp.WithReqID(r.Context(), r)

	var req openConversationRequest
	if !handler.resp.DecodeJSON(ctx, w, r, 16<<10, &req) {
		return
	}

	self, err := participant(r)
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}
	kind, err := chat.ParseKind(req.With.Type)
	if err != nil {
		handler.resp.Fail(ctx, w, fmt.Errorf("%w: with.type: %s", apperr.ErrValidation, err))
		return
	}
	if req.BookingID != nil {
		id := strings.TrimSpace(*req.BookingID)
		req.BookingID = &id
		if id == "" {
			req.BookingID = nil
		}
	}

	in := ports.OpenConversationInput{
		CompanyID: jwt.RequireClaims(r).CompanyID,
		Self:      self,
		Other:     chat.Participant{Kind: kind, ID: strings.TrimSpace(req.With.ID)},
		BookingID: req.BookingID,
	}

	res, err := bounded(ctx, func(ctx context.Context) (ports.ConversationView, error) {
		return handler.svc.GetOrCreate(ctx, in)
	})
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	handler.resp.JSON(ctx, w, status, res)
}

// ----- Handler: GET /conversations -----

func (handler *ChatHTTPHandler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := handler.resp.WithReqID(r.Context(), r)

	self, err := participant(r)
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}

	res, err := bounded(ctx, func(ctx context.Context) ([]ports.ConversationView, error) {
		return handler.svc.ListForParticipant(ctx, jwt.RequireClaims(r).CompanyID, self)
	})
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}

	type listResponse struct {
		Conversations []ports.ConversationView `json:"conversations"`
	}
	if res == nil {
		res = []ports.ConversationView{}
	}
	handler.resp.JSON(ctx, w, http.StatusOK, listResponse{Conversations: res})
}

// ----- Handler: POST /conversations/{conversation_id}/read -----

func (handler *ChatHTTPHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := handler.resp.WithReqID(r.Context(), r)

	self, err := participant(r)
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}
	conversationID := strings.TrimSpace(r.PathValue("conversation_id"))

	res, err := bounded(ctx, func(ctx context.Context) (ports.MarkReadResult, error) {
		return handler.svc.MarkRead(ctx, conversationID, self)
	})
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}
	handler.resp.JSON(ctx, w, http.StatusOK, res)
}
