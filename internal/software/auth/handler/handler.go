package handler

import (
	"net/http"
	"strings"
	"time"

	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/httpx"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
)

// AuthHTTPHandler serves the dev token endpoint and the health probe.
type AuthHTTPHandler struct {
	logger *logger.Logger
	auth   *jwt.Manager
	resp   *httpx.Responder
}

func NewAuthHTTPHandler(logger *logger.Logger, auth *jwt.Manager) *AuthHTTPHandler {
	return &AuthHTTPHandler{logger: logger, auth: auth, resp: httpx.NewResponder(logger)}
}

// RegisterRoutes mounts the endpoints on the provided mux.
func (handler *AuthHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", httpx.Health)
	mux.HandleFunc("POST /tokens", handler.handleCreateToken)
}

type tokenRequest struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id"`
}

// TokenResponse represents the response for token generation
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      user.Role `json:"role"`
	CompanyID string    `json:"company_id"`
}

// ----- Handler: POST /tokens -----

func (handler *AuthHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.resp.WithReqID(r.Context(), r)

	var req tokenRequest
	if !handler.resp.DecodeJSON(ctx, w, r, 4<<10, &req) {
		return
	}

	// Validate required fields
	if strings.TrimSpace(req.UserID) == "" {
		handler.resp.Error(ctx, w, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	role, err := user.ParseRole(req.Role)
	if err != nil {
		handler.resp.Error(ctx, w, http.StatusBadRequest, "role must be one of: DRIVER, DISPATCHER, CUSTOMER, ADMIN", err)
		return
	}
	if strings.TrimSpace(req.CompanyID) == "" {
		handler.resp.Error(ctx, w, http.StatusBadRequest, "company_id is required", nil)
		return
	}

	tokenString, claims, err := handler.auth.IssueUserToken(req.UserID, role, req.CompanyID)
	if err != nil {
		handler.resp.Error(ctx, w, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": req.UserID, "role": role.String(), "company_id": req.CompanyID})

	handler.resp.JSON(ctx, w, http.StatusCreated, TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		UserID:    claims.Subject,
		Role:      claims.Role,
		CompanyID: claims.CompanyID,
	})
}
