// Package httpx holds the request/response helpers shared by the dispatch
// HTTP handlers.
package httpx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/general/logger"
)

// Responder writes JSON responses and logs failures.
type Responder struct {
	logger *logger.Logger
}

func NewResponder(logger *logger.Logger) *Responder {
	return &Responder{logger: logger}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// JSON encodes data and writes it with status.
func (resp *Responder) JSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			resp.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// Error sends a JSON error response with a message.
func (resp *Responder) Error(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	resp.logger.Error(ctx, action, msg, err, nil)

	resp.JSON(ctx, w, status, ErrorBody{Error: msg})
}

// Fail maps a service error onto its HTTP status. Denials carry their reason.
func (resp *Responder) Fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := ErrorBody{
		Error:     err.Error(),
		Code:      apperr.Code(err),
		Retryable: apperr.Retryable(err),
	}
	if reason, ok := apperr.ReasonOf(err); ok {
		body.Reason = reason
	}

	details := map[string]any{"status": status, "code": body.Code}
	if status >= 500 {
		// internals stay in the log
		body.Error = http.StatusText(status)
		resp.logger.Error(ctx, "http_internal_error", "Request failed", err, details)
	} else {
		resp.logger.Debug(ctx, "request_rejected", err.Error(), details)
	}

	resp.JSON(ctx, w, status, body)
}

// StatusFor returns the HTTP status for an error of the dispatch taxonomy.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON strictly decodes a JSON body of at most limit bytes into dst.
// On failure it writes the error response and returns false.
func (resp *Responder) DecodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	// check the content type
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		resp.Error(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	// limit the body size
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			resp.Error(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		resp.Error(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return false
	}
	return true
}

// WithReqID extracts or generates a request ID and adds it to the context.
func (resp *Responder) WithReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return resp.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// Health returns a minimal JSON health status payload.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	type body struct {
		Status string `json:"status"`
	}
	_ = json.NewEncoder(w).Encode(body{Status: "ok"})
}

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Ready returns 200 when every check passes and 503 with the failing names otherwise.
func Ready(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failing := map[string]string{}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				failing[name] = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		type body struct {
			Status  string            `json:"status"`
			Failing map[string]string `json:"failing,omitempty"`
		}
		if len(failing) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(body{Status: "unavailable", Failing: failing})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body{Status: "ready"})
	}
}
