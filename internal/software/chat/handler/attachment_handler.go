package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"ride-dispatch/internal/ports"
)

// ----- Handler: GET /attachments/{attachment_id} -----

func (handler *ChatHTTPHandler) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := handler.resp.WithReqID(r.Context(), r)
	id := strings.TrimSpace(r.PathValue("attachment_id"))

	blob, err := bounded(ctx, func(ctx context.Context) (*ports.Blob, error) {
		return handler.blobs.Get(ctx, id)
	})
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}
