package handler

import (
	"context"
	"net/http"
	"time"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/httpx"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/websocket"
	"ride-dispatch/internal/ports"
)

// multipart and JSON framing on top of the attachment itself
const envelopeBytes = 64 << 10

// ChatHTTPHandler adapts HTTP requests to the ChatService.
type ChatHTTPHandler struct {
	svc       ports.ChatService
	blobs     ports.BlobReader
	logger    *logger.Logger
	auth      *jwt.Manager
	resp      *httpx.Responder
	websocket *websocket.ConversationSocket
	maxUpload int64
}

// NewChatHTTPHandler wires an HTTP handler around the ChatService.
// maxUpload bounds request bodies that carry attachments.
func NewChatHTTPHandler(
	svc ports.ChatService,
	blobs ports.BlobReader,
	logger *logger.Logger,
	auth *jwt.Manager,
	ws *websocket.ConversationSocket,
	maxUpload int64,
) *ChatHTTPHandler {
	if maxUpload <= 0 {
		maxUpload = chat.DefaultMaxAttachmentBytes
	}
	return &ChatHTTPHandler{
		svc:       svc,
		blobs:     blobs,
		logger:    logger,
		auth:      auth,
		resp:      httpx.NewResponder(logger),
		websocket: ws,
		maxUpload: maxUpload,
	}
}

// RegisterRoutes mounts conversation endpoints on the provided mux.
func (handler *ChatHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	parties := jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver, user.RoleDispatcher, user.RoleCustomer)
	anyone := jwt.AuthMiddlewareFunc(handler.auth)

	mux.HandleFunc("POST /conversations", parties(handler.handleOpenConversation))
	mux.HandleFunc("GET /conversations", parties(handler.handleListConversations))
	mux.HandleFunc("POST /conversations/{conversation_id}/messages", parties(handler.handleSendMessage))
	mux.HandleFunc("GET /conversations/{conversation_id}/messages", parties(handler.handleHistory))
	mux.HandleFunc("POST /conversations/{conversation_id}/read", parties(handler.handleMarkRead))
	mux.HandleFunc("GET /attachments/{attachment_id}", anyone(handler.handleGetAttachment))

	// the socket authenticates with its first frame
	mux.HandleFunc("GET /ws/conversations/{conversation_id}", handler.websocket.Serve)
}

// participant maps the caller to the conversation party it acts as.
func participant(r *http.Request) (chat.Participant, error) {
	p, ok := jwt.RequireClaims(r).Participant()
	if !ok {
		return chat.Participant{}, apperr.Forbidden("no_participant_identity")
	}
	return p, nil
}

// bounded runs fn with the per-request service timeout.
func bounded[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return fn(ctx)
}
