package websocket

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/ports"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ConversationSocket pushes a conversation's new messages to a WebSocket client.
type ConversationSocket struct {
	logger     *logger.Logger
	jwtMgr     *jwt.Manager
	chat       ports.ChatService
	writeLocks sync.Map // *websocket.Conn -> *sync.Mutex

	AuthTimeout  time.Duration
	PingInterval time.Duration
	ReadTimeout  time.Duration
}

// NewConversationSocket creates the socket handler with JWT auth.
func NewConversationSocket(logger *logger.Logger, jwtMgr *jwt.Manager, chat ports.ChatService) *ConversationSocket {
	return &ConversationSocket{
		logger:       logger,
		jwtMgr:       jwtMgr,
		chat:         chat,
		AuthTimeout:  5 * time.Second,
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
	}
}

// Serve handles GET /ws/conversations/{conversation_id}?after_seq=N.
//
// The first frame must be {"type":"auth","token":"Bearer <jwt>"}. After that
// the server only writes: message frames in seq order, and a final resync
// frame if the live stream is lost. Inbound frames are read only to keep
// pongs and close frames flowing.
func (ws *ConversationSocket) Serve(w http.ResponseWriter, r *http.Request) {
	conversationID := strings.TrimSpace(r.PathValue("conversation_id"))
	afterSeq, err := parseAfterSeq(r.URL.Query().Get("after_seq"))
	if conversationID == "" || err != nil {
		http.Error(w, "conversation_id and a non-negative after_seq are required", http.StatusBadRequest)
		return
	}

	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	// Teardown order (LIFO on return):
	defer conn.Close()
	defer ws.writeLocks.Delete(conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 2) Auth
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(ws.AuthTimeout))

	mt, first, err := conn.ReadMessage()
	if err != nil {
		ws.logger.Error(ctx, "ws_auth_read_failed", "Failed to read auth message", err, nil)
		ws.sendError(conn, "auth_timeout", "send the auth message first")
		return
	}
	if mt != websocket.TextMessage {
		ws.sendError(conn, "auth_failed", "auth message must be in text format")
		return
	}

	res, err := jwt.ValidateWSAuth(first, ws.jwtMgr, user.RoleDriver, user.RoleDispatcher, user.RoleCustomer)
	if err != nil {
		ws.logger.Error(ctx, "ws_auth_failed", "Invalid auth message or token", err, nil)
		ws.sendError(conn, "auth_failed", "authentication failed: invalid token")
		return
	}
	viewer, _ := res.Claims.Participant()

	// 3) Open the watch; this is also the participant check
	watch, err := ws.chat.Watch(ctx, conversationID, viewer, afterSeq)
	if err != nil {
		code := apperr.Code(err)
		if reason, ok := apperr.ReasonOf(err); ok {
			code = reason
		}
		ws.logger.Info(ctx, "ws_watch_refused", "Conversation watch refused", map[string]any{
			"conversation_id": conversationID,
			"viewer":          viewer.Key(),
			"code":            code,
		})
		ws.sendError(conn, code, err.Error())
		return
	}
	defer watch.Close()

	if err := ws.writeJSON(conn, map[string]any{
		"type":            "auth_success",
		"conversation_id": conversationID,
		"participant":     contracts.ParticipantRef{Type: viewer.Kind.String(), ID: viewer.ID},
	}); err != nil {
		return
	}

	ws.logger.Info(ctx, "ws_connected", "Conversation WebSocket connected", map[string]any{
		"conversation_id": conversationID,
		"viewer":          viewer.Key(),
		"after_seq":       afterSeq,
	})

	// 4) Reader: pongs extend the deadline, any read error ends the session
	_ = conn.SetReadDeadline(time.Now().Add(ws.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ws.ReadTimeout))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// 5) Writer: pings and messages
	ticker := time.NewTicker(ws.PingInterval)
	defer ticker.Stop()

	last := afterSeq
	for {
		select {
		case <-ctx.Done():
			ws.logger.Info(ctx, "ws_connection_closed", "Conversation socket closed", map[string]any{
				"conversation_id": conversationID,
				"last_seq":        last,
			})
			return

		case <-ticker.C:
			if err := ws.wsPing(conn); err != nil {
				ws.logger.Error(ctx, "ws_ping_failed", "Failed to send ping", err, nil)
				return
			}

		case m, ok := <-watch.Messages():
			if !ok {
				ws.finish(ctx, conn, conversationID, last, watch.Err())
				return
			}
			if err := ws.writeJSON(conn, contracts.WSChatMessage{Type: "message", Message: m}); err != nil {
				ws.logger.Error(ctx, "ws_write_failed", "Failed to push message", err, map[string]any{
					"conversation_id": conversationID,
					"seq":             m.Seq,
				})
				return
			}
			last = m.Seq
		}
	}
}

// finish tells the client how the watch ended.
func (ws *ConversationSocket) finish(ctx context.Context, conn *websocket.Conn, conversationID string, last int64, err error) {
	if err == nil || ctx.Err() != nil {
		ws.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
		return
	}

	reason := "stream_lost"
	if !errors.Is(err, apperr.ErrUnavailable) {
		reason = apperr.Code(err)
	}
	_ = ws.writeJSON(conn, contracts.WSResync{
		Type:           "resync",
		ConversationID: conversationID,
		AfterSeq:       last,
		Reason:         reason,
	})
	ws.wsWriteClose(conn, websocket.CloseTryAgainLater, reason)
}

// sendError reports a protocol problem and closes the socket.
func (ws *ConversationSocket) sendError(conn *websocket.Conn, code, msg string) {
	_ = ws.writeJSON(conn, contracts.WSError{Type: "error", Code: code, Message: msg})
	ws.wsWriteClose(conn, websocket.ClosePolicyViolation, code)
}

func parseAfterSeq(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("invalid after_seq")
	}
	return n, nil
}
