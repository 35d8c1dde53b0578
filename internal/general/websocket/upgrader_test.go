package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/ports"
)

type fakeWatch struct {
	out  chan contracts.ChatMessage
	once sync.Once
	err  error
}

func (w *fakeWatch) Messages() <-chan contracts.ChatMessage { return w.out }
func (w *fakeWatch) Err() error                             { return w.err }
func (w *fakeWatch) Close() error {
	w.once.Do(func() { close(w.out) })
	return nil
}

// end closes the feed with err, like a watcher whose stream went away.
func (w *fakeWatch) end(err error) {
	w.err = err
	w.once.Do(func() { close(w.out) })
}

type fakeChat struct {
	ports.ChatService

	mu       sync.Mutex
	watch    *fakeWatch
	viewer   chat.Participant
	afterSeq int64
	refuse   error
}

func (f *fakeChat) Watch(_ context.Context, _ string, viewer chat.Participant, afterSeq int64) (ports.MessageWatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse != nil {
		return nil, f.refuse
	}
	f.viewer, f.afterSeq = viewer, afterSeq
	return f.watch, nil
}

type socketFixture struct {
	srv  *httptest.Server
	mgr  *jwt.Manager
	chat *fakeChat
}

func newSocketFixture(t *testing.T) *socketFixture {
	t.Helper()

	mgr := jwt.NewManager("test-secret", time.Hour)
	fc := &fakeChat{watch: &fakeWatch{out: make(chan contracts.ChatMessage, 8)}}
	sock := NewConversationSocket(logger.NewWithWriter("test", io.Discard), mgr, fc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/conversations/{conversation_id}", sock.Serve)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &socketFixture{srv: srv, mgr: mgr, chat: fc}
}

func (f *socketFixture) dial(t *testing.T, query string, role user.Role) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/conversations/conv-1" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	tok, _, err := f.mgr.IssueUserToken("driver-1", role, "co-1")
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(contracts.WSAuthMessage{Type: "auth", Token: "Bearer " + tok}))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestSocketPushesMessages(t *testing.T) {
	f := newSocketFixture(t)
	conn := f.dial(t, "?after_seq=4", user.RoleDriver)

	require.Equal(t, "auth_success", readFrame(t, conn)["type"])
	f.chat.mu.Lock()
	require.Equal(t, chat.Participant{Kind: chat.KindDriver, ID: "driver-1"}, f.chat.viewer)
	require.EqualValues(t, 4, f.chat.afterSeq)
	f.chat.mu.Unlock()

	f.chat.watch.out <- contracts.ChatMessage{ConversationID: "conv-1", Seq: 5}
	f.chat.watch.out <- contracts.ChatMessage{ConversationID: "conv-1", Seq: 6}

	for _, want := range []float64{5, 6} {
		frame := readFrame(t, conn)
		require.Equal(t, "message", frame["type"])
		require.Equal(t, want, frame["message"].(map[string]any)["seq"])
	}
}

func TestSocketSendsResyncWhenStreamLost(t *testing.T) {
	f := newSocketFixture(t)
	conn := f.dial(t, "", user.RoleDriver)
	readFrame(t, conn)

	f.chat.watch.out <- contracts.ChatMessage{ConversationID: "conv-1", Seq: 1}
	readFrame(t, conn)
	f.chat.watch.end(apperr.ErrUnavailable)

	frame := readFrame(t, conn)
	require.Equal(t, "resync", frame["type"])
	require.Equal(t, float64(1), frame["after_seq"])
	require.Equal(t, "stream_lost", frame["reason"])

	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater))
}

func TestSocketRefusesNonParticipant(t *testing.T) {
	f := newSocketFixture(t)
	f.chat.refuse = apperr.Forbidden("not_participant")
	conn := f.dial(t, "", user.RoleCustomer)

	frame := readFrame(t, conn)
	require.Equal(t, "error", frame["type"])
	require.Equal(t, "not_participant", frame["code"])
}

func TestSocketRejectsBadToken(t *testing.T) {
	f := newSocketFixture(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/conversations/conv-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(contracts.WSAuthMessage{Type: "auth", Token: "Bearer nope"}))

	frame := readFrame(t, conn)
	require.Equal(t, "auth_failed", frame["code"])
}

func TestSocketAdminsCannotWatch(t *testing.T) {
	f := newSocketFixture(t)
	conn := f.dial(t, "", user.RoleAdmin)

	frame := readFrame(t, conn)
	require.Equal(t, "auth_failed", frame["code"])
}

func TestParseAfterSeq(t *testing.T) {
	n, err := parseAfterSeq("")
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = parseAfterSeq("12")
	require.NoError(t, err)
	require.EqualValues(t, 12, n)

	_, err = parseAfterSeq("-1")
	require.Error(t, err)
	_, err = parseAfterSeq("x")
	require.Error(t, err)
}
