package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/gate"
	"ride-dispatch/internal/domain/shift"
	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/clock"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/httpx"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/memory"
	"ride-dispatch/internal/general/websocket"
	"ride-dispatch/internal/ports"
	"ride-dispatch/internal/software/chat/service"
)

type fixture struct {
	mux   *http.ServeMux
	mgr   *jwt.Manager
	store *memory.Store
	clock *clock.Manual
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.NewWithWriter("dispatch-service", io.Discard)
	store := memory.NewStore()
	bus := memory.NewBus()
	t.Cleanup(bus.Close)
	blobs := memory.NewBlobs("http://files.test")
	clk := clock.NewManual(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))

	svc := service.NewChatService(log, service.Deps{
		UoW:           memory.UnitOfWork{},
		Conversations: store.Conversations(),
		Messages:      store.Messages(),
		Shifts:        store.Shifts(),
		Bookings:      store.Bookings(),
		Blobs:         blobs,
		Publisher:     bus,
		Source:        bus,
		Clock:         clk,
	}, service.Options{Policy: chat.AttachmentPolicy{MaxBytes: 1024}})

	mgr := jwt.NewManager("test-secret", time.Hour)
	mux := http.NewServeMux()
	NewChatHTTPHandler(svc, blobs, log, mgr, websocket.NewConversationSocket(log, mgr, svc), 1024).RegisterRoutes(mux)
	return &fixture{mux: mux, mgr: mgr, store: store, clock: clk}
}

func (f *fixture) request(t *testing.T, method, path, contentType string, body io.Reader, userID string, role user.Role) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	tok, _, err := f.mgr.IssueUserToken(userID, role, "co-1")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) json(t *testing.T, method, path, body, userID string, role user.Role) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	ct := ""
	if body != "" {
		rdr, ct = strings.NewReader(body), "application/json"
	}
	return f.request(t, method, path, ct, rdr, userID, role)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (f *fixture) openDuty(t *testing.T) string {
	t.Helper()

	rec := f.json(t, http.MethodPost, "/conversations", `{"with":{"type":"driver","id":"driver-1"}}`, "ops-1", user.RoleDispatcher)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ports.ConversationView](t, rec).ConversationID
}

func (f *fixture) startShift(t *testing.T) {
	t.Helper()

	s, err := shift.New("driver-1", "co-1", f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Shifts().Insert(context.Background(), s))
}

func TestDutyConversationOverHTTP(t *testing.T) {
	f := newFixture(t)
	id := f.openDuty(t)

	// opening again from the other side returns the same conversation
	rec := f.json(t, http.MethodPost, "/conversations", `{"with":{"type":"dispatcher","id":"ops-1"}}`, "driver-1", user.RoleDriver)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, id, decode[ports.ConversationView](t, rec).ConversationID)

	// off duty
	rec = f.json(t, http.MethodPost, "/conversations/"+id+"/messages", `{"type":"text","text":"hi"}`, "ops-1", user.RoleDispatcher)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, gate.ReasonDriverOffDuty, decode[httpx.ErrorBody](t, rec).Reason)

	f.startShift(t)
	rec = f.json(t, http.MethodPost, "/conversations/"+id+"/messages", `{"text":"pickup at gate 4"}`, "ops-1", user.RoleDispatcher)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sent := decode[contracts.ChatMessage](t, rec)
	require.EqualValues(t, 1, sent.Seq)
	require.Equal(t, "text", sent.Body.Type)

	rec = f.json(t, http.MethodGet, "/conversations/"+id+"/messages?after_seq=0&limit=10", "", "driver-1", user.RoleDriver)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[ports.HistoryResult](t, rec)
	require.Len(t, page.Messages, 1)
	require.EqualValues(t, 1, page.NextAfterSeq)

	rec = f.json(t, http.MethodPost, "/conversations/"+id+"/read", "", "driver-1", user.RoleDriver)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, decode[ports.MarkReadResult](t, rec).Updated)

	rec = f.json(t, http.MethodGet, "/conversations", "", "driver-1", user.RoleDriver)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), id)
}

func TestMultipartImageUpload(t *testing.T) {
	f := newFixture(t)
	id := f.openDuty(t)
	f.startShift(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("type", "image"))
	require.NoError(t, mw.WriteField("text", "the car"))
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="car.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, mw.Close())

	rec := f.request(t, http.MethodPost, "/conversations/"+id+"/messages", mw.FormDataContentType(), &buf, "driver-1", user.RoleDriver)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	msg := decode[contracts.ChatMessage](t, rec)
	require.Equal(t, "image", msg.Body.Type)
	require.Equal(t, "the car", msg.Body.Caption)
	require.NotNil(t, msg.Body.Attachment)

	attID := msg.Body.Attachment.URL[strings.LastIndex(msg.Body.Attachment.URL, "/")+1:]
	rec = f.json(t, http.MethodGet, "/attachments/"+attID, "", "ops-1", user.RoleDispatcher)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, "\x89PNG fake", rec.Body.String())

	rec = f.json(t, http.MethodGet, "/attachments/nope", "", "ops-1", user.RoleDispatcher)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	id := f.openDuty(t)
	f.startShift(t)

	rec := f.json(t, http.MethodPost, "/conversations/"+id+"/messages", `{"type":"video"}`, "ops-1", user.RoleDispatcher)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.json(t, http.MethodPost, "/conversations/"+id+"/messages", `{"type":"text","text":"  "}`, "ops-1", user.RoleDispatcher)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.json(t, http.MethodGet, "/conversations/"+id+"/messages?after_seq=-3", "", "ops-1", user.RoleDispatcher)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// a stranger is not a participant
	rec = f.json(t, http.MethodGet, "/conversations/"+id+"/messages", "", "driver-9", user.RoleDriver)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminsHaveNoConversations(t *testing.T) {
	f := newFixture(t)

	rec := f.json(t, http.MethodGet, "/conversations", "", "root", user.RoleAdmin)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
