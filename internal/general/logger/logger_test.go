package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestInfoCarriesEnvelopeAndContextIDs(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("dispatch-service", &buf)

	ctx := l.WithRequestID(context.Background(), "req-1")
	ctx = l.WithBookingID(ctx, "bk-9")
	l.Info(ctx, "booking_accepted", " accepted ", map[string]any{"driver_id": "d1"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)

	e := lines[0]
	require.Equal(t, "INFO", e["level"])
	require.Equal(t, "dispatch-service", e["service"])
	require.Equal(t, "booking_accepted", e["action"])
	require.Equal(t, "accepted", e["message"])
	require.Equal(t, "req-1", e["request_id"])
	require.Equal(t, "bk-9", e["booking_id"])
	require.NotEmpty(t, e["hostname"])
	require.NotEmpty(t, e["timestamp"])
	require.Equal(t, map[string]any{"driver_id": "d1"}, e["details"])
}

func TestErrorAttachesErrorObject(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("", &buf)

	l.Error(context.Background(), "", "boom", errors.New("db down"), nil)

	e := decodeLines(t, &buf)[0]
	require.Equal(t, "ERROR", e["level"])
	require.Equal(t, "unknown-service", e["service"])
	require.Equal(t, "unspecified", e["action"])
	require.NotContains(t, e, "request_id")

	errObj, ok := e["error"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "db down", errObj["msg"])
}

func TestWithRequestIDIgnoresBlank(t *testing.T) {
	l := NewWithWriter("svc", &bytes.Buffer{})
	ctx := context.Background()
	require.Equal(t, ctx, l.WithRequestID(ctx, "  "))
	require.Empty(t, RequestID(ctx))
}
