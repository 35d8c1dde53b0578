package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/shift"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, apperr.ErrNotFound},
		{"unique", &pgconn.PgError{Code: uniqueViolation}, apperr.ErrConflict},
		{"serialization", &pgconn.PgError{Code: serializationFail}, apperr.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: foreignKeyViolation}, apperr.ErrNotFound},
		{"check", &pgconn.PgError{Code: checkViolation}, apperr.ErrValidation},
		{"other pg", &pgconn.PgError{Code: "57P01"}, apperr.ErrUnavailable},
		{"network", errors.New("dial tcp: connection refused"), apperr.ErrUnavailable},
		{"cancelled", fmt.Errorf("query: %w", context.Canceled), context.Canceled},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, mapError(tc.in), tc.want)
		})
	}

	require.NoError(t, mapError(nil))
	require.NotErrorIs(t, mapError(context.DeadlineExceeded), apperr.ErrUnavailable)
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolation, ConstraintName: openShiftIndex})
	require.True(t, isUniqueViolation(err, openShiftIndex))
	require.True(t, isUniqueViolation(err, ""))
	require.False(t, isUniqueViolation(err, "other"))
	require.False(t, isUniqueViolation(errors.New("x"), ""))
}

func TestRepositoriesNeedTransaction(t *testing.T) {
	_, err := NewShiftRepo().GetByID(context.Background(), "x")
	require.ErrorIs(t, err, ErrNoTx)
}

func TestBreaksRoundTrip(t *testing.T) {
	start := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	end := start.Add(15 * time.Minute)
	mins := 15
	in := []shift.Break{{Start: start, End: &end, DurationMinutes: &mins}, {Start: end.Add(time.Hour)}}

	data, err := encodeBreaks(in)
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"start":"2025-03-14T10:00:00Z","end":"2025-03-14T10:15:00Z","duration_minutes":15},
		{"start":"2025-03-14T11:15:00Z"}
	]`, string(data))

	out, err := decodeBreaks(data)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestMessageBodyEncoding(t *testing.T) {
	img := chat.Image{Attachment: chat.Attachment{URL: "http://x/attachments/1", ContentType: "image/png", SizeBytes: 3}, Caption: "look"}

	data, err := encodeBody(img)
	require.NoError(t, err)
	got, err := decodeBody("image", data)
	require.NoError(t, err)
	require.Equal(t, img, got)

	_, err = decodeBody("audio", []byte(`{}`))
	require.Error(t, err)
}
