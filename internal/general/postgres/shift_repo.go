package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/shift"
	"ride-dispatch/internal/ports"
)

const openShiftIndex = "driver_shifts_one_open"

// ShiftRepo persists driver shifts using pgx and plain SQL.
type ShiftRepo struct{}

// NewShiftRepo constructs a new ShiftRepo.
func NewShiftRepo() ports.ShiftRepository {
	return &ShiftRepo{}
}

// breakRow is the jsonb shape of one element of driver_shifts.breaks.
type breakRow struct {
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
}

func encodeBreaks(breaks []shift.Break) ([]byte, error) {
	rows := make([]breakRow, len(breaks))
	for i, b := range breaks {
		rows[i] = breakRow{Start: b.Start, End: b.End, DurationMinutes: b.DurationMinutes}
	}
	return json.Marshal(rows)
}

func decodeBreaks(data []byte) ([]shift.Break, error) {
	var rows []breakRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode breaks: %w", err)
	}
	out := make([]shift.Break, len(rows))
	for i, r := range rows {
		out[i] = shift.Break{Start: r.Start, End: r.End, DurationMinutes: r.DurationMinutes}
	}
	return out, nil
}

const shiftColumns = `id, driver_id, company_id, status, started_at, ended_at, breaks,
	total_bookings, total_revenue::float8, created_at, updated_at`

func scanShift(row pgx.Row) (*shift.Shift, error) {
	var (
		s      shift.Shift
		status string
		breaks []byte
	)
	err := row.Scan(
		&s.ID, &s.DriverID, &s.CompanyID, &status, &s.StartedAt, &s.EndedAt, &breaks,
		&s.TotalBookings, &s.TotalRevenue, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if s.Status, err = shift.ParseStatus(status); err != nil {
		return nil, err
	}
	if s.Breaks, err = decodeBreaks(breaks); err != nil {
		return nil, err
	}
	return &s, nil
}

// Insert stores a new shift. The partial unique index backs up the open-shift check.
func (repo *ShiftRepo) Insert(ctx context.Context, s *shift.Shift) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var open bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM driver_shifts
			WHERE driver_id = $1 AND status IN ('scheduled', 'active', 'break')
		)
	`, s.DriverID).Scan(&open)
	if err != nil {
		return mapError(err)
	}
	if open {
		return shift.ErrOpenShiftExists
	}

	breaks, err := encodeBreaks(s.Breaks)
	if err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO driver_shifts (id, driver_id, company_id, status, started_at, ended_at, breaks,
			total_bookings, total_revenue, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11)
	`,
		s.ID, s.DriverID, s.CompanyID, s.Status.String(), s.StartedAt, s.EndedAt, string(breaks),
		s.TotalBookings, s.TotalRevenue, s.CreatedAt, s.UpdatedAt,
	)
	if isUniqueViolation(err, openShiftIndex) {
		return shift.ErrOpenShiftExists
	}
	return mapError(err)
}

// GetByID returns the shift or apperr.ErrNotFound.
func (repo *ShiftRepo) GetByID(ctx context.Context, id string) (*shift.Shift, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: shift %s", apperr.ErrNotFound, id)
	}

	s, err := scanShift(tx.QueryRow(ctx, `SELECT `+shiftColumns+` FROM driver_shifts WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

// GetOpenForDriver returns the driver's scheduled, active or break shift.
func (repo *ShiftRepo) GetOpenForDriver(ctx context.Context, driverID string) (*shift.Shift, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	s, err := scanShift(tx.QueryRow(ctx, `
		SELECT `+shiftColumns+`
		FROM driver_shifts
		WHERE driver_id = $1 AND status IN ('scheduled', 'active', 'break')
		ORDER BY created_at DESC
		LIMIT 1
	`, driverID))
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

// CompareAndSwap writes next only while the stored status still equals expected.
func (repo *ShiftRepo) CompareAndSwap(ctx context.Context, next shift.Shift, expected shift.Status) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	breaks, err := encodeBreaks(next.Breaks)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE driver_shifts
		SET status = $3,
		    started_at = $4,
		    ended_at = $5,
		    breaks = $6::jsonb,
		    total_bookings = $7,
		    total_revenue = $8,
		    updated_at = $9
		WHERE id = $1 AND status = $2
	`,
		next.ID, expected.String(), next.Status.String(), next.StartedAt, next.EndedAt, string(breaks),
		next.TotalBookings, next.TotalRevenue, next.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, openShiftIndex) {
			return shift.ErrOpenShiftExists
		}
		return mapError(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM driver_shifts WHERE id = $1`, next.ID).Scan(&current)
	if err != nil {
		return mapError(err)
	}
	return fmt.Errorf("%w: shift %s is %s, expected %s", apperr.ErrConflict, next.ID, current, expected)
}
