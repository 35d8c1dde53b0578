package shift

import (
	"fmt"
	"math"
	"strings"
	"time"

	"ride-dispatch/internal/domain/apperr"
)

// Break is one pause inside a shift. End and DurationMinutes stay nil while open.
type Break struct {
	Start           time.Time
	End             *time.Time
	DurationMinutes *int
}

// Open reports whether the break has not been closed yet.
func (b Break) Open() bool {
	return b.End == nil
}

// Shift is the domain entity corresponding to the `driver_shifts` table.
type Shift struct {
	ID        string
	DriverID  string
	CompanyID string

	StartedAt time.Time
	EndedAt   *time.Time
	Status    Status
	Breaks    []Break

	// Aggregates supplied when the shift ends.
	TotalBookings int
	TotalRevenue  float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Totals are the booking aggregates recorded on a completed shift.
type Totals struct {
	Bookings int     `json:"total_bookings"`
	Revenue  float64 `json:"total_revenue"`
}

var (
	ErrDriverIDRequired  = fmt.Errorf("%w: driver id is required", apperr.ErrValidation)
	ErrCompanyIDRequired = fmt.Errorf("%w: company id is required", apperr.ErrValidation)
	ErrNegativeTotals    = fmt.Errorf("%w: totals cannot be negative", apperr.ErrValidation)

	ErrNotActive        = fmt.Errorf("%w: shift is not active", apperr.ErrInvalidState)
	ErrNotOnBreak       = fmt.Errorf("%w: shift is not on break", apperr.ErrInvalidState)
	ErrNotScheduled     = fmt.Errorf("%w: shift is not scheduled", apperr.ErrInvalidState)
	ErrAlreadyCompleted = fmt.Errorf("%w: shift already completed", apperr.ErrInvalidState)
	ErrCannotEnd        = fmt.Errorf("%w: only an active shift or a shift on break can end", apperr.ErrInvalidState)
	ErrOpenShiftExists  = fmt.Errorf("%w: driver already has an open shift", apperr.ErrConflict)
)

// New starts an active shift at now.
func New(driverID, companyID string, now time.Time) (*Shift, error) {
	s, err := newShift(driverID, companyID, now)
	if err != nil {
		return nil, err
	}
	s.StartedAt = now.UTC()
	s.Status = StatusActive
	return s, nil
}

// NewScheduled creates a shift planned to start at plannedStart.
func NewScheduled(driverID, companyID string, plannedStart, now time.Time) (*Shift, error) {
	s, err := newShift(driverID, companyID, now)
	if err != nil {
		return nil, err
	}
	s.StartedAt = plannedStart.UTC()
	s.Status = StatusScheduled
	return s, nil
}

func newShift(driverID, companyID string, now time.Time) (*Shift, error) {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrDriverIDRequired
	}
	if companyID = strings.TrimSpace(companyID); companyID == "" {
		return nil, ErrCompanyIDRequired
	}

	now = now.UTC()
	return &Shift{
		DriverID:  driverID,
		CompanyID: companyID,
		Breaks:    []Break{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Activate moves a scheduled shift to active; the shift starts counting at now.
func (s *Shift) Activate(now time.Time) error {
	if s.Status != StatusScheduled {
		return ErrNotScheduled
	}
	s.StartedAt = now.UTC()
	s.setStatus(StatusActive, now)
	return nil
}

// StartBreak opens a new break. Only an active shift may pause.
func (s *Shift) StartBreak(now time.Time) error {
	if s.Status != StatusActive {
		return ErrNotActive
	}
	s.Breaks = append(s.Breaks, Break{Start: now.UTC()})
	s.setStatus(StatusBreak, now)
	return nil
}

// EndBreak closes the open break and resumes work.
func (s *Shift) EndBreak(now time.Time) error {
	if s.Status != StatusBreak {
		return ErrNotOnBreak
	}
	if _, ok := s.OpenBreak(); !ok {
		return ErrNotOnBreak
	}
	s.closeOpenBreak(now)
	s.setStatus(StatusActive, now)
	return nil
}

// End completes the shift, closing an open break first. Totals come from the caller.
func (s *Shift) End(now time.Time, totals Totals) error {
	switch s.Status {
	case StatusCompleted:
		return ErrAlreadyCompleted
	case StatusActive, StatusBreak:
	default:
		return ErrCannotEnd
	}
	if totals.Bookings < 0 || totals.Revenue < 0 {
		return ErrNegativeTotals
	}

	if s.Status == StatusBreak {
		s.closeOpenBreak(now)
	}

	ended := now.UTC()
	s.EndedAt = &ended
	s.TotalBookings = totals.Bookings
	s.TotalRevenue = totals.Revenue
	s.setStatus(StatusCompleted, now)
	return nil
}

// Cancel drops a shift that never started.
func (s *Shift) Cancel(now time.Time) error {
	if s.Status != StatusScheduled {
		return ErrNotScheduled
	}
	s.setStatus(StatusCancelled, now)
	return nil
}

// OpenBreak returns the index of the open break, which is always the last one.
func (s *Shift) OpenBreak() (int, bool) {
	n := len(s.Breaks)
	if n == 0 || !s.Breaks[n-1].Open() {
		return -1, false
	}
	return n - 1, true
}

// Clone returns a deep copy; breaks and pointer fields are not shared.
func (s Shift) Clone() Shift {
	out := s
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	out.Breaks = make([]Break, len(s.Breaks))
	for i, b := range s.Breaks {
		nb := Break{Start: b.Start}
		if b.End != nil {
			t := *b.End
			nb.End = &t
		}
		if b.DurationMinutes != nil {
			m := *b.DurationMinutes
			nb.DurationMinutes = &m
		}
		out.Breaks[i] = nb
	}
	return out
}

// ----- internal helpers -----

func (s *Shift) closeOpenBreak(now time.Time) {
	i, ok := s.OpenBreak()
	if !ok {
		return
	}
	b := &s.Breaks[i]

	end := now.UTC()
	if end.Before(b.Start) {
		end = b.Start
	}
	minutes := int(math.Round(end.Sub(b.Start).Minutes()))
	b.End = &end
	b.DurationMinutes = &minutes
}

func (s *Shift) setStatus(status Status, now time.Time) {
	s.Status = status
	s.UpdatedAt = now.UTC()
}
