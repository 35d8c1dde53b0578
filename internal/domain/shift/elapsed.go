package shift

import "time"

// ElapsedBreak sums closed break durations plus the running part of an open
// break. It is recomputed from absolute timestamps on every call.
func ElapsedBreak(s Shift, now time.Time) time.Duration {
	now, ok := effectiveNow(s, now)
	if !ok {
		return 0
	}

	var total time.Duration
	for _, b := range s.Breaks {
		end := now
		if b.End != nil && b.End.Before(now) {
			end = *b.End
		}
		if d := end.Sub(b.Start); d > 0 {
			total += d
		}
	}
	return total
}

// ElapsedWork is the time since StartedAt minus all break time, never negative.
func ElapsedWork(s Shift, now time.Time) time.Duration {
	end, ok := effectiveNow(s, now)
	if !ok {
		return 0
	}

	work := end.Sub(s.StartedAt) - ElapsedBreak(s, now)
	if work < 0 {
		return 0
	}
	return work
}

// effectiveNow clamps now to the end of a completed shift. Shifts that never
// started report nothing.
func effectiveNow(s Shift, now time.Time) (time.Time, bool) {
	switch s.Status {
	case StatusScheduled, StatusCancelled:
		return time.Time{}, false
	}
	if s.EndedAt != nil && now.After(*s.EndedAt) {
		now = *s.EndedAt
	}
	if now.Before(s.StartedAt) {
		return s.StartedAt, true
	}
	return now, true
}
