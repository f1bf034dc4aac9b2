// Package period resolves the reporting window.
package period

import (
	"errors"
	"fmt"
	"time"
)

// Range is an inclusive [Start, End] window in UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// StartDate and EndDate format the bounds as YYYY-MM-DD.
func (r Range) StartDate() string { return r.Start.Format(time.DateOnly) }
func (r Range) EndDate() string { return r.End.Format(time.DateOnly) }

func (r Range) String() string {
	return fmt.Sprintf("%s to %s", r.StartDate(), r.EndDate())
}

// LastCompletedWeek returns the most recent Monday to Sunday week that ended
// before now's UTC date. On a Monday this is the previous Monday through
// yesterday, never the week in progress.
func LastCompletedWeek(now time.Time) Range {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	sinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -(sinceMonday + 7))
	sunday := monday.AddDate(0, 0, 6)

	return Range{
		Start: monday,
		End:   endOfDay(sunday),
	}
}

// Parse turns two YYYY-MM-DD strings into a range covering both days in full.
// When both are empty it falls back to LastCompletedWeek(now).
func Parse(start, end string, now time.Time) (Range, error) {
	if start == "" && end == "" {
		return LastCompletedWeek(now), nil
	}
	if start == "" || end == "" {
		return Range{}, errors.New("start and end dates must be given together")
	}

	s, err := time.ParseInLocation(time.DateOnly, start, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.ParseInLocation(time.DateOnly, end, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if e.Before(s) {
		return Range{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}

	return Range{Start: s, End: endOfDay(e)}, nil
}

func endOfDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, time.UTC)
}
