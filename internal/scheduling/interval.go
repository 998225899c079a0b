package scheduling

import (
	"fmt"
	"time"
)

// Interval is a half-open time range [Start, End). Two intervals that merely
// touch (a.End == b.Start) do not overlap, so back-to-back appointments are
// compatible.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

func (iv Interval) Contains(inner Interval) bool {
	return !iv.Start.After(inner.Start) && !iv.End.Before(inner.End)
}

// TimeOfDay is an offset from midnight. Shift windows are stored as
// time-of-day only; the calendar date is stripped before comparison.
type TimeOfDay time.Duration

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	n, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec)
	if err != nil && n < 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
	if d > 24*time.Hour {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(d), nil
}

// TimeOfDayOf strips the date component of an instant.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	d += time.Duration(t.Nanosecond())
	return TimeOfDay(d)
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ClockRange is a half-open time-of-day range with the same overlap
// semantics as Interval.
type ClockRange struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (cr ClockRange) Overlaps(other ClockRange) bool {
	return cr.Start < other.End && cr.End > other.Start
}

func (cr ClockRange) Contains(inner ClockRange) bool {
	return cr.Start <= inner.Start && cr.End >= inner.End
}

func (cr ClockRange) String() string {
	return cr.Start.String() + "-" + cr.End.String()
}
