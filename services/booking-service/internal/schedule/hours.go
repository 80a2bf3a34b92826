package schedule

import (
	"fmt"
	"time"
)

// Default open window applied when a business has no hours configured.
const (
	DefaultOpen  = "08:00"
	DefaultClose = "19:00"
)

// DayHours is one weekday's open/close window. Open and Close are "HH:MM"
// wall-clock strings in the business's own timezone.
type DayHours struct {
	Weekday int    // 0=Sunday .. 6=Saturday
	Open    string // "HH:MM"
	Close   string // "HH:MM"
	Closed  bool
}

// HoursFor resolves the effective hours for a weekday.
//
// A business with no configuration at all is open every day under the
// default window. A business that configured hours but left a weekday out
// is closed on that day. The two cases look similar but produce opposite
// availability; callers must pass nil/empty only when the business truly
// has no configuration.
func HoursFor(week []DayHours, weekday int) DayHours {
	if len(week) == 0 {
		return DayHours{Weekday: weekday, Open: DefaultOpen, Close: DefaultClose}
	}
	for _, d := range week {
		if d.Weekday == weekday {
			return d
		}
	}
	return DayHours{Weekday: weekday, Open: DefaultOpen, Close: DefaultClose, Closed: true}
}

// ValidateWeek checks a wholesale hours replacement: at most one entry per
// weekday, valid "HH:MM" clocks, and Open before Close on open days.
func ValidateWeek(week []DayHours) error {
	if len(week) > 7 {
		return fmt.Errorf("at most 7 day entries, got %d", len(week))
	}
	var seen [7]bool
	for _, d := range week {
		if d.Weekday < 0 || d.Weekday > 6 {
			return fmt.Errorf("weekday out of range: %d", d.Weekday)
		}
		if seen[d.Weekday] {
			return fmt.Errorf("duplicate weekday: %d", d.Weekday)
		}
		seen[d.Weekday] = true
		if _, err := parseClock(d.Open); err != nil {
			return fmt.Errorf("weekday %d: %w", d.Weekday, err)
		}
		if _, err := parseClock(d.Close); err != nil {
			return fmt.Errorf("weekday %d: %w", d.Weekday, err)
		}
		if !d.Closed && d.Open >= d.Close {
			return fmt.Errorf("weekday %d: open %s must be before close %s", d.Weekday, d.Open, d.Close)
		}
	}
	return nil
}

func parseClock(s string) (time.Time, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock %q: must be HH:MM", s)
	}
	return t, nil
}

// atClock returns the instant on day's calendar date at the given "HH:MM"
// clock, in day's location.
func atClock(day time.Time, clock string) (time.Time, error) {
	c, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, day.Location()), nil
}

func startOfNextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}
