package schedule

import (
	"testing"
	"time"
)

// Mon-Fri 09:00-18:00, closed Sat/Sun.
func weekdayHours() []DayHours {
	week := []DayHours{
		{Weekday: 0, Closed: true, Open: "00:00", Close: "00:00"},
		{Weekday: 6, Closed: true, Open: "00:00", Close: "00:00"},
	}
	for wd := 1; wd <= 5; wd++ {
		week = append(week, DayHours{Weekday: wd, Open: "09:00", Close: "18:00"})
	}
	return week
}

// 2026-01-05 is a Monday.
func monday(hour, min int) time.Time {
	return time.Date(2026, 1, 5, hour, min, 0, 0, time.UTC)
}

func TestGenerateSlotsFullOpenDay(t *testing.T) {
	slots := GenerateSlots(weekdayHours(), nil, monday(9, 0), monday(18, 0), 30)

	if len(slots) != 18 {
		t.Fatalf("expected 18 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(monday(9, 0)) || !slots[0].End.Equal(monday(9, 30)) {
		t.Fatalf("unexpected first slot %+v", slots[0])
	}
	last := slots[len(slots)-1]
	if !last.Start.Equal(monday(17, 30)) || !last.End.Equal(monday(18, 0)) {
		t.Fatalf("unexpected last slot %+v", last)
	}
	for i, s := range slots {
		if !s.Free {
			t.Fatalf("slot %d: expected free", i)
		}
		if i > 0 && !s.Start.After(slots[i-1].Start) {
			t.Fatalf("slot %d: output not strictly ascending", i)
		}
	}
}

func TestGenerateSlotsMarksBookedStart(t *testing.T) {
	booked := []Interval{{Start: monday(10, 0), End: monday(10, 30)}}
	slots := GenerateSlots(weekdayHours(), booked, monday(9, 0), monday(18, 0), 30)

	if len(slots) != 18 {
		t.Fatalf("expected 18 slots, got %d", len(slots))
	}
	for _, s := range slots {
		wantFree := !s.Start.Equal(monday(10, 0))
		if s.Free != wantFree {
			t.Fatalf("slot %s: free=%v, want %v", s.Start.Format("15:04"), s.Free, wantFree)
		}
	}
}

func TestGenerateSlotsUnconfiguredBusinessOpensSunday(t *testing.T) {
	// 2026-01-04 is a Sunday. With no configuration at all the default
	// window 08:00-19:00 applies even on weekends.
	sun := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	slots := GenerateSlots(nil, nil, sun, sun.AddDate(0, 0, 1), 30)

	if len(slots) != 22 {
		t.Fatalf("expected 22 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(sun.Add(8 * time.Hour)) {
		t.Fatalf("expected first slot 08:00, got %s", slots[0].Start.Format("15:04"))
	}
	if !slots[21].Start.Equal(sun.Add(18*time.Hour + 30*time.Minute)) {
		t.Fatalf("expected last slot 18:30, got %s", slots[21].Start.Format("15:04"))
	}
}

func TestGenerateSlotsSkipsClosedDays(t *testing.T) {
	// Saturday 2026-01-03 through Monday 18:00: Sat and Sun are closed for
	// an explicitly configured business, so only Monday emits slots.
	sat := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	slots := GenerateSlots(weekdayHours(), nil, sat, monday(18, 0), 30)

	if len(slots) != 18 {
		t.Fatalf("expected 18 Monday slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Day() != 5 {
			t.Fatalf("slot emitted on closed day: %s", s.Start)
		}
	}
}

func TestGenerateSlotsDurationLargerThanOpenWindow(t *testing.T) {
	week := []DayHours{{Weekday: 1, Open: "09:00", Close: "10:00"}}
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	slots := GenerateSlots(week, nil, day, day.AddDate(0, 0, 1), 120)
	if len(slots) != 0 {
		t.Fatalf("expected no slots when duration exceeds open window, got %d", len(slots))
	}
}

func TestGenerateSlotsGridAnchoredAtIntervalStart(t *testing.T) {
	slots := GenerateSlots(weekdayHours(), nil, monday(9, 10), monday(18, 0), 30)

	if len(slots) != 17 {
		t.Fatalf("expected 17 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(monday(9, 10)) {
		t.Fatalf("expected first slot 09:10, got %s", slots[0].Start.Format("15:04"))
	}
	if !slots[16].Start.Equal(monday(17, 10)) {
		t.Fatalf("expected last slot 17:10, got %s", slots[16].Start.Format("15:04"))
	}
}

func TestGenerateSlotsDegenerateInputs(t *testing.T) {
	if got := GenerateSlots(weekdayHours(), nil, monday(18, 0), monday(9, 0), 30); len(got) != 0 {
		t.Fatalf("inverted interval: expected no slots, got %d", len(got))
	}
	if got := GenerateSlots(weekdayHours(), nil, monday(9, 0), monday(9, 0), 30); len(got) != 0 {
		t.Fatalf("empty interval: expected no slots, got %d", len(got))
	}
	if got := GenerateSlots(weekdayHours(), nil, monday(9, 0), monday(18, 0), 0); len(got) != 0 {
		t.Fatalf("zero duration: expected no slots, got %d", len(got))
	}
}

func TestGenerateSlotsDeterministic(t *testing.T) {
	booked := []Interval{{Start: monday(11, 0), End: monday(11, 45)}}
	a := GenerateSlots(weekdayHours(), booked, monday(9, 0), monday(18, 0), 15)
	b := GenerateSlots(weekdayHours(), booked, monday(9, 0), monday(18, 0), 15)

	if len(a) != len(b) {
		t.Fatalf("non-deterministic length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("slot %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateSlotsFreeSlotsNeverInsideBookings(t *testing.T) {
	booked := []Interval{
		{Start: monday(9, 20), End: monday(10, 5)},
		{Start: monday(14, 0), End: monday(15, 0)},
	}
	slots := GenerateSlots(weekdayHours(), booked, monday(9, 0), monday(18, 0), 15)
	for _, s := range slots {
		if !s.Free {
			continue
		}
		for _, b := range booked {
			if !s.Start.Before(b.Start) && s.Start.Before(b.End) {
				t.Fatalf("free slot %s starts inside booking %s-%s", s.Start.Format("15:04"), b.Start.Format("15:04"), b.End.Format("15:04"))
			}
		}
	}
}
