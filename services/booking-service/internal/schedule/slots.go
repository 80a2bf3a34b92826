package schedule

import "time"

// Interval is a booked period. Start is inclusive, End exclusive unless a
// predicate states otherwise.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is a candidate bookable window. Slots are computed on demand and
// never stored.
type Slot struct {
	Start time.Time
	End   time.Time
	Free  bool
}

// GenerateSlots walks [from, to) in slotMinutes steps and classifies each
// candidate start against the weekly hours and the booked intervals.
//
// The cursor starts at from and advances by the slot duration; on closed
// days, and once no further slot fits before closing, it jumps to the next
// midnight. A slot is emitted only when the cursor lies inside the day's
// open window with room for a full slot before close; it is free unless its
// start instant falls inside a booked [Start, End). The walk is a single
// forward pass: deterministic, no clock reads, no state between calls.
//
// Returns nil when to <= from or slotMinutes <= 0; callers that need to
// reject a non-positive duration loudly must validate before calling.
func GenerateSlots(week []DayHours, booked []Interval, from, to time.Time, slotMinutes int) []Slot {
	if slotMinutes <= 0 || !to.After(from) {
		return nil
	}
	step := time.Duration(slotMinutes) * time.Minute

	var slots []Slot
	cursor := from
	for cursor.Before(to) {
		day := HoursFor(week, int(cursor.Weekday()))
		if day.Closed {
			cursor = startOfNextDay(cursor)
			continue
		}

		dayOpen, err := atClock(cursor, day.Open)
		if err != nil {
			cursor = startOfNextDay(cursor)
			continue
		}
		dayClose, err := atClock(cursor, day.Close)
		if err != nil || !dayClose.After(dayOpen) {
			cursor = startOfNextDay(cursor)
			continue
		}

		// Latest start at which a full slot still fits before closing.
		lastStart := dayClose.Add(-step)

		if !cursor.Before(dayOpen) && !cursor.After(lastStart) {
			slots = append(slots, Slot{
				Start: cursor,
				End:   cursor.Add(step),
				Free:  !startTaken(cursor, booked),
			})
		}

		prev := cursor
		cursor = cursor.Add(step)
		if cursor.After(lastStart) {
			// Nothing more fits today. Jump to the next midnight unless the
			// step already carried the cursor into the next day.
			if next := startOfNextDay(prev); next.After(cursor) {
				cursor = next
			}
		}
	}
	return slots
}

// startTaken reports whether t falls inside any booked [Start, End).
// Only the start instant is tested; a slot whose tail overlaps a booking
// that begins mid-slot is still reported free at this granularity.
func startTaken(t time.Time, booked []Interval) bool {
	for _, b := range booked {
		if !t.Before(b.Start) && t.Before(b.End) {
			return true
		}
	}
	return false
}
