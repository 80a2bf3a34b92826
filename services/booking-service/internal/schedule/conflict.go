package schedule

import "time"

// HasConflict reports whether a candidate [start, end) collides with any
// existing booked interval. Callers scope existing to the same business and
// exclude the appointment being rescheduled, if any.
//
// The predicate is deliberately stricter than a plain half-open overlap
// test and is kept bit-for-bit compatible with the historical behavior:
//
//   - start inside [b.Start, b.End) conflicts;
//   - start exactly at b.End conflicts (back-to-back bookings against an
//     existing appointment's end are refused);
//   - end inside the closed interval [b.Start, b.End] conflicts.
//
// One consequence: a candidate that strictly contains an existing interval
// on both sides is NOT flagged here. The storage layer's overlap constraint
// still refuses such inserts. Do not "fix" the boundary rules without a
// product decision; downstream clients depend on them.
func HasConflict(existing []Interval, start, end time.Time) bool {
	for _, b := range existing {
		if !start.Before(b.Start) && start.Before(b.End) {
			return true
		}
		if start.Equal(b.End) {
			return true
		}
		if !end.Before(b.Start) && !end.After(b.End) {
			return true
		}
	}
	return false
}
