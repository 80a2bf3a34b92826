package schedule

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 1, 5, hour, min, 0, 0, time.UTC)
}

func TestHasConflictStartInsideExisting(t *testing.T) {
	existing := []Interval{{Start: at(14, 0), End: at(14, 45)}}
	if !HasConflict(existing, at(14, 10), at(14, 55)) {
		t.Fatal("expected conflict when candidate starts inside existing interval")
	}
}

func TestHasConflictTouchingExistingEnd(t *testing.T) {
	// A 45-minute appointment at 14:00 blocks a booking that starts exactly
	// at 14:45, even though a half-open overlap test would allow it.
	existing := []Interval{{Start: at(14, 0), End: at(14, 45)}}
	if !HasConflict(existing, at(14, 45), at(15, 30)) {
		t.Fatal("expected conflict for candidate starting at existing end")
	}
}

func TestHasConflictTouchingExistingStart(t *testing.T) {
	// The end-side branch is closed on both sides, so a candidate ending
	// exactly when the existing appointment begins is also refused.
	existing := []Interval{{Start: at(14, 0), End: at(14, 45)}}
	if !HasConflict(existing, at(13, 15), at(14, 0)) {
		t.Fatal("expected conflict for candidate ending at existing start")
	}
}

func TestHasConflictEndInsideExisting(t *testing.T) {
	existing := []Interval{{Start: at(14, 0), End: at(14, 45)}}
	if !HasConflict(existing, at(13, 30), at(14, 30)) {
		t.Fatal("expected conflict when candidate ends inside existing interval")
	}
}

func TestHasConflictDisjointIntervals(t *testing.T) {
	existing := []Interval{{Start: at(14, 0), End: at(14, 45)}}
	if HasConflict(existing, at(12, 0), at(13, 0)) {
		t.Fatal("unexpected conflict for interval well before existing")
	}
	if HasConflict(existing, at(15, 0), at(16, 0)) {
		t.Fatal("unexpected conflict for interval well after existing")
	}
	if HasConflict(nil, at(12, 0), at(13, 0)) {
		t.Fatal("unexpected conflict with no existing appointments")
	}
}

func TestHasConflictStrictContainmentCompatibility(t *testing.T) {
	// Pin the historical boundary behavior: a candidate strictly containing
	// an existing interval on both sides is not flagged by this predicate.
	// The storage overlap constraint is the backstop for this shape.
	existing := []Interval{{Start: at(14, 0), End: at(14, 30)}}
	if HasConflict(existing, at(13, 30), at(15, 0)) {
		t.Fatal("predicate changed: strict containment is historically not flagged")
	}
}

func TestHasConflictAnyOfMany(t *testing.T) {
	existing := []Interval{
		{Start: at(9, 0), End: at(9, 30)},
		{Start: at(11, 0), End: at(11, 30)},
		{Start: at(16, 0), End: at(17, 0)},
	}
	if !HasConflict(existing, at(11, 15), at(11, 45)) {
		t.Fatal("expected conflict against middle interval")
	}
	if HasConflict(existing, at(13, 0), at(13, 30)) {
		t.Fatal("unexpected conflict in open gap")
	}
}

func TestHasConflictIdempotent(t *testing.T) {
	existing := []Interval{{Start: at(14, 0), End: at(14, 45)}}
	first := HasConflict(existing, at(14, 45), at(15, 30))
	second := HasConflict(existing, at(14, 45), at(15, 30))
	if first != second {
		t.Fatal("expected identical results for identical inputs")
	}
}
