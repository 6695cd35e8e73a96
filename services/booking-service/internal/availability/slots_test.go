package availability

import (
	"testing"
	"time"
)

func TestAvailableSlots_Basic(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 9, 2, 0, 0, 0, 0, loc)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)

	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)},
	}

	slots := AvailableSlots(windowStart, windowEnd, 15*time.Minute, 15*time.Minute, busy, day)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
	if !slots[1].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Format(time.RFC3339))
	}
}

func TestAvailableSlots_SkipsPast(t *testing.T) {
	day := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)

	now := day.Add(9*time.Hour + 31*time.Minute)
	slots := AvailableSlots(windowStart, windowEnd, 15*time.Minute, 15*time.Minute, nil, now)
	// 09:00, 09:15, 09:30 are in the past (start < now). 09:45 is future.
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected slot 09:45, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestIntervalOverlaps_HalfOpen(t *testing.T) {
	day := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	booked := Interval{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)}

	// A booking ending exactly when another starts does not collide.
	if booked.Overlaps(day.Add(9*time.Hour), day.Add(10*time.Hour)) {
		t.Fatal("touching end should not overlap")
	}
	if booked.Overlaps(day.Add(11*time.Hour), day.Add(12*time.Hour)) {
		t.Fatal("touching start should not overlap")
	}
	if !booked.Overlaps(day.Add(10*time.Hour+30*time.Minute), day.Add(11*time.Hour+30*time.Minute)) {
		t.Fatal("straddling interval should overlap")
	}
	if !booked.Overlaps(day.Add(9*time.Hour), day.Add(12*time.Hour)) {
		t.Fatal("containing interval should overlap")
	}
}

func TestIntersectWindows(t *testing.T) {
	day := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	a := []Interval{
		{Start: day.Add(9 * time.Hour), End: day.Add(12 * time.Hour)},
		{Start: day.Add(13 * time.Hour), End: day.Add(17 * time.Hour)},
	}
	b := []Interval{
		{Start: day.Add(10 * time.Hour), End: day.Add(14 * time.Hour)},
	}

	got := IntersectWindows(a, b)
	want := []Interval{
		{Start: day.Add(10 * time.Hour), End: day.Add(12 * time.Hour)},
		{Start: day.Add(13 * time.Hour), End: day.Add(14 * time.Hour)},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d windows, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Fatalf("window %d: got %v-%v, want %v-%v", i, got[i].Start, got[i].End, want[i].Start, want[i].End)
		}
	}

	if out := IntersectWindows(a, nil); out != nil {
		t.Fatalf("intersection with empty list should be empty, got %v", out)
	}
}

func TestContainedInAny(t *testing.T) {
	day := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	windows := []Interval{
		{Start: day.Add(9 * time.Hour), End: day.Add(12 * time.Hour)},
		{Start: day.Add(13 * time.Hour), End: day.Add(17 * time.Hour)},
	}

	if !ContainedInAny(day.Add(9*time.Hour), day.Add(10*time.Hour), windows) {
		t.Fatal("booking at window start should fit")
	}
	if !ContainedInAny(day.Add(16*time.Hour), day.Add(17*time.Hour), windows) {
		t.Fatal("booking ending at window end should fit")
	}
	if ContainedInAny(day.Add(11*time.Hour+30*time.Minute), day.Add(13*time.Hour+30*time.Minute), windows) {
		t.Fatal("booking spanning the gap between windows should not fit")
	}
	if ContainedInAny(day.Add(17*time.Hour), day.Add(18*time.Hour), windows) {
		t.Fatal("booking outside all windows should not fit")
	}
	if ContainedInAny(day.Add(10*time.Hour), day.Add(10*time.Hour), windows) {
		t.Fatal("empty interval should not fit")
	}
}
