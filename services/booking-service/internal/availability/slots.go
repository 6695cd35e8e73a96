package availability

import "time"

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [start, end) overlaps [b.Start, b.End). Half-open
// on both sides, so back-to-back bookings never collide.
func (b Interval) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && b.Start.Before(end)
}

// AvailableSlots returns slot start times within [windowStart, windowEnd) where
// a booking of length duration would not overlap any of the busy intervals.
//
// All times are expected to be in the same location (timezone).
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval, now time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}
	if windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		if !overlapsAny(t, t.Add(duration), busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

// ContainedInAny reports whether [start, end) fits entirely inside one of the
// windows. Used to validate a requested booking time against the resolved
// working windows for the day.
func ContainedInAny(start, end time.Time, windows []Interval) bool {
	if !end.After(start) {
		return false
	}
	for _, w := range windows {
		if !start.Before(w.Start) && !end.After(w.End) {
			return true
		}
	}
	return false
}

// IntersectWindows returns the pairwise overlaps of two window lists. Used
// when a service books the whole team: a slot must fit every member, so the
// bookable windows are the intersection of everyone's windows.
func IntersectWindows(a, b []Interval) []Interval {
	var out []Interval
	for _, x := range a {
		for _, y := range b {
			start := x.Start
			if y.Start.After(start) {
				start = y.Start
			}
			end := x.End
			if y.End.Before(end) {
				end = y.End
			}
			if end.After(start) {
				out = append(out, Interval{Start: start, End: end})
			}
		}
	}
	return out
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}
