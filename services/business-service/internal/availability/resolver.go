package availability

import (
	"errors"
	"fmt"
	"strings"
)

// Clock values are minutes since local midnight. All intervals are half-open
// [start, end), so touching endpoints never count as overlap.

var (
	ErrInvalidWindow        = errors.New("end must be after start")
	ErrOutsideBusinessHours = errors.New("working hours must fall within business hours")
	ErrBreakOverlap         = errors.New("break overlaps an existing break")
)

type Window struct {
	Start int
	End   int
}

type Break struct {
	ID    string
	Start int
	End   int
}

// ValidateWorkingHours checks a team member's requested working hours against
// the business window for the same day. Requested hours may equal the business
// window but may not exceed it on either side.
func ValidateWorkingHours(business, requested Window) error {
	if requested.End <= requested.Start {
		return ErrInvalidWindow
	}
	if requested.Start < business.Start || requested.End > business.End {
		return ErrOutsideBusinessHours
	}
	return nil
}

// ValidateNewBreak rejects a break that overlaps any existing break. Breaks are
// deliberately not constrained to fall within working hours; the original
// product never enforced that and callers rely on the looser behavior.
func ValidateNewBreak(existing []Break, nb Break) error {
	if nb.End <= nb.Start {
		return ErrInvalidWindow
	}
	for _, b := range existing {
		if nb.Start < b.End && nb.End > b.Start {
			return ErrBreakOverlap
		}
	}
	return nil
}

// Intersect returns the overlap of two windows and whether it is non-empty.
func Intersect(a, b Window) (Window, bool) {
	w := Window{Start: max(a.Start, b.Start), End: min(a.End, b.End)}
	if w.End <= w.Start {
		return Window{}, false
	}
	return w, true
}

// SubtractBreaks splits a window into the sub-windows that remain after
// removing each break. Breaks outside the window are ignored; breaks
// straddling an edge clip it.
func SubtractBreaks(w Window, breaks []Break) []Window {
	out := []Window{w}
	for _, b := range breaks {
		var next []Window
		for _, win := range out {
			if b.Start >= win.End || b.End <= win.Start {
				next = append(next, win)
				continue
			}
			if b.Start > win.Start {
				next = append(next, Window{Start: win.Start, End: b.Start})
			}
			if b.End < win.End {
				next = append(next, Window{Start: b.End, End: win.End})
			}
		}
		out = next
	}
	return out
}

// Status is the per (staff, weekday) availability flag. The zero value means
// the day was never set.
type Status string

const (
	StatusUnset        Status = ""
	StatusAvailable    Status = "Available"
	StatusNotAvailable Status = "NotAvailable"
)

// Toggle flips Available and NotAvailable; an unset day becomes Available,
// matching the original toggle button. Marking a day unavailable does not
// touch appointments already booked on it.
func Toggle(s Status) Status {
	if s == StatusAvailable {
		return StatusNotAvailable
	}
	return StatusAvailable
}

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return h*60 + m, nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
