package availability

import (
	"errors"
	"testing"
)

func mustClock(t *testing.T, s string) int {
	t.Helper()
	v, err := ParseClock(s)
	if err != nil {
		t.Fatalf("ParseClock(%q): %v", s, err)
	}
	return v
}

func TestValidateWorkingHours(t *testing.T) {
	business := Window{Start: mustClock(t, "09:00"), End: mustClock(t, "18:00")}

	cases := []struct {
		name    string
		start   string
		end     string
		wantErr error
	}{
		{"inside window", "10:00", "16:00", nil},
		{"matches window exactly", "09:00", "18:00", nil},
		{"starts before opening", "08:00", "17:00", ErrOutsideBusinessHours},
		{"ends after closing", "10:00", "19:00", ErrOutsideBusinessHours},
		{"inverted", "16:00", "10:00", ErrInvalidWindow},
		{"empty", "10:00", "10:00", ErrInvalidWindow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := Window{Start: mustClock(t, tc.start), End: mustClock(t, tc.end)}
			err := ValidateWorkingHours(business, req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateNewBreak(t *testing.T) {
	existing := []Break{{Start: mustClock(t, "12:00"), End: mustClock(t, "13:00")}}

	cases := []struct {
		name    string
		start   string
		end     string
		wantErr error
	}{
		{"overlaps from the left", "11:30", "12:30", ErrBreakOverlap},
		{"overlaps from the right", "12:30", "13:30", ErrBreakOverlap},
		{"contained", "12:15", "12:45", ErrBreakOverlap},
		{"contains existing", "11:00", "14:00", ErrBreakOverlap},
		{"touching end is not overlap", "13:00", "14:00", nil},
		{"touching start is not overlap", "11:00", "12:00", nil},
		{"disjoint", "15:00", "15:30", nil},
		{"inverted", "14:00", "13:30", ErrInvalidWindow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nb := Break{Start: mustClock(t, tc.start), End: mustClock(t, tc.end)}
			err := ValidateNewBreak(existing, nb)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestToggle(t *testing.T) {
	if got := Toggle(StatusUnset); got != StatusAvailable {
		t.Fatalf("toggle from unset: got %q", got)
	}
	if got := Toggle(StatusAvailable); got != StatusNotAvailable {
		t.Fatalf("toggle from available: got %q", got)
	}
	if got := Toggle(StatusNotAvailable); got != StatusAvailable {
		t.Fatalf("toggle from not available: got %q", got)
	}

	// Toggling twice always returns to the starting point for set states.
	for _, s := range []Status{StatusAvailable, StatusNotAvailable} {
		if got := Toggle(Toggle(s)); got != s {
			t.Fatalf("double toggle of %q: got %q", s, got)
		}
	}
}

func TestIntersect(t *testing.T) {
	a := Window{Start: 540, End: 1080}
	b := Window{Start: 600, End: 960}
	w, ok := Intersect(a, b)
	if !ok || w.Start != 600 || w.End != 960 {
		t.Fatalf("got %+v ok=%v", w, ok)
	}
	if _, ok := Intersect(Window{Start: 540, End: 600}, Window{Start: 600, End: 700}); ok {
		t.Fatal("touching windows should not intersect")
	}
}

func TestSubtractBreaks(t *testing.T) {
	w := Window{Start: mustClock(t, "09:00"), End: mustClock(t, "17:00")}
	breaks := []Break{
		{Start: mustClock(t, "12:00"), End: mustClock(t, "13:00")},
		{Start: mustClock(t, "15:00"), End: mustClock(t, "15:30")},
	}
	got := SubtractBreaks(w, breaks)
	want := []Window{
		{Start: mustClock(t, "09:00"), End: mustClock(t, "12:00")},
		{Start: mustClock(t, "13:00"), End: mustClock(t, "15:00")},
		{Start: mustClock(t, "15:30"), End: mustClock(t, "17:00")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d windows, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("window %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	// A break covering the whole window removes it entirely.
	if rem := SubtractBreaks(Window{Start: 540, End: 600}, []Break{{Start: 500, End: 700}}); len(rem) != 0 {
		t.Fatalf("expected no windows, got %+v", rem)
	}
}

func TestClockRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00", "09:05", "18:00", "23:59"} {
		v, err := ParseClock(s)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", s, err)
		}
		if FormatClock(v) != s {
			t.Fatalf("round trip of %q: got %q", s, FormatClock(v))
		}
	}
	for _, s := range []string{"", "24:00", "12:60", "nope"} {
		if _, err := ParseClock(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}
