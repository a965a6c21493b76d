package availability

import (
	"testing"
)

func TestOverlapsHalfOpen(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", Interval{540, 600}, Interval{540, 600}, true},
		{"contained", Interval{540, 720}, Interval{570, 600}, true},
		{"partial front", Interval{540, 600}, Interval{570, 660}, true},
		{"partial back", Interval{570, 660}, Interval{540, 600}, true},
		{"back to back", Interval{540, 600}, Interval{600, 660}, false},
		{"back to back reversed", Interval{600, 660}, Interval{540, 600}, false},
		{"disjoint", Interval{540, 600}, Interval{720, 780}, false},
	}

	for _, tc := range cases {
		if got := Overlaps(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: Overlaps(%v, %v) = %v, want %v", tc.name, tc.a, tc.b, got, tc.want)
		}
		// Overlap is symmetric.
		if got := Overlaps(tc.b, tc.a); got != tc.want {
			t.Errorf("%s: Overlaps(%v, %v) = %v, want %v", tc.name, tc.b, tc.a, got, tc.want)
		}
	}
}

func TestMarkUnavailableFlagsWithoutRemoving(t *testing.T) {
	open, _ := ParseTimeOfDay("09:00")
	closeMin, _ := ParseTimeOfDay("12:00")
	slots := GenerateSlots(open, closeMin, 60, 30) // 09:00..11:00 every 30m

	busy := []Interval{{StartMin: 600, EndMin: 660}} // 10:00-11:00
	marked := MarkUnavailable(slots, busy)

	if len(marked) != len(slots) {
		t.Fatalf("slots were removed: %d != %d", len(marked), len(slots))
	}

	wantAvailable := map[string]bool{
		"09:00": true,  // ends 10:00, back-to-back with busy
		"09:30": false, // overlaps 10:00-10:30
		"10:00": false,
		"10:30": false,
		"11:00": true, // starts as busy ends
	}
	for _, s := range marked {
		want, ok := wantAvailable[s.Start]
		if !ok {
			t.Fatalf("unexpected slot start %s", s.Start)
		}
		if s.Available != want {
			t.Errorf("slot %s available = %v, want %v", s.Start, s.Available, want)
		}
	}

	if got := CountAvailable(marked); got != 2 {
		t.Errorf("CountAvailable = %d, want 2", got)
	}
}
