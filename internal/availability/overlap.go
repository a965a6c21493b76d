package availability

// Interval is a half-open [Start, End) time range in minutes since midnight.
type Interval struct {
	StartMin int
	EndMin   int
}

// Overlaps tests half-open interval overlap: two intervals conflict when
// a.Start < b.End && b.Start < a.End. Back-to-back bookings do not overlap.
func Overlaps(a, b Interval) bool {
	return a.StartMin < b.EndMin && b.StartMin < a.EndMin
}

// MarkUnavailable flags every candidate slot that overlaps any busy
// interval. The slice is modified in place and returned; slots are never
// removed, only flagged.
func MarkUnavailable(slots []Slot, busy []Interval) []Slot {
	for i := range slots {
		start, err := ParseTimeOfDay(slots[i].Start)
		if err != nil {
			continue
		}
		end, err := ParseTimeOfDay(slots[i].End)
		if err != nil {
			continue
		}
		candidate := Interval{StartMin: start, EndMin: end}
		for _, b := range busy {
			if Overlaps(candidate, b) {
				slots[i].Available = false
				break
			}
		}
	}
	return slots
}

// CountAvailable returns how many slots remain bookable.
func CountAvailable(slots []Slot) int {
	n := 0
	for _, s := range slots {
		if s.Available {
			n++
		}
	}
	return n
}
