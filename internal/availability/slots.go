// Package availability computes candidate booking slots for a shop and
// marks them against existing reservations. Everything here is pure; the
// concurrency guarantee for actually claiming a slot belongs to the
// reservation repository.
package availability

import (
	"fmt"
	"time"

	"github.com/ModawnAI/everything-backend-sub023/internal/apperrors"
)

const (
	// MinInterval and MaxInterval bound the slot stepping interval in minutes.
	MinInterval = 15
	MaxInterval = 120

	// DefaultInterval is used when the caller does not specify one.
	DefaultInterval = 30

	// DefaultBufferMinutes is added after the booked services when the
	// request does not override it.
	DefaultBufferMinutes = 15

	// Fallback operating window for weekdays with no configured hours.
	DefaultOpenTime  = "09:00"
	DefaultCloseTime = "18:00"
)

// Slot is one candidate booking interval. Slots are flagged, never removed,
// so clients can render open and closed slots with the same shape.
type Slot struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Duration  int    `json:"duration"`
	Available bool   `json:"available"`
}

// ParseTimeOfDay parses a zero-padded HH:MM string into minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil || len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatTimeOfDay renders minutes since midnight as zero-padded HH:MM.
func FormatTimeOfDay(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate validates a YYYY-MM-DD date and returns its weekday.
func ParseDate(s string) (time.Weekday, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, err
	}
	return d.Weekday(), nil
}

// ValidateInterval rejects stepping intervals outside [MinInterval, MaxInterval].
func ValidateInterval(interval int) error {
	if interval < MinInterval || interval > MaxInterval {
		return apperrors.Validationf("INVALID_INTERVAL",
			"interval must be between %d and %d minutes, got %d", MinInterval, MaxInterval, interval)
	}
	return nil
}

// GenerateSlots produces candidate slots stepping from openMin to
// closeMin-totalDuration in increments of interval. A total duration longer
// than the window yields zero candidates, which is not an error.
func GenerateSlots(openMin, closeMin, totalDuration, interval int) []Slot {
	slots := []Slot{}
	if totalDuration <= 0 || interval <= 0 {
		return slots
	}

	lastStart := closeMin - totalDuration
	for start := openMin; start <= lastStart; start += interval {
		slots = append(slots, Slot{
			Start:     FormatTimeOfDay(start),
			End:       FormatTimeOfDay(start + totalDuration),
			Duration:  totalDuration,
			Available: true,
		})
	}
	return slots
}

// FilterBounds keeps only candidates starting at or after startMin and
// ending at or before endMin. Negative bounds mean unbounded.
func FilterBounds(slots []Slot, startMin, endMin int) []Slot {
	filtered := []Slot{}
	for _, s := range slots {
		start, _ := ParseTimeOfDay(s.Start)
		end, _ := ParseTimeOfDay(s.End)
		if startMin >= 0 && start < startMin {
			continue
		}
		if endMin >= 0 && end > endMin {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}
