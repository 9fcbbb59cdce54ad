// Package schedule holds the pure slot-grid logic for the barbershop agenda:
// clock normalization, day-grid generation, and per-slot status resolution.
// Nothing in this package touches storage or the network.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeFormat reports a time-of-day string that cannot be normalized.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// NormalizeClock converts a time-of-day string to the canonical HH:MM form.
// Accepted inputs: "H:M", "H:MM", "HH:MM" and "HH:MM:SS" (seconds are
// validated and discarded). Legacy sheet rows recorded times as "8:30" while
// newer ones wrote "08:30:00"; both must land on the same slot key.
func NormalizeClock(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}

	hour, err := clockField(parts[0], 23)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}
	minute, err := clockField(parts[1], 59)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}
	if len(parts) == 3 {
		if _, err := clockField(parts[2], 59); err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func clockField(s string, max int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 2 {
		return 0, ErrInvalidTimeFormat
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidTimeFormat
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > max {
		return 0, ErrInvalidTimeFormat
	}
	return n, nil
}

// clockMinutes parses a normalized or raw clock string into minutes since
// midnight.
func clockMinutes(raw string) (int, error) {
	norm, err := NormalizeClock(raw)
	if err != nil {
		return 0, err
	}
	hour, _ := strconv.Atoi(norm[:2])
	minute, _ := strconv.Atoi(norm[3:])
	return hour*60 + minute, nil
}

func minutesClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// SlotGrid generates the bookable slot start times for one day: a strictly
// increasing sequence of HH:MM values from dayStart (inclusive) up to dayEnd
// (exclusive), spaced by interval. When the window is not an exact multiple of
// the interval the last slot is the latest start strictly before dayEnd; no
// truncated slot is emitted.
func SlotGrid(dayStart, dayEnd string, interval time.Duration) ([]string, error) {
	start, err := clockMinutes(dayStart)
	if err != nil {
		return nil, err
	}
	end, err := clockMinutes(dayEnd)
	if err != nil {
		return nil, err
	}
	if start >= end {
		return nil, fmt.Errorf("day window %s-%s is empty", dayStart, dayEnd)
	}
	step := int(interval / time.Minute)
	if step <= 0 || interval%time.Minute != 0 {
		return nil, fmt.Errorf("slot interval must be a positive whole number of minutes, got %s", interval)
	}

	slots := make([]string, 0, (end-start+step-1)/step)
	for m := start; m < end; m += step {
		slots = append(slots, minutesClock(m))
	}
	return slots, nil
}
