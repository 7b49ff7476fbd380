package utils

import (
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// TodayKey returns the "2006-01-02" key of the current day in loc.
func TodayKey(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(dayLayout)
}

// ParseDay reads an entry date. Plain dates and full ISO timestamps are both
// accepted; only the written calendar day is kept, placed at midnight in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) < len(dayLayout) {
		return time.Time{}, fmt.Errorf("invalid entry date %q", value)
	}
	day, err := time.ParseInLocation(dayLayout, value[:len(dayLayout)], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid entry date %q: %w", value, err)
	}
	return day, nil
}

// ParseTimestamp reads an RFC 3339 timestamp and reports whether it fell back
// to now because the value was missing or unparseable.
func ParseTimestamp(value string, now time.Time) (time.Time, bool) {
	if value == "" {
		return now, true
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, dayLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, false
		}
	}
	return now, true
}

// FormatClock renders a message time for chat display.
func FormatClock(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "--:--"
	}
	return t.In(loc).Format("15:04")
}
