package cmd

import (
	"fmt"
	"time"
)

var hourLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02T15", "2006-01-02"}

// parseHour reads a UTC time bound. A bare date as the upper bound covers
// the whole day (through hour 23).
func parseHour(s string, upper bool) (time.Time, error) {
	for _, layout := range hourLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			continue
		}
		if upper && layout == "2006-01-02" {
			t = t.Add(23 * time.Hour)
		}
		return t.UTC().Truncate(time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339, YYYY-MM-DDTHH or YYYY-MM-DD", s)
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	f, err := parseHour(from, false)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
	}
	t, err := parseHour(to, true)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
	}
	if t.Before(f) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return f, t, nil
}
