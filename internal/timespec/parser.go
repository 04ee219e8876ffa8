// Package timespec parses --since/--until style time specifications.
package timespec

import (
	"fmt"
	"time"
)

// Range is a half-open window in Unix milliseconds. Zero means unbounded.
type Range struct {
	SinceMs int64
	UntilMs int64
}

// ParseAt parses a time specification into Unix milliseconds.
//
// A Go duration ("90m", "1h30m") means that long before now.
// An RFC3339 timestamp ("2026-10-17T09:00:00Z") or a date ("2026-10-17",
// midnight UTC) is taken as given.
func ParseAt(spec string, now time.Time) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	// Try parsing as RFC3339 first
	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	// Then a bare date, read as midnight UTC
	if t, err := time.Parse(time.DateOnly, spec); err == nil {
		return t.UnixMilli(), nil
	}

	// Try parsing as Go duration
	if d, err := time.ParseDuration(spec); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("invalid time specification: %s (duration must be positive)", spec)
		}
		// Duration is relative to now (subtract from current time)
		return now.Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m', a date like '2026-10-17' or RFC3339)", spec)
}

// ParseRange parses --since and --until into a Range. Empty flags are unbounded.
func ParseRange(since, until string, now time.Time) (Range, error) {
	var r Range
	var err error

	if since != "" {
		if r.SinceMs, err = ParseAt(since, now); err != nil {
			return Range{}, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if r.UntilMs, err = ParseAt(until, now); err != nil {
			return Range{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	// Validate range
	if r.SinceMs > 0 && r.UntilMs > 0 && r.SinceMs >= r.UntilMs {
		return Range{}, fmt.Errorf("--since must be before --until")
	}
	return r, nil
}
