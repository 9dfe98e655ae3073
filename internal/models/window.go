package models

import (
	"fmt"
	"strings"
	"time"
)

// Window decides when two candidates with the same (symbol, direction, source)
// are the same logical signal. A zero Rolling means calendar-day windows in UTC.
type Window struct {
	Rolling time.Duration
}

// CalendarDay is the default window.
var CalendarDay = Window{}

// Start returns the earliest created_at that still belongs to the window containing now.
func (w Window) Start(now time.Time) time.Time {
	now = now.UTC()
	if w.Rolling > 0 {
		return now.Add(-w.Rolling)
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether createdAt falls in the window containing now.
func (w Window) Contains(createdAt, now time.Time) bool {
	start := w.Start(now)
	if createdAt.Before(start) {
		return false
	}
	if w.Rolling > 0 {
		return true
	}
	return createdAt.Before(start.Add(24 * time.Hour))
}

func (w Window) String() string {
	if w.Rolling > 0 {
		return "rolling:" + w.Rolling.String()
	}
	return "calendar_day"
}

// ParseWindow accepts "calendar_day", "day", "" or a Go duration such as "6h".
func ParseWindow(raw string) (Window, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "", "day", "calendar_day":
		return CalendarDay, nil
	}
	v = strings.TrimPrefix(v, "rolling:")
	d, err := time.ParseDuration(v)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window %q: %w", raw, err)
	}
	if d <= 0 {
		return Window{}, fmt.Errorf("invalid window %q: must be positive", raw)
	}
	return Window{Rolling: d}, nil
}
