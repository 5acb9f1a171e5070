package reminder

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day format used by date filters.
const DateLayout = "2006-01-02"

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDateTime parses an ISO-8601 timestamp. Values carrying an offset are
// taken as-is; values without one are interpreted in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, NewValidationError("datetime",
		"cannot parse %q; use ISO format like 2025-06-15T14:30:00", s)
}

// ParseDate parses a YYYY-MM-DD day in loc and returns its first instant.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, NewValidationError("date", "cannot parse %q; use YYYY-MM-DD", s)
	}
	return t, nil
}
