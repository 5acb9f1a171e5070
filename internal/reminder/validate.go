package reminder

import (
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode"
)

// ValidateTitle trims the title and rejects an empty result. The title ends
// up in the email Subject, so control characters are rejected.
func ValidateTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", NewValidationError("title", "must not be empty")
	}
	if strings.ContainsFunc(t, unicode.IsControl) {
		return "", NewValidationError("title", "must not contain control characters")
	}
	return t, nil
}

// ValidateLocation trims the location and rejects line breaks.
func ValidateLocation(location string) (string, error) {
	l := strings.TrimSpace(location)
	if strings.ContainsAny(l, "\r\n") {
		return "", NewValidationError("location", "must be a single line")
	}
	return l, nil
}

// ValidateStart rejects start times that are not strictly after now.
func ValidateStart(start, now time.Time) error {
	if start.IsZero() {
		return NewValidationError("datetime", "is required")
	}
	if !start.After(now) {
		return NewValidationError("datetime", "event time %s must be in the future", start.Format(time.RFC3339))
	}
	return nil
}

// NormalizeAttendees trims, validates and de-duplicates attendee addresses.
// Order of first occurrence is kept and comparison is case-insensitive.
func NormalizeAttendees(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		a := strings.TrimSpace(raw)
		if a == "" {
			continue
		}
		addr, err := mail.ParseAddress(a)
		if err != nil || addr.Address != a || !strings.Contains(a, "@") {
			return nil, NewValidationError("attendees", "%q is not a valid email address", a)
		}
		key := strings.ToLower(a)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}

// NormalizeOffsets validates notification offsets and removes duplicates,
// keeping the first occurrence. An empty input yields DefaultOffsets.
func NormalizeOffsets(in []int) ([]int, error) {
	if len(in) == 0 {
		return slices.Clone(DefaultOffsets), nil
	}
	out := make([]int, 0, len(in))
	for _, m := range in {
		if m < 0 {
			return nil, NewValidationError("notification_minutes", "offset %d must not be negative", m)
		}
		if slices.Contains(out, m) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// ValidateEvent normalizes e in place and checks it for creation at now.
func ValidateEvent(e *EventDetails, now time.Time) error {
	title, err := ValidateTitle(e.Title)
	if err != nil {
		return err
	}
	e.Title = title
	if err := ValidateStart(e.Start, now); err != nil {
		return err
	}
	attendees, err := NormalizeAttendees(e.Attendees)
	if err != nil {
		return err
	}
	e.Attendees = attendees
	location, err := ValidateLocation(e.Location)
	if err != nil {
		return err
	}
	e.Location = location
	e.Description = strings.TrimSpace(e.Description)
	return nil
}
