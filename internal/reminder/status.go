package reminder

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a reminder.
type Status string

const (
	StatusPending   Status = "pending"
	StatusNotified  Status = "notified"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusNotified, StatusCompleted, StatusCancelled}

// ParseStatus converts a case-insensitive string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("invalid status %q (valid: pending, notified, completed, cancelled)", s),
		}
	}
	return st, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusNotified, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsActive reports whether reminders in this status still produce notifications.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusNotified
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Staying in the same status is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusNotified || next == StatusCancelled
	case StatusNotified:
		return next == StatusCompleted || next == StatusCancelled
	case StatusCompleted, StatusCancelled:
		return false
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// UnmarshalJSON rejects unknown status values so that a damaged record is
// reported instead of silently producing an unreachable state.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	st := Status(raw)
	if !st.Valid() {
		return fmt.Errorf("unknown reminder status %q", raw)
	}
	*s = st
	return nil
}
