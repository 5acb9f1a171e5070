package scheduler

import (
	"time"

	"github.com/teemow/calreminder/internal/reminder"
)

// Scheduled is one notification of a reminder that has not been attempted yet.
type Scheduled struct {
	ReminderID string
	Offset     int
	NotifyAt   time.Time
	// Due is true once NotifyAt has been reached.
	Due bool
}

// Upcoming returns every configured offset of r that has no ledger entry yet,
// in configured order. It returns nil when r is not active, its event has
// already started or email notifications are disabled for it.
func Upcoming(now time.Time, r *reminder.Reminder, ledger reminder.Ledger) []Scheduled {
	if r == nil || !r.Status.IsActive() || r.Event.Start.Before(now) || !r.Notifications.EmailEnabled {
		return nil
	}

	var out []Scheduled
	for _, offset := range r.Notifications.MinutesBefore {
		if ledger.Contains(r.ID, offset) {
			continue
		}
		at := r.NotifyAt(offset)
		out = append(out, Scheduled{
			ReminderID: r.ID,
			Offset:     offset,
			NotifyAt:   at,
			Due:        !now.Before(at),
		})
	}
	return out
}

// DueNotifications returns the offsets of r that must be sent at now.
func DueNotifications(now time.Time, r *reminder.Reminder, ledger reminder.Ledger) []Scheduled {
	var due []Scheduled
	for _, s := range Upcoming(now, r, ledger) {
		if s.Due {
			due = append(due, s)
		}
	}
	return due
}
