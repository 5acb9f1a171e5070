package reminder

import (
	"fmt"
	"time"
)

// NotificationLogEntry records one delivery attempt for a (reminder, offset)
// pair. Entries are written for failed attempts too.
type NotificationLogEntry struct {
	ReminderID       string    `json:"reminder_id"`
	NotificationTime time.Time `json:"notification_time"`
	MinutesBefore    int       `json:"minutes_before"`
	SentAt           time.Time `json:"sent_at"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"error_message,omitempty"`
}

// Key returns the ledger key of the entry.
func (e NotificationLogEntry) Key() string {
	return LedgerKey(e.ReminderID, e.MinutesBefore)
}

// LedgerKey builds the ledger key "{id}_{offset}".
func LedgerKey(id string, offset int) string {
	return fmt.Sprintf("%s_%d", id, offset)
}

// Ledger maps ledger keys to the recorded attempt.
type Ledger map[string]NotificationLogEntry

// Contains reports whether an attempt for (id, offset) has been recorded.
func (l Ledger) Contains(id string, offset int) bool {
	_, ok := l[LedgerKey(id, offset)]
	return ok
}

// Record stores e under its key, replacing any previous entry.
func (l Ledger) Record(e NotificationLogEntry) {
	l[e.Key()] = e
}

// ForReminder returns all entries of one reminder.
func (l Ledger) ForReminder(id string) []NotificationLogEntry {
	var out []NotificationLogEntry
	for _, e := range l {
		if e.ReminderID == id {
			out = append(out, e)
		}
	}
	return out
}
