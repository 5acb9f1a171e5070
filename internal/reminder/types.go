package reminder

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// DefaultOffsets are the notification offsets, in minutes before the event,
// used when none are supplied: one hour and one day.
var DefaultOffsets = []int{60, 1440}

// EventDetails describes the calendar event a reminder refers to.
type EventDetails struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"datetime"`
	Attendees   []string  `json:"attendees"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
}

// NotificationSettings controls when and whether notifications are sent.
type NotificationSettings struct {
	// MinutesBefore holds distinct, non-negative offsets in insertion order.
	MinutesBefore []int `json:"minutes_before"`
	EmailEnabled  bool  `json:"email_enabled"`
}

// DefaultNotificationSettings returns the default offsets with email enabled.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		MinutesBefore: slices.Clone(DefaultOffsets),
		EmailEnabled:  true,
	}
}

// Reminder is a scheduled reminder for a single event.
type Reminder struct {
	ID              string               `json:"id"`
	Event           EventDetails         `json:"event"`
	Notifications   NotificationSettings `json:"notification_settings"`
	Status          Status               `json:"status"`
	CalendarSynced  bool                 `json:"calendar_synced"`
	ExternalEventID string               `json:"google_event_id,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// NewID returns a fresh reminder identifier.
func NewID() string {
	return uuid.NewString()
}

// New creates a pending reminder with a fresh id. The caller is expected to
// have validated event and settings.
func New(event EventDetails, settings NotificationSettings, now time.Time) *Reminder {
	return &Reminder{
		ID:            NewID(),
		Event:         event,
		Notifications: settings,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NotifyAt returns the instant at which the notification for offset is due.
func (r *Reminder) NotifyAt(offset int) time.Time {
	return r.Event.Start.Add(-time.Duration(offset) * time.Minute)
}

// Transition moves the reminder to next, refreshing UpdatedAt.
func (r *Reminder) Transition(next Status, now time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return NewValidationError("status", "cannot change status from %s to %s", r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// Touch refreshes UpdatedAt.
func (r *Reminder) Touch(now time.Time) {
	r.UpdatedAt = now
}

// Clone returns a deep copy of r.
func (r *Reminder) Clone() *Reminder {
	if r == nil {
		return nil
	}
	c := *r
	c.Event.Attendees = slices.Clone(r.Event.Attendees)
	c.Notifications.MinutesBefore = slices.Clone(r.Notifications.MinutesBefore)
	return &c
}
