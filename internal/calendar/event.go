package calendar

import (
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/teemow/calreminder/internal/reminder"
)

const (
	// DefaultDuration is the length of a mirrored event.
	DefaultDuration = time.Hour

	// Google Calendar accepts at most five reminder overrides, each at most
	// four weeks before the event.
	maxReminderOverrides = 5
	maxReminderMinutes   = 40320
)

// toEvent converts a reminder into a calendar event.
func toEvent(r *reminder.Reminder) *gcal.Event {
	start := r.Event.Start.UTC()
	event := &gcal.Event{
		Summary:     r.Event.Title,
		Location:    r.Event.Location,
		Description: r.Event.Description,
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: start.Add(DefaultDuration).Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}

	for _, email := range r.Event.Attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}

	if offsets := r.Notifications.MinutesBefore; len(offsets) > 0 {
		overrides := make([]*gcal.EventReminder, 0, min(len(offsets), maxReminderOverrides))
		for _, m := range offsets {
			if len(overrides) == maxReminderOverrides {
				break
			}
			overrides = append(overrides, &gcal.EventReminder{
				Method:  "email",
				Minutes: int64(min(m, maxReminderMinutes)),
				// Zero minutes must still be sent.
				ForceSendFields: []string{"Minutes"},
			})
		}
		event.Reminders = &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		}
	}
	return event
}
