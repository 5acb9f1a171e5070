package google

import (
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultOAuthScopes are the scopes needed to mirror reminders as calendar
// events and to send notification emails.
var DefaultOAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",

	// Creating, updating and deleting reminder events
	calendar.CalendarEventsScope,

	// Sending notifications and reading the sender address
	gmail.GmailSendScope,
	gmail.GmailReadonlyScope,
}
