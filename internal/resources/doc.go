// Package resources exposes reminders as read-only MCP resources.
//
// Resources render markdown meant to be read by an assistant:
//   - reminders://all: every reminder, grouped by status
//   - reminders://upcoming: pending and notified reminders of the next 7 days
//   - reminders://{date}: reminders whose event falls on a YYYY-MM-DD day
//
// Times are shown in the server's configured timezone.
package resources
