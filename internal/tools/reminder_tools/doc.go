// Package reminder_tools provides the MCP tools for managing reminders.
//
// # Available Tools
//
// Always registered:
//   - create_reminder: Create a reminder for an upcoming event
//   - get_reminder: Get a single reminder by ID
//   - list_reminders: List reminders with date range and status filters
//   - get_pending_notifications: List notifications that have not been sent
//   - get_current_datetime: Current date and time in the server's timezone
//
// Registered unless the server runs read-only:
//   - update_reminder: Change fields or the status of a reminder
//   - delete_reminder: Delete a reminder and its calendar event
//   - cancel_reminder: Stop all further notifications for a reminder
//   - complete_reminder: Mark a notified reminder as done
//   - sync_to_calendar: Mirror reminders into Google Calendar
//
// Every tool returns a JSON document with a "success" field. Failures are
// returned as error results carrying {"success": false, "error": "..."}.
package reminder_tools
