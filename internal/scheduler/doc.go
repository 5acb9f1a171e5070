// Package scheduler decides which reminder notifications are due and sends
// them.
//
// Upcoming and DueNotifications are pure functions over a reminder, the
// notification ledger and the current time. Dispatcher runs one tick over the
// whole store: it sends every due notification, records each attempt in the
// ledger and moves pending reminders to notified. Scheduler drives the
// Dispatcher on a fixed interval using robfig/cron.
package scheduler
