// Package lifecycle implements the user-facing reminder operations on top of
// the reminder store, including the optional calendar mirror. Status changes
// go through the reminder state machine, so no operation can move a reminder
// back to pending once it has been notified.
package lifecycle
