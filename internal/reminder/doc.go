// Package reminder defines the domain model of calreminder: reminders for
// calendar events, their notification settings, the status lifecycle and the
// notification ledger that records every delivery attempt.
//
// # Status Lifecycle
//
// A reminder moves through a small, closed state machine:
//
//	pending ──► notified ──► completed
//	   │            │
//	   └────────────┴──────► cancelled
//
// completed and cancelled are terminal. Re-applying the current status is an
// accepted no-op.
//
// # Ledger
//
// Every attempt to deliver a notification, successful or not, is recorded
// under the key "{reminderID}_{minutesBefore}". An offset whose key exists in
// the ledger is never attempted again.
//
// # Errors
//
// The package exposes the error taxonomy used throughout the application:
// ValidationError for rejected caller input, StorageError for persistence
// failures and ExternalServiceError for calendar or email failures.
package reminder
