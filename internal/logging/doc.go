// Package logging provides structured logging utilities for calreminder.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from configured level and format
//   - PII sanitization (recipient email anonymization)
//   - Consistent attribute naming across the codebase
//   - An adapter for background job runners
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "scheduler.tick")
//	logger.Info("notification sent",
//	    logging.ReminderID(r.ID),
//	    logging.Offset(60))
//
// Sanitize recipients before logging:
//
//	logger.Info("sending reminder", logging.Recipients(to))
package logging
