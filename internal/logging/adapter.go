package logging

import (
	"log/slog"
)

// JobLogger is the logging interface expected by background job runners.
// It matches robfig/cron's cron.Logger, so a SlogAdapter can be handed to
// cron.WithLogger, cron.Recover and cron.SkipIfStillRunning directly.
type JobLogger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(err error, msg string, keysAndValues ...interface{})
}

// SlogAdapter adapts an slog.Logger to the JobLogger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter wrapping the given slog.Logger.
// If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Info logs at debug level. Job runners report every wake-up and run through
// Info, which is too chatty for the default level.
func (a *SlogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, keysAndValues...)
}

// Error logs at error level with the error attached.
func (a *SlogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	args := make([]interface{}, 0, len(keysAndValues)+1)
	args = append(args, Err(err))
	args = append(args, keysAndValues...)
	a.logger.Error(msg, args...)
}

// Logger returns the underlying slog.Logger for direct access when needed.
func (a *SlogAdapter) Logger() *slog.Logger {
	return a.logger
}
