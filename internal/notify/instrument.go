package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/calreminder/internal/instrumentation"
	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/reminder"
	"github.com/teemow/calreminder/internal/scheduler"
)

// instrumented runs one provider call inside a span, records its duration
// and wraps failures as external service errors.
func instrumented(ctx context.Context, o *options, service, op string, n *scheduler.Notification, fn func(context.Context) error) error {
	var (
		reminderID string
		offset     int
	)
	if n != nil && n.Reminder != nil {
		reminderID = n.Reminder.ID
		offset = n.Offset
	}

	ctx, span := instrumentation.StartServiceSpan(ctx, service, op, instrumentation.ReminderAttrs(reminderID, offset)...)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		o.logger.Warn("email provider call failed",
			logging.Service(service), logging.Operation(op), logging.ReminderID(reminderID), logging.Err(err))
	} else {
		instrumentation.SetSpanSuccess(span)
		o.logger.Debug("email provider call succeeded",
			logging.Service(service), logging.Operation(op), slog.Duration("duration", time.Since(start)))
	}
	o.metrics.RecordExternalOperation(ctx, service, op, status, time.Since(start))

	if err != nil {
		return &reminder.ExternalServiceError{Service: service, Op: op, Err: err}
	}
	return nil
}
