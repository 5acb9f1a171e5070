package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/calreminder/internal/instrumentation"
	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/reminder"
	"github.com/teemow/calreminder/internal/store"
)

// Notification is one message the Notifier must deliver.
type Notification struct {
	// Reminder is a copy owned by the notifier for the duration of Send.
	Reminder *reminder.Reminder
	Offset   int
	// Recipients holds de-duplicated addresses. It may be empty, in which
	// case the notifier decides whether to fall back to its own sender.
	Recipients []string
}

// Notifier delivers reminder notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Checker is implemented by notifiers that can verify their transport
// without sending anything.
type Checker interface {
	Check(ctx context.Context) error
}

// Outcome describes one delivery attempt made during a tick.
type Outcome struct {
	ReminderID string `json:"reminder_id"`
	Title      string `json:"title"`
	Offset     int    `json:"minutes_before"`
	Recipients int    `json:"recipients"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// TickReport summarizes one tick.
type TickReport struct {
	StartedAt     time.Time `json:"started_at"`
	Attempted     int       `json:"attempted"`
	Sent          int       `json:"sent"`
	Failed        int       `json:"failed"`
	StatusChanges int       `json:"status_changes"`
	Outcomes      []Outcome `json:"outcomes"`
}

// PendingNotification is a notification that has not been attempted yet.
type PendingNotification struct {
	ReminderID string    `json:"reminder_id"`
	Title      string    `json:"title"`
	EventTime  time.Time `json:"event_datetime"`
	NotifyAt   time.Time `json:"notification_time"`
	Offset     int       `json:"minutes_before"`
	Due        bool      `json:"is_due"`
}

// DispatcherOptions holds the optional collaborators of a Dispatcher.
type DispatcherOptions struct {
	// DefaultRecipient is prepended to every recipient list when set.
	DefaultRecipient string
	Clock            clock.Clock
	Logger           *slog.Logger
	Metrics          *instrumentation.Metrics
	// Locker serializes store access with other writers in the same process.
	Locker sync.Locker
}

// Dispatcher evaluates all reminders and sends the notifications that are due.
type Dispatcher struct {
	reminders        store.ReminderStore
	ledger           store.LedgerStore
	notifier         Notifier
	defaultRecipient string
	clock            clock.Clock
	logger           *slog.Logger
	metrics          *instrumentation.Metrics
	mu               sync.Locker
}

// NewDispatcher creates a Dispatcher over the given collections.
func NewDispatcher(reminders store.ReminderStore, ledger store.LedgerStore, notifier Notifier, opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		reminders:        reminders,
		ledger:           ledger,
		notifier:         notifier,
		defaultRecipient: strings.TrimSpace(opts.DefaultRecipient),
		clock:            opts.Clock,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
		mu:               opts.Locker,
	}
	if d.clock == nil {
		d.clock = clock.New()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.mu == nil {
		d.mu = &sync.Mutex{}
	}
	return d
}

// Notifier returns the notifier used for delivery.
func (d *Dispatcher) Notifier() Notifier {
	return d.notifier
}

// Tick runs one dispatch cycle. Send failures are recorded in the ledger and
// the report; the returned error is reserved for failures to read or persist
// state. A tick whose reminders or ledger cannot be read sends nothing.
func (d *Dispatcher) Tick(ctx context.Context) (*TickReport, error) {
	start := d.clock.Now()
	ctx, span := instrumentation.StartSpan(ctx, "scheduler.tick")
	defer span.End()

	report, err := d.tick(ctx, start)

	status := instrumentation.StatusSuccess
	switch {
	case err != nil:
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	case report.Failed > 0:
		status = instrumentation.StatusPartial
	default:
		instrumentation.SetSpanSuccess(span)
	}
	span.SetAttributes(
		attribute.Int(instrumentation.SpanAttrDue, report.Attempted),
		attribute.Int(instrumentation.SpanAttrSent, report.Sent),
		attribute.Int(instrumentation.SpanAttrFailed, report.Failed),
	)
	d.metrics.RecordSchedulerTick(ctx, status, d.clock.Now().Sub(start))

	if report.Attempted > 0 || err != nil {
		d.logger.Info("scheduler tick completed",
			logging.Status(status),
			slog.Int("attempted", report.Attempted),
			slog.Int("sent", report.Sent),
			slog.Int("failed", report.Failed),
			slog.Int("status_changes", report.StatusChanges),
			slog.String("trace_id", instrumentation.GetTraceID(ctx)),
			logging.Err(err))
	}
	return report, err
}

func (d *Dispatcher) tick(ctx context.Context, now time.Time) (*TickReport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	report := &TickReport{StartedAt: now, Outcomes: []Outcome{}}

	// Without a readable ledger every past offset would look unsent, and
	// saving would overwrite the history, so the tick is skipped.
	reminders, err := d.loadReminders(ctx)
	if err != nil {
		return report, err
	}
	ledger, err := d.loadLedger(ctx)
	if err != nil {
		return report, err
	}

	changed := make(map[string]bool)
	for _, id := range sortedIDs(reminders) {
		if ctx.Err() != nil {
			d.logger.Warn("scheduler tick interrupted", logging.Err(ctx.Err()))
			break
		}
		r := reminders[id]
		for _, due := range DueNotifications(now, r, ledger) {
			outcome := d.dispatch(ctx, r, due, ledger)
			report.Outcomes = append(report.Outcomes, outcome)
			report.Attempted++
			if !outcome.Success {
				report.Failed++
				continue
			}
			report.Sent++
			if r.Status == reminder.StatusPending {
				if err := r.Transition(reminder.StatusNotified, d.clock.Now()); err == nil {
					changed[id] = true
				}
			}
		}
	}

	if report.Attempted == 0 {
		return report, nil
	}

	// Persist even when the tick was interrupted so recorded attempts are
	// never repeated.
	saveCtx := context.WithoutCancel(ctx)
	var errs []error
	if err := d.ledger.SaveAll(saveCtx, ledger); err != nil {
		errs = append(errs, err)
	}
	if len(changed) > 0 {
		n, err := d.saveStatusChanges(saveCtx, reminders, changed)
		report.StatusChanges = n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

func (d *Dispatcher) dispatch(ctx context.Context, r *reminder.Reminder, due Scheduled, ledger reminder.Ledger) Outcome {
	recipients := d.recipients(r)
	logger := logging.WithReminder(d.logger, r.ID).With(logging.Offset(due.Offset))

	err := d.send(ctx, Notification{Reminder: r.Clone(), Offset: due.Offset, Recipients: recipients})

	entry := reminder.NotificationLogEntry{
		ReminderID:       r.ID,
		NotificationTime: due.NotifyAt,
		MinutesBefore:    due.Offset,
		SentAt:           d.clock.Now(),
		Success:          err == nil,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	ledger.Record(entry)

	outcome := Outcome{
		ReminderID: r.ID,
		Title:      r.Event.Title,
		Offset:     due.Offset,
		Recipients: len(recipients),
		Success:    err == nil,
		Error:      entry.ErrorMessage,
	}

	if err != nil {
		d.metrics.RecordNotification(ctx, instrumentation.ChannelEmail, instrumentation.StatusError)
		logger.Warn("failed to send notification", logging.Recipients(recipients), logging.Err(err))
		return outcome
	}
	d.metrics.RecordNotification(ctx, instrumentation.ChannelEmail, instrumentation.StatusSuccess)
	logger.Info("notification sent", logging.Recipients(recipients))
	return outcome
}

// send calls the notifier, turning a panic into an error so one bad
// reminder cannot abort the tick.
func (d *Dispatcher) send(ctx context.Context, n Notification) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("notifier panicked: %v", p)
		}
	}()
	if d.notifier == nil {
		return errors.New("no notifier configured")
	}
	return d.notifier.Send(ctx, n)
}

// recipients returns the default recipient followed by the attendees,
// de-duplicated case-insensitively in first-seen order.
func (d *Dispatcher) recipients(r *reminder.Reminder) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(r.Event.Attendees)+1)
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, addr)
	}
	add(d.defaultRecipient)
	for _, a := range r.Event.Attendees {
		add(a)
	}
	return out
}

// saveStatusChanges reloads the store and applies the pending→notified
// transitions of this tick to records that are still pending there, so
// edits made since the tick started survive. It returns the number of
// transitions written.
func (d *Dispatcher) saveStatusChanges(ctx context.Context, snapshot map[string]*reminder.Reminder, changed map[string]bool) (int, error) {
	current, err := d.reminders.LoadAll(ctx)
	if err != nil {
		d.logger.Warn("failed to reload reminders before saving, writing tick snapshot",
			logging.Operation("save_status"), logging.Err(err))
		current = snapshot
	}

	applied := 0
	for id := range changed {
		r, ok := current[id]
		if !ok {
			continue
		}
		if r.Status == reminder.StatusPending {
			r.Status = reminder.StatusNotified
			r.UpdatedAt = snapshot[id].UpdatedAt
			applied++
		}
	}
	if applied == 0 {
		return 0, nil
	}
	if err := d.reminders.SaveAll(ctx, current); err != nil {
		return 0, err
	}
	return applied, nil
}

// PendingNotifications returns every notification not attempted yet, sorted
// by the time it becomes due.
func (d *Dispatcher) PendingNotifications(ctx context.Context) ([]PendingNotification, error) {
	now := d.clock.Now()

	d.mu.Lock()
	reminders, err := d.loadReminders(ctx)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	ledger, err := d.loadLedger(ctx)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pending := []PendingNotification{}
	for _, r := range reminders {
		for _, s := range Upcoming(now, r, ledger) {
			pending = append(pending, PendingNotification{
				ReminderID: r.ID,
				Title:      r.Event.Title,
				EventTime:  r.Event.Start,
				NotifyAt:   s.NotifyAt,
				Offset:     s.Offset,
				Due:        s.Due,
			})
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if !a.NotifyAt.Equal(b.NotifyAt) {
			return a.NotifyAt.Before(b.NotifyAt)
		}
		if a.ReminderID != b.ReminderID {
			return a.ReminderID < b.ReminderID
		}
		return a.Offset < b.Offset
	})
	return pending, nil
}

// CheckNotifier verifies the notifier transport when it supports it.
func (d *Dispatcher) CheckNotifier(ctx context.Context) error {
	checker, ok := d.notifier.(Checker)
	if !ok {
		return nil
	}
	return checker.Check(ctx)
}

// loadReminders returns the stored reminders. Decode failures are logged
// and the recovered records returned; an unreadable store is an error.
func (d *Dispatcher) loadReminders(ctx context.Context) (map[string]*reminder.Reminder, error) {
	reminders, err := d.reminders.LoadAll(ctx)
	if reminder.IsReadError(err) {
		d.logger.Error("cannot read reminders, skipping", logging.Operation("load"), logging.Err(err))
		return nil, err
	}
	if err != nil {
		d.logger.Error("failed to load reminders", logging.Operation("load"), logging.Err(err))
	}
	if reminders == nil {
		reminders = map[string]*reminder.Reminder{}
	}
	return reminders, nil
}

func (d *Dispatcher) loadLedger(ctx context.Context) (reminder.Ledger, error) {
	entries, err := d.ledger.LoadAll(ctx)
	if reminder.IsReadError(err) {
		d.logger.Error("cannot read notification log, skipping", logging.Operation("load"), logging.Err(err))
		return nil, err
	}
	if err != nil {
		d.logger.Error("failed to load notification log", logging.Operation("load"), logging.Err(err))
	}
	if entries == nil {
		entries = map[string]reminder.NotificationLogEntry{}
	}
	return reminder.Ledger(entries), nil
}

func sortedIDs(reminders map[string]*reminder.Reminder) []string {
	ids := make([]string, 0, len(reminders))
	for id := range reminders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
