package lifecycle

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

	"github.com/teemow/calreminder/internal/instrumentation"
	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/reminder"
	"github.com/teemow/calreminder/internal/store"
)

// CalendarSyncer mirrors reminders as events in an external calendar.
type CalendarSyncer interface {
	CreateEvent(ctx context.Context, r *reminder.Reminder) (eventID string, err error)
	UpdateEvent(ctx context.Context, r *reminder.Reminder) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// Options holds the optional collaborators of a Manager.
type Options struct {
	// Calendar is nil when calendar integration is disabled.
	Calendar CalendarSyncer
	Clock    clock.Clock
	Logger   *slog.Logger
	Metrics  *instrumentation.Metrics
	// Locker serializes store access with other writers in the same process.
	Locker sync.Locker
}

// Manager implements the reminder lifecycle on top of a ReminderStore.
// Every operation reloads the store, so concurrent writers in other
// processes follow last-writer-wins.
type Manager struct {
	reminders store.ReminderStore
	calendar  CalendarSyncer
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	mu        sync.Locker
}

// NewManager creates a Manager.
func NewManager(reminders store.ReminderStore, opts Options) *Manager {
	m := &Manager{
		reminders: reminders,
		calendar:  opts.Calendar,
		clock:     opts.Clock,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		mu:        opts.Locker,
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.mu == nil {
		m.mu = &sync.Mutex{}
	}
	return m
}

// CalendarEnabled reports whether a calendar integration is configured.
func (m *Manager) CalendarEnabled() bool {
	return m.calendar != nil
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.clock.Now()
}

// CreateInput describes a new reminder.
type CreateInput struct {
	Title       string
	Start       time.Time
	Attendees   []string
	Location    string
	Description string
	// MinutesBefore defaults to reminder.DefaultOffsets when empty.
	MinutesBefore []int
	// EmailEnabled defaults to true when nil.
	EmailEnabled *bool
}

// Create validates in and stores a new pending reminder.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*reminder.Reminder, error) {
	now := m.clock.Now()

	event := reminder.EventDetails{
		Title:       in.Title,
		Start:       in.Start,
		Attendees:   in.Attendees,
		Location:    in.Location,
		Description: in.Description,
	}
	if err := reminder.ValidateEvent(&event, now); err != nil {
		return nil, err
	}
	settings := reminder.DefaultNotificationSettings()
	if len(in.MinutesBefore) > 0 {
		offsets, err := reminder.NormalizeOffsets(in.MinutesBefore)
		if err != nil {
			return nil, err
		}
		settings.MinutesBefore = offsets
	}
	if in.EmailEnabled != nil {
		settings.EmailEnabled = *in.EmailEnabled
	}

	r := reminder.New(event, settings, now)

	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	all[r.ID] = r
	if err := m.reminders.SaveAll(ctx, all); err != nil {
		return nil, err
	}

	m.logger.Info("reminder created", logging.ReminderID(r.ID), logging.Operation("create"),
		slog.Time("start", r.Event.Start), slog.Any("minutes_before", r.Notifications.MinutesBefore))
	return r.Clone(), nil
}

// Get returns the reminder with id.
func (m *Manager) Get(ctx context.Context, id string) (*reminder.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	r, ok := all[id]
	if !ok {
		return nil, reminder.NotFound(id)
	}
	return r, nil
}

// ListFilter narrows List results. Nil fields do not filter.
type ListFilter struct {
	// From and To bound the event start, both inclusive.
	From   *time.Time
	To     *time.Time
	Status *reminder.Status
}

// Matches reports whether r passes the filter.
func (f ListFilter) Matches(r *reminder.Reminder) bool {
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.From != nil && r.Event.Start.Before(*f.From) {
		return false
	}
	if f.To != nil && r.Event.Start.After(*f.To) {
		return false
	}
	return true
}

// List returns the reminders matching filter sorted by event start, ties
// broken by id.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]*reminder.Reminder, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, reminder.NewValidationError("end_date", "must not be before start_date")
	}

	m.mu.Lock()
	all, err := m.load(ctx)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]*reminder.Reminder, 0, len(all))
	for _, r := range all {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	SortByStart(out)
	return out, nil
}

// Ping reports whether the reminder store can be read.
func (m *Manager) Ping(ctx context.Context) error {
	_, err := m.reminders.LoadAll(ctx)
	return err
}

// SortByStart orders reminders by event start, ties broken by id.
func SortByStart(rs []*reminder.Reminder) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if !a.Event.Start.Equal(b.Event.Start) {
			return a.Event.Start.Before(b.Event.Start)
		}
		return a.ID < b.ID
	})
}

// UpdateInput lists the fields to change. Nil fields are left untouched.
type UpdateInput struct {
	Title         *string
	Start         *time.Time
	Attendees     *[]string
	Location      *string
	Description   *string
	MinutesBefore *[]int
	EmailEnabled  *bool
	Status        *reminder.Status
}

// UpdateResult is the outcome of Update.
type UpdateResult struct {
	Reminder *reminder.Reminder
	// Warning is set when the local update succeeded but the calendar
	// event could not be updated.
	Warning string
}

// Update applies in to the reminder with id. The local change is saved
// first; a failure to update the calendar event becomes a warning.
func (m *Manager) Update(ctx context.Context, id string, in UpdateInput) (*UpdateResult, error) {
	now := m.clock.Now()

	m.mu.Lock()
	all, err := m.load(ctx)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	r, ok := all[id]
	if !ok {
		m.mu.Unlock()
		return nil, reminder.NotFound(id)
	}
	if err := applyUpdate(r, in, now); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	r.Touch(now)
	err = m.reminders.SaveAll(ctx, all)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	logger := logging.WithReminder(m.logger, id)
	logger.Info("reminder updated", logging.Operation("update"), slog.String("status", r.Status.String()))

	result := &UpdateResult{Reminder: r.Clone()}
	if r.CalendarSynced && r.ExternalEventID != "" {
		if err := m.updateRemote(ctx, r); err != nil {
			result.Warning = fmt.Sprintf("Reminder updated locally but failed to sync to the calendar: %v", err)
			logger.Warn("calendar update failed", logging.Err(err))
		}
	}
	return result, nil
}

func applyUpdate(r *reminder.Reminder, in UpdateInput, now time.Time) error {
	if in.Title != nil {
		title, err := reminder.ValidateTitle(*in.Title)
		if err != nil {
			return err
		}
		r.Event.Title = title
	}
	if in.Start != nil {
		if err := reminder.ValidateStart(*in.Start, now); err != nil {
			return err
		}
		r.Event.Start = *in.Start
	}
	if in.Attendees != nil {
		attendees, err := reminder.NormalizeAttendees(*in.Attendees)
		if err != nil {
			return err
		}
		r.Event.Attendees = attendees
	}
	if in.Location != nil {
		location, err := reminder.ValidateLocation(*in.Location)
		if err != nil {
			return err
		}
		r.Event.Location = location
	}
	if in.Description != nil {
		r.Event.Description = strings.TrimSpace(*in.Description)
	}
	if in.MinutesBefore != nil {
		offsets, err := reminder.NormalizeOffsets(*in.MinutesBefore)
		if err != nil {
			return err
		}
		r.Notifications.MinutesBefore = offsets
	}
	if in.EmailEnabled != nil {
		r.Notifications.EmailEnabled = *in.EmailEnabled
	}
	if in.Status != nil {
		if err := r.Transition(*in.Status, now); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the reminder with id. A calendar-synced reminder is first
// deleted remotely; if that fails the store is left untouched.
func (m *Manager) Delete(ctx context.Context, id string) (*reminder.Reminder, error) {
	m.mu.Lock()
	all, err := m.load(ctx)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	r, ok := all[id]
	if !ok {
		return nil, reminder.NotFound(id)
	}

	if r.CalendarSynced && r.ExternalEventID != "" {
		if err := m.deleteRemote(ctx, r); err != nil {
			logging.WithReminder(m.logger, id).Warn("calendar delete failed, keeping reminder", logging.Err(err))
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	all, err = m.load(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := all[id]; !ok {
		return r, nil
	}
	delete(all, id)
	if err := m.reminders.SaveAll(ctx, all); err != nil {
		return nil, err
	}

	m.logger.Info("reminder deleted", logging.ReminderID(id), logging.Operation("delete"))
	return r, nil
}

// Cancel moves the reminder to cancelled.
func (m *Manager) Cancel(ctx context.Context, id string) (*UpdateResult, error) {
	status := reminder.StatusCancelled
	return m.Update(ctx, id, UpdateInput{Status: &status})
}

// Complete moves a notified reminder to completed.
func (m *Manager) Complete(ctx context.Context, id string) (*UpdateResult, error) {
	status := reminder.StatusCompleted
	return m.Update(ctx, id, UpdateInput{Status: &status})
}

// Sync actions.
const (
	SyncActionCreate = "create"
	SyncActionUpdate = "update"
)

// SyncResult is the outcome of syncing one reminder.
type SyncResult struct {
	ReminderID string `json:"reminder_id"`
	Title      string `json:"title"`
	Action     string `json:"action"`
	Success    bool   `json:"success"`
	EventID    string `json:"event_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SyncReport summarizes a Sync call.
type SyncReport struct {
	Synced  int          `json:"synced"`
	Failed  int          `json:"failed"`
	Results []SyncResult `json:"results"`
}

// Sync mirrors reminders into the calendar. With an id only that reminder
// is synced; otherwise every reminder that is neither synced nor cancelled.
// Unsynced reminders get a new event, synced ones are updated.
func (m *Manager) Sync(ctx context.Context, id string) (*SyncReport, error) {
	if m.calendar == nil {
		return nil, reminder.ErrCalendarDisabled
	}

	m.mu.Lock()
	all, err := m.load(ctx)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var targets []*reminder.Reminder
	if id != "" {
		r, ok := all[id]
		if !ok {
			return nil, reminder.NotFound(id)
		}
		targets = append(targets, r)
	} else {
		for _, r := range all {
			if !r.CalendarSynced && r.Status != reminder.StatusCancelled {
				targets = append(targets, r)
			}
		}
		SortByStart(targets)
	}

	report := &SyncReport{Results: []SyncResult{}}
	created := map[string]string{}
	for _, r := range targets {
		res := SyncResult{ReminderID: r.ID, Title: r.Event.Title}
		var err error
		if r.CalendarSynced && r.ExternalEventID != "" {
			res.Action = SyncActionUpdate
			res.EventID = r.ExternalEventID
			err = m.updateRemote(ctx, r)
		} else {
			res.Action = SyncActionCreate
			var eventID string
			eventID, err = m.createRemote(ctx, r)
			if err == nil {
				res.EventID = eventID
				created[r.ID] = eventID
			}
		}
		if err != nil {
			res.Error = err.Error()
			report.Failed++
			logging.WithReminder(m.logger, r.ID).Warn("calendar sync failed",
				slog.String("action", res.Action), logging.Err(err))
		} else {
			res.Success = true
			report.Synced++
		}
		report.Results = append(report.Results, res)
	}

	if len(created) == 0 {
		return report, nil
	}

	// Record the new event ids on a fresh copy of the store.
	m.mu.Lock()
	defer m.mu.Unlock()
	current, err := m.load(ctx)
	if err != nil {
		return report, err
	}
	now := m.clock.Now()
	for rid, eventID := range created {
		r, ok := current[rid]
		if !ok {
			continue
		}
		r.CalendarSynced = true
		r.ExternalEventID = eventID
		r.Touch(now)
	}
	if err := m.reminders.SaveAll(ctx, current); err != nil {
		return report, err
	}
	return report, nil
}

func (m *Manager) createRemote(ctx context.Context, r *reminder.Reminder) (string, error) {
	eventID, err := m.calendar.CreateEvent(ctx, r.Clone())
	m.recordSync(ctx, instrumentation.OperationCreate, err)
	if err != nil {
		return "", externalError(instrumentation.OperationCreate, err)
	}
	return eventID, nil
}

func (m *Manager) updateRemote(ctx context.Context, r *reminder.Reminder) error {
	if m.calendar == nil {
		return reminder.ErrCalendarDisabled
	}
	err := m.calendar.UpdateEvent(ctx, r.Clone())
	m.recordSync(ctx, instrumentation.OperationUpdate, err)
	if err != nil {
		return externalError(instrumentation.OperationUpdate, err)
	}
	return nil
}

func (m *Manager) deleteRemote(ctx context.Context, r *reminder.Reminder) error {
	if m.calendar == nil {
		return &reminder.ExternalServiceError{
			Service: instrumentation.ServiceCalendar,
			Op:      instrumentation.OperationDelete,
			Err:     reminder.ErrCalendarDisabled,
		}
	}
	err := m.calendar.DeleteEvent(ctx, r.ExternalEventID)
	m.recordSync(ctx, instrumentation.OperationDelete, err)
	if err != nil {
		return externalError(instrumentation.OperationDelete, err)
	}
	return nil
}

func (m *Manager) recordSync(ctx context.Context, action string, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	m.metrics.RecordCalendarSync(ctx, action, status)
}

func externalError(op string, err error) error {
	var ee *reminder.ExternalServiceError
	if errors.As(err, &ee) {
		return err
	}
	return &reminder.ExternalServiceError{Service: instrumentation.ServiceCalendar, Op: op, Err: err}
}

// load returns the stored reminders. Records lost to a decode failure have
// been moved aside by the store, so the rest can be used and saved; a store
// that cannot be read is an error and must not be saved over.
func (m *Manager) load(ctx context.Context) (map[string]*reminder.Reminder, error) {
	all, err := m.reminders.LoadAll(ctx)
	if reminder.IsReadError(err) {
		return nil, err
	}
	if err != nil {
		m.logger.Error("failed to load reminders", logging.Operation("load"), logging.Err(err))
	}
	if all == nil {
		all = map[string]*reminder.Reminder{}
	}
	return all, nil
}
