package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/calreminder/internal/instrumentation"
	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/reminder"
)

// Client wraps the Google Calendar service for one calendar.
type Client struct {
	svc        *gcal.Service
	calendarID string
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	api     []option.ClientOption
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// WithHTTPClient sets the authorized HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.api = append(o.api, option.WithHTTPClient(c)) }
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(url string) Option {
	return func(o *clientOptions) { o.api = append(o.api, option.WithEndpoint(url)) }
}

// WithMetrics records API calls.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// NewClient creates a client for calendarID.
func NewClient(ctx context.Context, calendarID string, opts ...Option) (*Client, error) {
	if calendarID == "" {
		return nil, errors.New("calendar id is required")
	}
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	svc, err := gcal.NewService(ctx, o.api...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:        svc,
		calendarID: calendarID,
		metrics:    o.metrics,
		logger:     logging.WithService(o.logger, instrumentation.ServiceCalendar),
	}, nil
}

// CalendarID returns the calendar events are written to.
func (c *Client) CalendarID() string {
	return c.calendarID
}

// CreateEvent inserts an event for r and returns its id.
func (c *Client) CreateEvent(ctx context.Context, r *reminder.Reminder) (string, error) {
	var id string
	err := c.call(ctx, instrumentation.OperationCreate, r.ID, func(ctx context.Context) error {
		created, err := c.svc.Events.Insert(c.calendarID, toEvent(r)).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = created.Id
		return nil
	})
	return id, err
}

// UpdateEvent overwrites the event mirrored from r.
func (c *Client) UpdateEvent(ctx context.Context, r *reminder.Reminder) error {
	if r.ExternalEventID == "" {
		return c.wrap(instrumentation.OperationUpdate, errors.New("reminder is not synced with the calendar"))
	}
	return c.call(ctx, instrumentation.OperationUpdate, r.ID, func(ctx context.Context) error {
		_, err := c.svc.Events.Update(c.calendarID, r.ExternalEventID, toEvent(r)).Context(ctx).Do()
		return err
	})
}

// DeleteEvent deletes an event. An event that is already gone counts as
// deleted.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	return c.call(ctx, instrumentation.OperationDelete, "", func(ctx context.Context) error {
		err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
		if isGone(err) {
			c.logger.Info("calendar event already deleted", slog.String("event_id", eventID))
			return nil
		}
		return err
	})
}

// Check verifies that the calendar is reachable with the current credentials.
func (c *Client) Check(ctx context.Context) error {
	if _, err := c.svc.Calendars.Get(c.calendarID).Context(ctx).Do(); err != nil {
		return c.wrap("check", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, op, reminderID string, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartServiceSpan(ctx, instrumentation.ServiceCalendar, op,
		attribute.String(instrumentation.SpanAttrReminderID, reminderID))
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		c.logger.Warn("calendar operation failed", logging.Operation(op), logging.ReminderID(reminderID), logging.Err(err))
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordExternalOperation(ctx, instrumentation.ServiceCalendar, op, status, time.Since(start))

	if err != nil {
		return c.wrap(op, err)
	}
	return nil
}

func (c *Client) wrap(op string, err error) error {
	return &reminder.ExternalServiceError{Service: instrumentation.ServiceCalendar, Op: op, Err: err}
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusGone || apiErr.Code == http.StatusNotFound
	}
	return false
}
