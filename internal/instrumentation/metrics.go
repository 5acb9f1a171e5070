package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrTool      = "tool"
	attrChannel   = "channel"
	attrAction    = "action"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a valid no-op recorder.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// External service metrics (Google APIs, SendGrid)
	externalOperationsTotal   metric.Int64Counter
	externalOperationDuration metric.Float64Histogram

	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Reminder metrics
	notificationsTotal  metric.Int64Counter
	schedulerTicksTotal metric.Int64Counter
	schedulerTickTime   metric.Float64Histogram
	calendarSyncTotal   metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.externalOperationsTotal, err = meter.Int64Counter(
		"external_api_operations_total",
		metric.WithDescription("Total number of calendar and email provider operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create external_api_operations_total counter: %w", err)
	}

	m.externalOperationDuration, err = meter.Float64Histogram(
		"external_api_operation_duration_seconds",
		metric.WithDescription("Calendar and email provider operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create external_api_operation_duration_seconds histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	m.notificationsTotal, err = meter.Int64Counter(
		"reminder_notifications_total",
		metric.WithDescription("Total number of reminder notification attempts"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder_notifications_total counter: %w", err)
	}

	m.schedulerTicksTotal, err = meter.Int64Counter(
		"scheduler_ticks_total",
		metric.WithDescription("Total number of dispatch loop ticks"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler_ticks_total counter: %w", err)
	}

	m.schedulerTickTime, err = meter.Float64Histogram(
		"scheduler_tick_duration_seconds",
		metric.WithDescription("Dispatch loop tick duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0, 300.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler_tick_duration_seconds histogram: %w", err)
	}

	m.calendarSyncTotal, err = meter.Int64Counter(
		"calendar_sync_total",
		metric.WithDescription("Total number of reminder to calendar sync attempts"),
		metric.WithUnit("{sync}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_sync_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordExternalOperation records a call to an external service.
//
// Parameters:
//   - service: calendar, gmail or sendgrid
//   - operation: create, update, delete, send
//   - status: "success" or "error"
func (m *Metrics) RecordExternalOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.externalOperationsTotal == nil || m.externalOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.externalOperationsTotal.Add(ctx, 1, attrs)
	m.externalOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordNotification records one notification attempt on a channel.
func (m *Metrics) RecordNotification(ctx context.Context, channel, status string) {
	if m == nil || m.notificationsTotal == nil {
		return
	}

	m.notificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrChannel, channel),
		attribute.String(attrStatus, status),
	))
}

// RecordSchedulerTick records a finished dispatch tick.
func (m *Metrics) RecordSchedulerTick(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.schedulerTicksTotal == nil || m.schedulerTickTime == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.schedulerTicksTotal.Add(ctx, 1, attrs)
	m.schedulerTickTime.Record(ctx, duration.Seconds(), attrs)
}

// RecordCalendarSync records a sync attempt. action is create or update.
func (m *Metrics) RecordCalendarSync(ctx context.Context, action, status string) {
	if m == nil || m.calendarSyncTotal == nil {
		return
	}

	m.calendarSyncTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrAction, action),
		attribute.String(attrStatus, status),
	))
}
