package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestMetrics_RecordAll(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t).Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "POST", "/mcp", 200, 100*time.Millisecond)
	metrics.RecordExternalOperation(ctx, ServiceCalendar, OperationCreate, StatusSuccess, 200*time.Millisecond)
	metrics.RecordExternalOperation(ctx, ServiceGmail, OperationSend, StatusError, 50*time.Millisecond)
	metrics.RecordToolInvocation(ctx, "create_reminder", StatusSuccess, 10*time.Millisecond)
	metrics.RecordNotification(ctx, ChannelEmail, StatusSuccess)
	metrics.RecordSchedulerTick(ctx, StatusPartial, time.Second)
	metrics.RecordCalendarSync(ctx, OperationUpdate, StatusError)
}

func TestMetrics_ZeroAndNilAreNoOps(t *testing.T) {
	ctx := context.Background()

	var zero Metrics
	zero.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
	zero.RecordNotification(ctx, ChannelEmail, StatusSuccess)
	zero.RecordSchedulerTick(ctx, StatusSuccess, time.Millisecond)

	var nilMetrics *Metrics
	nilMetrics.RecordToolInvocation(ctx, "get_reminder", StatusSuccess, time.Millisecond)
	nilMetrics.RecordExternalOperation(ctx, ServiceSendGrid, OperationSend, StatusSuccess, time.Millisecond)
	nilMetrics.RecordCalendarSync(ctx, OperationCreate, StatusSuccess)
}
