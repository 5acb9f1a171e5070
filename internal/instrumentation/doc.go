// Package instrumentation provides OpenTelemetry metrics and tracing for
// calreminder.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// External Service Metrics:
//   - external_api_operations_total: Counter of calendar/email provider calls by service, operation, status
//   - external_api_operation_duration_seconds: Histogram of those calls
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// Reminder Metrics:
//   - reminder_notifications_total: Counter of notification attempts by channel and status
//   - scheduler_ticks_total: Counter of dispatch ticks by status
//   - scheduler_tick_duration_seconds: Histogram of tick durations
//   - calendar_sync_total: Counter of calendar sync attempts by action and status
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>), dispatch ticks
// (scheduler.tick) and external calls (<service>.<operation>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: calreminder)
//   - AUDIT_LOGGING_ENABLED: Tool invocation audit log (default: true)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordNotification(ctx, instrumentation.ChannelEmail, instrumentation.StatusSuccess)
//
// All Record* methods are safe on a nil or zero Metrics value.
package instrumentation
