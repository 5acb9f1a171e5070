package instrumentation

import (
	"context"
	"testing"
	"time"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		ServiceName: "test-service",
		Enabled:     false,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}
	if provider.ServesPrometheus() {
		t.Error("disabled provider should not serve prometheus")
	}
	if provider.Tracer("test") == nil {
		t.Error("expected a no-op tracer")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_PrometheusExporter(t *testing.T) {
	provider := newTestProvider(t)
	if !provider.Enabled() {
		t.Error("expected provider to be enabled")
	}
	if !provider.ServesPrometheus() {
		t.Error("expected prometheus exporter to be active")
	}
	if provider.Config().ServiceName != "test-service" {
		t.Errorf("unexpected config %+v", provider.Config())
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		name   string
		config Config
	}{
		{"unknown metrics exporter", Config{Enabled: true, MetricsExporter: "graphite"}},
		{"unknown tracing exporter", Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: "zipkin"}},
		{"otlp without endpoint", Config{Enabled: true, MetricsExporter: ExporterOTLP}},
		{"sampling out of range", Config{Enabled: true, TraceSamplingRate: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProvider(ctx, tt.config); err == nil {
				t.Error("expected error")
			}
		})
	}
}
