package instrumentation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewProvider_Disabled(t *testing.T) {
	config := Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	}

	provider, err := NewProvider(context.Background(), config)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}

	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}

	if provider.Tracer("test") == nil {
		t.Error("expected a no-op tracer when disabled")
	}

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_StdoutExporter(t *testing.T) {
	config := Config{
		ServiceName:       "test-service",
		ServiceVersion:    "1.0.0",
		Enabled:           true,
		MetricsExporter:   ExporterStdout,
		TracingExporter:   ExporterStdout,
		TraceSamplingRate: 1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	if !provider.Enabled() {
		t.Error("expected provider to be enabled")
	}

	if provider.Registry() != nil {
		t.Error("expected Registry to be nil for stdout exporter")
	}
}

func TestNewProvider_PrometheusPushesOnShutdown(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path = r.Method, r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
		PushgatewayURL:  gateway.URL,
		PushJob:         "gmailagent-test",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.Registry() == nil {
		t.Fatal("expected Registry to be non-nil for prometheus exporter")
	}

	provider.Metrics().RecordAgentTurn(ctx, "claude-sonnet-4-5", 100, 20)

	if err := provider.Shutdown(ctx); err != nil {
		t.Fatalf("expected no error on shutdown, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Errorf("expected PUT to pushgateway, got %q", method)
	}
	if !strings.Contains(path, "/metrics/job/gmailagent-test") {
		t.Errorf("expected job path, got %q", path)
	}
}

func TestNewProvider_InvalidMetricsExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		ServiceName:     "test-service",
		Enabled:         true,
		MetricsExporter: "invalid",
		TracingExporter: ExporterNone,
	})
	if err == nil {
		t.Error("expected error for invalid metrics exporter")
	}
}

func TestNewProvider_InvalidTracingExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		ServiceName:     "test-service",
		Enabled:         true,
		MetricsExporter: ExporterStdout,
		TracingExporter: "invalid",
	})
	if err == nil {
		t.Error("expected error for invalid tracing exporter")
	}
}

func TestNewProvider_OTLPTracingWithoutEndpoint(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		ServiceName:     "test-service",
		Enabled:         true,
		MetricsExporter: ExporterStdout,
		TracingExporter: ExporterOTLP,
	})
	if err == nil {
		t.Error("expected error for OTLP tracing without endpoint")
	}
}
