package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"velocity-hq/loadgate/pkg/config"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func newTestTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	restoreGlobals(t)

	exporter := tracetest.NewInMemoryExporter()
	tracer, err := newWithExporter("loadgate-test", "test", sdktrace.AlwaysSample(), exporter)
	if err != nil {
		t.Fatalf("newWithExporter failed: %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, exporter
}

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false}, "dev")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tracer.Enabled() {
		t.Error("expected tracer to be disabled")
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	span.End()
	if TraceID(ctx) != "" {
		t.Error("expected noop span to carry no trace ID")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil, "dev"); err == nil {
		t.Error("expected error for nil config")
	}

	_, err := New(&config.TracingConfig{Enabled: true, Sampler: "sometimes", Endpoint: "localhost:4317"}, "dev")
	if err == nil {
		t.Error("expected error for unknown sampler")
	}
}

func TestNew_EnabledInstallsGlobals(t *testing.T) {
	restoreGlobals(t)

	tracer, err := New(&config.TracingConfig{
		Enabled:     true,
		Sampler:     "always",
		Endpoint:    "localhost:4317",
		ServiceName: "loadgate",
		Insecure:    true,
	}, "dev")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = tracer.Shutdown(ctx)
	}()

	if !tracer.Enabled() {
		t.Error("expected tracer to be enabled")
	}
	if otel.GetTracerProvider() != trace.TracerProvider(tracer.provider) {
		t.Error("expected global tracer provider to be replaced")
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		sampler  string
		ratio    float64
		wantRoot string
		wantErr  bool
	}{
		{"always", 0, "root:AlwaysOnSampler", false},
		{"never", 0, "root:AlwaysOffSampler", false},
		{"ratio", 0.25, "root:TraceIDRatioBased{0.25}", false},
		{"bogus", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.sampler, func(t *testing.T) {
			s, err := samplerFor(&config.TracingConfig{Sampler: tt.sampler, SampleRatio: tt.ratio})
			if (err != nil) != tt.wantErr {
				t.Fatalf("samplerFor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !strings.Contains(s.Description(), tt.wantRoot) {
				t.Errorf("Description() = %q, want it to contain %q", s.Description(), tt.wantRoot)
			}
		})
	}
}

func TestMiddleware_ContinuesIncomingTrace(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	var innerTraceID string
	handler := tracer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		innerTraceID = TraceID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodPost, "/api/loads", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if innerTraceID != traceID {
		t.Errorf("handler trace ID = %q, want %q", innerTraceID, traceID)
	}
	if got := rec.Header().Get("X-Trace-ID"); got != traceID {
		t.Errorf("X-Trace-ID = %q, want %q", got, traceID)
	}

	if err := tracer.provider.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "POST /api/loads" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if spans[0].SpanKind != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", spans[0].SpanKind)
	}
}

func TestInjectExtractRoundTrip(t *testing.T) {
	tracer, _ := newTestTracer(t)
	ctx, span := tracer.Start(context.Background(), "client")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)
	if headers.Get("traceparent") == "" {
		t.Fatal("expected traceparent header")
	}

	extracted := Extract(context.Background(), headers)
	if TraceID(extracted) != TraceID(ctx) {
		t.Errorf("extracted trace ID %q, want %q", TraceID(extracted), TraceID(ctx))
	}
}

func TestSetStatus(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.Start(context.Background(), "failing")
	SetStatus(span, errors.New("boom"))
	SetHTTPStatus(span, http.StatusServiceUnavailable)
	span.End()

	if err := tracer.provider.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Description != "HTTP 503" {
		t.Errorf("status description = %q", spans[0].Status.Description)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected recorded error event")
	}
}
