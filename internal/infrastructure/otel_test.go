package infrastructure

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"gcquality/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TelemetryConfig
		wantErr bool
		tracing bool
		metrics bool
	}{
		{"metrics only", config.TelemetryConfig{ServiceName: "test", TraceExporter: "none", MetricsEnabled: true}, false, false, true},
		{"stdout tracing", config.TelemetryConfig{ServiceName: "test", TraceExporter: "stdout"}, false, true, false},
		{"unsupported exporter", config.TelemetryConfig{ServiceName: "test", TraceExporter: "zipkin"}, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.Equal(t, tt.tracing, providers.TracerProvider != nil)
			assert.Equal(t, tt.metrics, providers.MeterProvider != nil)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			assert.NoError(t, providers.Shutdown(ctx))
		})
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{ServiceName: "test", TraceExporter: "none", MetricsEnabled: true}, testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := NewAnalysisMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.SamplesProcessed.Add(context.Background(), 3)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gcq_samples_processed")
}

func TestNoopProviders(t *testing.T) {
	providers := NoopProviders(nil)
	metrics, err := NewAnalysisMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RowsDropped.Add(context.Background(), 1)

	_, span := providers.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestRecordErrorAndSpanTraceID(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "analyze")

	var buf bytes.Buffer
	NewLogger(config.LoggingConfig{}, &buf).InfoContext(ctx, "inside span")
	entries := decodeLines(t, buf.Bytes())
	require.Len(t, entries, 1)
	assert.Equal(t, span.SpanContext().TraceID().String(), entries[0]["trace_id"])

	RecordError(ctx, io.ErrUnexpectedEOF)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}
