package observability

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		Tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "AlwaysOnSampler"},
		{2.5, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		assert.True(t, strings.HasPrefix(samplerFor(tt.ratio).Description(), "ParentBased{root:"+tt.want),
			"ratio %v: %s", tt.ratio, samplerFor(tt.ratio).Description())
	}
}

func TestInitTracing(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "snapverse-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, err = InitTracing(TracingConfig{ServiceName: "snapverse-test", Enabled: true, Exporter: "zipkin"})
	assert.ErrorContains(t, err, `unknown tracing exporter "zipkin"`)

	_, err = InitTracing(TracingConfig{ServiceName: "snapverse-test", Enabled: true, Exporter: "otlp"})
	assert.ErrorContains(t, err, "TRACING_OTLP_ENDPOINT")
}

func TestStartSpan_EndSpanRecordsErrors(t *testing.T) {
	rec := useRecorder(t)

	_, span := StartSpan(context.Background(), "FollowService", "RequestFollow")
	EndSpan(span, nil)
	_, span = StartClientSpan(context.Background(), "sslcommerz", "create_session")
	EndSpan(span, errors.New("gateway down"))

	ended := rec.Ended()
	require.Len(t, ended, 2)

	assert.Equal(t, "FollowService.RequestFollow", ended[0].Name())
	assert.Equal(t, trace.SpanKindInternal, ended[0].SpanKind())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)

	assert.Equal(t, "sslcommerz.create_session", ended[1].Name())
	assert.Equal(t, trace.SpanKindClient, ended[1].SpanKind())
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "gateway down", ended[1].Status().Description)
	require.Len(t, ended[1].Events(), 1)
	assert.Equal(t, "exception", ended[1].Events()[0].Name)
}
