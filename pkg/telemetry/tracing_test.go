package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestWithSpan_Success(t *testing.T) {
	recorder := withRecorder(t)

	err := WithSpan(context.Background(), "skillapi.get_result", func(ctx context.Context) error {
		SetAttributes(ctx, attribute.String("skill.id", "7"))
		return nil
	}, attribute.String("rpc.method", "get_result"))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "skillapi.get_result", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("rpc.method", "get_result"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("skill.id", "7"))
}

func TestWithSpan_Error(t *testing.T) {
	recorder := withRecorder(t)

	boom := errors.New("connection refused")
	err := WithSpan(context.Background(), "skillapi.execute_skill", func(context.Context) error {
		return boom
	})
	assert.Equal(t, boom, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "connection refused", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(Config{SamplerType: "always"}).Description(), "AlwaysOn")
	assert.Contains(t, newSampler(Config{SamplerType: "never"}).Description(), "AlwaysOff")
	assert.Contains(t, newSampler(Config{SamplerType: "ratio", SamplerRatio: 0.5}).Description(), "ParentBased")
	assert.Contains(t, newSampler(Config{SamplerType: "bogus"}).Description(), "AlwaysOn")
}
