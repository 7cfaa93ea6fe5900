package tracer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func TestInitTracer_NoEndpoint(t *testing.T) {
	before := otel.GetTracerProvider()

	tp := InitTracer("newsroom-test", "", zap.NewNop())
	require.NotNil(t, tp)
	assert.Equal(t, before, otel.GetTracerProvider(), "global provider must stay untouched without an endpoint")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestInitTracer_WithEndpoint(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	tp := InitTracer("newsroom-test", "127.0.0.1:4317", zap.NewNop())
	require.NotNil(t, tp)
	assert.Same(t, tp, otel.GetTracerProvider())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tp.Shutdown(ctx)
}
