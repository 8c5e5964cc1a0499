package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_UnsupportedProtocol(t *testing.T) {
	_, err := Setup(context.Background(), Config{ServiceName: "fern", Endpoint: "localhost:4317", Protocol: "udp"})
	assert.ErrorContains(t, err, "unsupported OTLP protocol: udp")
}

func TestSetup_HTTPInstallsTracer(t *testing.T) {
	provider, err := Setup(context.Background(), Config{
		ServiceName:    "fern",
		ServiceVersion: "1.2.3",
		Endpoint:       "localhost:4318",
		Protocol:       "http",
		Insecure:       true,
	})
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "Sync.Run")
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotNil(t, GetActiveSpan(ctx))
	span.End()

	// no collector is listening, so the final export is cut short
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = provider.Shutdown(shutdownCtx)

	ctx, span = StartSpan(context.Background(), "Sync.AfterShutdown")
	defer span.End()
	assert.Empty(t, GetTraceID(ctx))
}

func TestProvider_ShutdownNil(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}
