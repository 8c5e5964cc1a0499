package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_NoTracer(t *testing.T) {
	SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "Test.NoTracer")
	defer span.End()

	assert.Nil(t, GetActiveSpan(ctx))
	assert.Empty(t, GetTraceParent(ctx))
	assert.Empty(t, GetTraceID(ctx))
}

func TestStartSpan_WithTracer(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	SetTracer(tp.Tracer("fern-test"))
	defer SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "Test.WithTracer")
	defer span.End()

	assert.NotNil(t, GetActiveSpan(ctx))
	assert.Len(t, GetTraceID(ctx), 32)
	assert.Regexp(t, `^00-[0-9a-f]{32}-[0-9a-f]{16}-0[01]$`, GetTraceParent(ctx))
}

func TestCatalogPath_Attributes(t *testing.T) {
	attrs := CatalogPath{VehicleType: "carros", BrandCode: "21"}.Attributes()
	assert.Equal(t, []attribute.KeyValue{
		attribute.String("catalog.vehicle_type", "carros"),
		attribute.String("catalog.brand_code", "21"),
	}, attrs)
}

func TestStartCatalogSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	SetTracer(tp.Tracer("fern-test"))
	defer SetTracer(nil)

	_, span := StartCatalogSpan(context.Background(), "Syncer.syncModel", CatalogPath{
		VehicleType: "motos",
		BrandCode:   "77",
		ModelCode:   "4040",
	})
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "Syncer.syncModel", ended[0].Name())
	assert.ElementsMatch(t, []attribute.KeyValue{
		attribute.String("catalog.vehicle_type", "motos"),
		attribute.String("catalog.brand_code", "77"),
		attribute.String("catalog.model_code", "4040"),
	}, ended[0].Attributes())
}
