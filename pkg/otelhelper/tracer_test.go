package otelhelper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_RecordsAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	_, span := StartSpan(context.Background(), tracer, "reconcile", attribute.String(EntityKey, "jordanLee"))
	SetError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	if assert.Len(t, ended, 1) {
		assert.Equal(t, "reconcile", ended[0].Name())
		assert.Contains(t, ended[0].Attributes(), attribute.String(EntityKey, "jordanLee"))
		assert.Equal(t, codes.Error, ended[0].Status().Code)
	}
}

func TestNoop(t *testing.T) {
	_, span := StartSpan(context.Background(), Noop(), "noop")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
}
