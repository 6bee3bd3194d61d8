package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithoutDSNIsNoop(t *testing.T) {
	shutdown, err := Init(Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestStartSpanPropagatesThroughContext(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "Orchestrator.Run", SpanAttributes{
		RunID:     "run-1",
		Operation: "ingest_batch",
	})
	defer parent.End()

	parentSpan := sentry.SpanFromContext(ctx)
	require.NotNil(t, parentSpan)
	assert.Equal(t, "run-1", parentSpan.Tags["run_id"])

	childCtx, child := StartSpan(ctx, "Orchestrator.ProcessDocument", SpanAttributes{
		Source: "/tmp/a.pdf",
	})
	defer child.End()

	childSpan := sentry.SpanFromContext(childCtx)
	require.NotNil(t, childSpan)
	assert.Equal(t, parentSpan.TraceID, childSpan.TraceID)
	assert.Equal(t, parentSpan.SpanID, childSpan.ParentSpanID)
}

func TestSpanSetAttributesAfterStart(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "Orchestrator.ProcessDocument", SpanAttributes{
		Source: "/tmp/a.pdf",
	})
	defer span.End()

	span.SetAttributes(SpanAttributes{DocumentID: "doc-1"})

	inner := sentry.SpanFromContext(ctx)
	require.NotNil(t, inner)
	assert.Equal(t, "doc-1", inner.Tags["document_id"])
}

func TestSpanSetErrorWithoutClientDoesNotPanic(t *testing.T) {
	_, span := StartSpan(context.Background(), "Orchestrator.EmbedChunk", SpanAttributes{})
	span.SetError(errors.New("boom"))
	span.End()

	CaptureError(context.Background(), errors.New("boom"))
}
