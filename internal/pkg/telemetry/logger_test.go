package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestContextHandler_AddsRequestAndTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = WithRequestID(ctx, "req-1")

	logger.InfoContext(ctx, "payment validated", "txn_id", "SF1")

	rec := decodeLine(t, &buf)
	assert.Equal(t, "payment validated", rec["msg"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", rec["span_id"])
	assert.Equal(t, "SF1", rec["txn_id"])
}

func TestContextHandler_WithAttrsKeepsDecoration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug").With("component", "reconciler")

	logger.DebugContext(WithRequestID(context.Background(), "req-2"), "ipn received")

	rec := decodeLine(t, &buf)
	assert.Equal(t, "reconciler", rec["component"])
	assert.Equal(t, "req-2", rec["request_id"])
	assert.NotContains(t, rec, "trace_id")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestRequestIDFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Equal(t, ctx, WithRequestID(ctx, ""))
	assert.Equal(t, "abc", RequestIDFromContext(WithRequestID(ctx, "abc")))
}
