package journal

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// TraceInfo holds the OTel identifiers extracted from a context.
type TraceInfo struct {
	TraceID string
	SpanID  string
}

// ExtractTraceInfo reads the active span from ctx. Both fields are empty
// when no span is recording (tracing disabled, unit tests).
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// NewEntry builds an entry stamped with the trace of ctx. details is
// marshalled to the Payload column; nil leaves it empty.
func NewEntry(ctx context.Context, txnID string, event Event, path, reason string, details map[string]string) *Entry {
	ti := ExtractTraceInfo(ctx)

	payload := ""
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			payload = string(b)
		}
	}

	return &Entry{
		TxnID:   txnID,
		Event:   event,
		Path:    path,
		Reason:  reason,
		Payload: payload,
		TraceID: ti.TraceID,
		SpanID:  ti.SpanID,
		At:      time.Now().UTC(),
	}
}
