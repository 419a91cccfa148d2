package telemetry

import "context"

// contextKey is unexported so keys from other packages cannot collide.
type contextKey string

const (
	HeaderXRequestID = "X-Request-Id"

	contextKeyRequestID contextKey = "request_id"
)

// WithRequestID returns a copy of ctx carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKeyRequestID, id)
}

// RequestIDFromContext returns the request id, or "" when none was attached.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}
