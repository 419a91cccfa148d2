package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/subfusion/checkout/internal/pkg/telemetry"
)

// AttachRequestID copies chi's request id into the context key read by the
// logger and echoes it back to the caller. It must run after
// middleware.RequestID.
func AttachRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set(telemetry.HeaderXRequestID, requestID)
		}
		ctx := telemetry.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
