package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"gcquality/internal/infrastructure"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// RequestID must run first. It keeps a client-supplied X-Request-ID or mints
// a UUID, echoes it on the response and stores it both as chi's request ID
// and as the logging trace ID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := infrastructure.WithTraceID(context.WithValue(r.Context(), middleware.RequestIDKey, id), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns chi's request ID, or the trace ID outside RequestID
func GetRequestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return infrastructure.GetTraceID(ctx)
}

// RealIP rewrites RemoteAddr from X-Forwarded-For / X-Real-IP
func RealIP(next http.Handler) http.Handler {
	return middleware.RealIP(next)
}
