package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	apierrors "gcquality/internal/errors"
)

// RateLimiter is a process-wide token bucket in front of the API
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter allows rps requests per second with bursts of burst
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst), logger: logger}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		rl.logger.WarnContext(r.Context(), "rate limit exceeded",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))
		w.Header().Set("Retry-After", "1")
		writeProblem(w, r, http.StatusTooManyRequests,
			apierrors.TypeRateLimit, "Too Many Requests", "Rate limit exceeded, retry later")
	})
}

// Timeout puts a deadline on the request context. Handlers that notice it
// answer 504 themselves; if nothing was written by the time the handler
// returns, the 504 is written here.
func Timeout(timeout time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}
			logger.ErrorContext(r.Context(), "request timeout",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("timeout", timeout))
			if ww.Status() == 0 {
				writeProblem(w, r, http.StatusGatewayTimeout,
					apierrors.TypeTimeout, "Request Timeout", "The request took too long to process")
			}
		})
	}
}

// RequireContentType answers 415 unless the body's media type is one of
// allowed. GET, HEAD, DELETE and OPTIONS are not checked.
func RequireContentType(allowed ...string) func(http.Handler) http.Handler {
	bodyless := []string{http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(bodyless, r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
				if slices.ContainsFunc(allowed, func(a string) bool { return strings.EqualFold(a, mediaType) }) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeProblem(w, r, http.StatusUnsupportedMediaType,
				apierrors.TypeUnsupportedMedia, "Unsupported Media Type",
				fmt.Sprintf("Content-Type must be one of: %s", strings.Join(allowed, ", ")))
		})
	}
}

// Compress gzips JSON, problem and plain-text responses
func Compress(level int) func(http.Handler) http.Handler {
	return middleware.Compress(level, "application/json", ProblemContentType, "text/plain")
}
