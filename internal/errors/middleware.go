package errors

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	// JSON bodies up to this size are buffered so failed requests can be logged
	maxCapturedBody = 1 << 20
	// logged bodies are cut to this many bytes
	maxLoggedBody = 500
)

// ErrorMiddleware writes one access log line per API request, including a
// summary of the JSON body for 4xx/5xx answers, and turns panics into a 500
// problem.
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		body := captureJSONBody(r)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		m.serve(next, ww, r)

		status := ww.Status()
		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.Int("bytes", ww.BytesWritten()),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		}
		if q := r.URL.RawQuery; q != "" {
			attrs = append(attrs, slog.String("query", q))
		}
		if status >= http.StatusBadRequest && len(body) > 0 {
			attrs = append(attrs, slog.String("request_body", truncate(summarizeRequestBody(body), maxLoggedBody)))
		}
		m.logger.LogAttrs(r.Context(), levelForStatus(status), "http request", attrs...)
	})
}

func (m *ErrorMiddleware) serve(next http.Handler, w middleware.WrapResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			m.handler.HandlePanic(w, r, rec)
		}
	}()
	next.ServeHTTP(w, r)
}

// captureJSONBody reads and restores small JSON bodies. Multipart uploads are
// left untouched.
func captureJSONBody(r *http.Request) []byte {
	if r.Body == nil || r.ContentLength <= 0 || r.ContentLength >= maxCapturedBody {
		return nil
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return nil
	}
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// summarizeRequestBody collapses the peak and sample arrays of an analysis
// request to their length
func summarizeRequestBody(body []byte) string {
	var data map[string]any
	if json.Unmarshal(body, &data) != nil {
		return string(body)
	}
	for _, key := range []string{"peaks", "samples"} {
		if list, ok := data[key].([]any); ok {
			data[key] = map[string]int{"count": len(list)}
		}
	}
	out, err := json.Marshal(data)
	if err != nil {
		return string(body)
	}
	return string(out)
}

// RecoveryMiddleware answers panics with a 500 problem, for routes outside
// ErrorMiddleware
func RecoveryMiddleware(handler *ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					handler.HandlePanic(w, r, rec)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
