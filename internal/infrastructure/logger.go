package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"gcquality/internal/config"
)

// Process-wide logger state used by the web server. The CLIs build their own
// loggers with NewLogger and never touch it.
var (
	loggerMu   sync.Mutex
	appLogger  *slog.Logger
	appLogFile *os.File
)

// InitializeLogger builds the process logger from cfg and makes it the slog
// default. Later calls return the logger built by the first one.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if appLogger != nil {
		return appLogger, nil
	}

	w, file, err := logOutput(cfg)
	if err != nil {
		return nil, err
	}
	appLogger = NewLogger(cfg, w)
	appLogFile = file
	slog.SetDefault(appLogger)
	return appLogger, nil
}

// GetLogger returns the process logger, or slog.Default before
// InitializeLogger has run
func GetLogger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if appLogger == nil {
		return slog.Default()
	}
	return appLogger
}

// NewLogger returns a JSON (or "text") logger on w at the configured level.
// Records logged with a context carry its trace_id.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: cfg.Development,
		Level:     levelFromString(cfg.Level),
	}

	var base slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		base = slog.NewTextHandler(w, opts)
	}
	return slog.New(traceIDHandler{next: base})
}

// logOutput maps Output ("console", "file", "both") to a writer. The file,
// when one is opened, is returned so CloseLogFile can release it.
func logOutput(cfg config.LoggingConfig) (io.Writer, *os.File, error) {
	mode := strings.ToLower(cfg.Output)
	if mode != "file" && mode != "both" {
		return os.Stdout, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory for %s: %w", cfg.FilePath, err)
	}
	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.FilePath, err)
	}

	if mode == "file" {
		return file, file, nil
	}
	return io.MultiWriter(os.Stdout, file), file, nil
}

// traceIDHandler adds trace_id from the context, preferring the request ID
// over the active span
type traceIDHandler struct {
	next slog.Handler
}

func (h traceIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h traceIDHandler) Handle(ctx context.Context, r slog.Record) error {
	switch id := GetTraceID(ctx); {
	case id != "":
		r.AddAttrs(slog.String("trace_id", id))
	default:
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
		}
	}
	return h.next.Handle(ctx, r)
}

func (h traceIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceIDHandler{next: h.next.WithAttrs(attrs)}
}

func (h traceIDHandler) WithGroup(name string) slog.Handler {
	return traceIDHandler{next: h.next.WithGroup(name)}
}

func levelFromString(s string) slog.Level {
	var level slog.Level
	switch strings.ToLower(s) {
	case "warning":
		return slog.LevelWarn
	case "debug", "info", "warn", "error":
		if err := level.UnmarshalText([]byte(s)); err == nil {
			return level
		}
	}
	return slog.LevelInfo
}

// CloseLogFile releases the log file opened by InitializeLogger, if any
func CloseLogFile() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if appLogFile == nil {
		return nil
	}
	err := appLogFile.Close()
	appLogFile = nil
	return err
}

// ResetLoggerForTesting drops the process logger so tests can initialise it
// again
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	loggerMu.Lock()
	appLogger = nil
	loggerMu.Unlock()
}
