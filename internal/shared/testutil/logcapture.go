package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured record with its attributes flattened. Grouped
// keys appear as "group.key".
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that keeps every record in memory. Loggers
// derived with With or WithGroup share the parent's records.
type LogCapture struct {
	mu      *sync.Mutex
	records *[]LogRecord
	attrs   map[string]any
	group   string
	t       *testing.T
}

// NewTestLogger returns a logger that records into the returned capture and
// mirrors each record to t.Log
func NewTestLogger(t *testing.T) (*slog.Logger, *LogCapture) {
	c := &LogCapture{mu: &sync.Mutex{}, records: &[]LogRecord{}, attrs: map[string]any{}, t: t}
	return slog.New(c), c
}

func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(c.attrs)+r.NumAttrs())
	for k, v := range c.attrs {
		attrs[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[c.group+a.Key] = a.Value.Any()
		return true
	})

	c.mu.Lock()
	*c.records = append(*c.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	c.mu.Unlock()

	if c.t != nil {
		c.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *c
	next.attrs = make(map[string]any, len(c.attrs)+len(attrs))
	for k, v := range c.attrs {
		next.attrs[k] = v
	}
	for _, a := range attrs {
		next.attrs[c.group+a.Key] = a.Value.Any()
	}
	return &next
}

func (c *LogCapture) WithGroup(name string) slog.Handler {
	next := *c
	next.group = c.group + name + "."
	return &next
}

func (c *LogCapture) snapshot() []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LogRecord(nil), *c.records...)
}

// Count is the number of records captured so far
func (c *LogCapture) Count() int {
	return len(c.snapshot())
}

func (c *LogCapture) GetRecordsByLevel(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range c.snapshot() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// ContainsMessage reports whether any record's message contains substr
func (c *LogCapture) ContainsMessage(substr string) bool {
	for _, r := range c.snapshot() {
		if strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any record has key set to value. Integer
// attributes are captured as int64.
func (c *LogCapture) ContainsAttr(key string, value any) bool {
	for _, r := range c.snapshot() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}
