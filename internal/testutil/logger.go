// Package testutil holds doubles shared by the package tests
package testutil

import (
	"context"
	"strings"
	"sync"

	"alarm-relay/internal/common/logging"
)

// LogEntry is one captured log call
type LogEntry struct {
	Level  logging.LogLevel
	Msg    string
	Err    error
	Fields map[string]interface{}
}

// RecordingLogger implements logging.Logger and keeps every entry in memory.
// Loggers derived with WithFields share the parent's entry list.
type RecordingLogger struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	fields  []logging.Field
}

// NewRecordingLogger creates an empty recorder
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{
		mu:      &sync.Mutex{},
		entries: &[]LogEntry{},
	}
}

func (r *RecordingLogger) record(level logging.LogLevel, msg string, err error, fields []logging.Field) {
	merged := make(map[string]interface{}, len(r.fields)+len(fields))
	for _, f := range r.fields {
		merged[f.Key] = f.Value
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, LogEntry{Level: level, Msg: msg, Err: err, Fields: merged})
}

func (r *RecordingLogger) Debug(msg string, fields ...logging.Field) {
	r.record(logging.DebugLevel, msg, nil, fields)
}

func (r *RecordingLogger) Info(msg string, fields ...logging.Field) {
	r.record(logging.InfoLevel, msg, nil, fields)
}

func (r *RecordingLogger) Warn(msg string, fields ...logging.Field) {
	r.record(logging.WarnLevel, msg, nil, fields)
}

func (r *RecordingLogger) Error(msg string, err error, fields ...logging.Field) {
	r.record(logging.ErrorLevel, msg, err, fields)
}

func (r *RecordingLogger) WithFields(fields ...logging.Field) logging.Logger {
	child := &RecordingLogger{mu: r.mu, entries: r.entries}
	child.fields = append(append(child.fields, r.fields...), fields...)
	return child
}

// WithContext adds the event id and adapter found in ctx, like the zap logger
func (r *RecordingLogger) WithContext(ctx context.Context) logging.Logger {
	if ctx == nil {
		return r
	}
	var fields []logging.Field
	if id, ok := ctx.Value(logging.EventIDKey).(string); ok {
		fields = append(fields, logging.String("event_id", id))
	}
	if adapter, ok := ctx.Value(logging.AdapterKey).(string); ok {
		fields = append(fields, logging.String("adapter", adapter))
	}
	if len(fields) == 0 {
		return r
	}
	return r.WithFields(fields...)
}

// Entries returns a copy of everything logged so far
func (r *RecordingLogger) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// AtLevel returns the entries logged at level
func (r *RecordingLogger) AtLevel(level logging.LogLevel) []LogEntry {
	var out []LogEntry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the first entry at level whose message contains substr
func (r *RecordingLogger) Find(level logging.LogLevel, substr string) (LogEntry, bool) {
	for _, e := range r.AtLevel(level) {
		if strings.Contains(e.Msg, substr) {
			return e, true
		}
	}
	return LogEntry{}, false
}

// Has reports whether an entry at level contains substr
func (r *RecordingLogger) Has(level logging.LogLevel, substr string) bool {
	_, ok := r.Find(level, substr)
	return ok
}

// Reset drops all captured entries
func (r *RecordingLogger) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = nil
}
