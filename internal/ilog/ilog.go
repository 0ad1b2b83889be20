// Package ilog wraps log/slog with a per-connection correlation id, the way
// aladin2907-overhuman's observability logger wraps a persistent agent name
// onto every record.
package ilog

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger is a *slog.Logger bound to a single connection's correlation id.
type Logger struct {
	inner *slog.Logger
	connID string
}

// New creates a Logger writing JSON records to w (defaulting to os.Stderr)
// at the given level, stamping every record with a fresh connection id.
func New(w io.Writer, level *slog.LevelVar) *Logger {
	if w == nil {
		w = os.Stderr
	}
	if level == nil {
		level = new(slog.LevelVar)
	}
	connID := uuid.NewString()
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{
		inner:  slog.New(handler).With("conn_id", connID),
		connID: connID,
	}
}

// Noop returns a Logger that discards every record, used when
// imapretry.NewController or FromSlog is given a nil logger.
func Noop() *Logger {
	return New(io.Discard, nil)
}

// FromSlog wraps a caller-supplied *slog.Logger, stamping a fresh
// connection id onto every record it produces from here on.
func FromSlog(base *slog.Logger) *Logger {
	if base == nil {
		return Noop()
	}
	connID := uuid.NewString()
	return &Logger{inner: base.With("conn_id", connID), connID: connID}
}

// ConnID returns the correlation id stamped on every record from this
// Logger.
func (l *Logger) ConnID() string {
	return l.connID
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// With returns a derived Logger that adds the given key/value pairs to
// every subsequent record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...), connID: l.connID}
}
