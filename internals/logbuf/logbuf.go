// Package logbuf buffers per-request log entries so a request can be
// emitted as a single structured record when it finishes.
package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

type Entry struct {
	Level   string
	Message string
	At      time.Time
	Attrs   []slog.Attr
}

type Logger struct {
	mu    sync.Mutex
	attrs []slog.Attr
	buf   *buffer
}

type buffer struct {
	mu      sync.Mutex
	entries []Entry
}

func New(attrs ...slog.Attr) *Logger {
	return &Logger{attrs: attrs}
}

// With returns a child logger sharing the parent's entry buffer.
func (l *Logger) With(attrs ...slog.Attr) *Logger {
	if len(attrs) == 0 {
		return l
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf == nil {
		l.buf = &buffer{}
	}
	child := &Logger{buf: l.buf}
	child.attrs = append(child.attrs, l.attrs...)
	child.attrs = append(child.attrs, attrs...)
	return child
}

func (l *Logger) Add(attrs ...slog.Attr) {
	if len(attrs) == 0 {
		return
	}
	l.mu.Lock()
	l.attrs = append(l.attrs, attrs...)
	l.mu.Unlock()
}

func (l *Logger) Debug(message string, attrs ...slog.Attr) error {
	l.appendEntry("debug", message, attrs...)
	return nil
}

func (l *Logger) Info(message string, attrs ...slog.Attr) error {
	l.appendEntry("info", message, attrs...)
	return nil
}

func (l *Logger) Warn(message string, attrs ...slog.Attr) error {
	l.appendEntry("warn", message, attrs...)
	return nil
}

func (l *Logger) Error(message string, attrs ...slog.Attr) error {
	l.appendEntry("error", message, attrs...)
	return nil
}

// Flush drains the buffer and returns everything as one slog group.
func (l *Logger) Flush() slog.Attr {
	var entries []Entry
	if l.buf != nil {
		l.buf.mu.Lock()
		entries = make([]Entry, len(l.buf.entries))
		copy(entries, l.buf.entries)
		l.buf.entries = l.buf.entries[:0]
		l.buf.mu.Unlock()
	}

	l.mu.Lock()
	attrs := make([]slog.Attr, len(l.attrs))
	copy(attrs, l.attrs)
	l.mu.Unlock()

	args := make([]any, 0, len(attrs)+1)
	for _, attr := range attrs {
		args = append(args, attr)
	}
	args = append(args, slog.Any("entries", entriesToPayload(entries)))
	return slog.Group("", args...)
}

func (l *Logger) appendEntry(level, message string, attrs ...slog.Attr) {
	if l.buf == nil {
		l.mu.Lock()
		if l.buf == nil {
			l.buf = &buffer{}
		}
		l.mu.Unlock()
	}
	entry := Entry{Level: level, Message: message, At: time.Now()}
	if len(attrs) > 0 {
		entry.Attrs = append(entry.Attrs, attrs...)
	}
	l.buf.mu.Lock()
	l.buf.entries = append(l.buf.entries, entry)
	l.buf.mu.Unlock()
}

func entriesToPayload(entries []Entry) []map[string]any {
	payload := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		entryPayload := map[string]any{
			"message": entry.Message,
			"level":   entry.Level,
			"at":      entry.At,
		}
		for _, attr := range entry.Attrs {
			if _, exists := entryPayload[attr.Key]; exists {
				continue
			}
			entryPayload[attr.Key] = attr.Value.Any()
		}
		payload = append(payload, entryPayload)
	}
	return payload
}
