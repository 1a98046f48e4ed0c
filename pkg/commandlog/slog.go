package commandlog

import (
	"context"
	"log/slog"
	"sync"
)

const defaultCapacity = 1000

// SlogLogger writes events to a slog.Logger and keeps the most recent ones
// in memory for Query.
type SlogLogger struct {
	logger *slog.Logger

	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

// NewSlogLogger creates a logger. A nil logger uses slog.Default; a
// non-positive capacity uses the default of 1000 retained events.
func NewSlogLogger(logger *slog.Logger, capacity int) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &SlogLogger{logger: logger, events: make([]Event, capacity)}
}

// Log records an event.
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	level := slog.LevelInfo
	if event.Status == StatusError {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("event_id", event.ID),
		slog.String("request_id", event.RequestID),
		slog.Int("node_id", event.NodeID),
		slog.Int("execution_id", event.ExecutionID),
		slog.String("connector", event.Connector),
		slog.String("status", string(event.Status)),
	}
	if event.SQL != "" {
		attrs = append(attrs, slog.String("sql", event.SQL))
	}
	if event.Status != StatusStart {
		attrs = append(attrs,
			slog.Int("row_count", event.RowCount),
			slog.Int64("duration_ms", event.DurationMS),
		)
	}
	if event.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error", event.ErrorMessage))
	}
	l.logger.LogAttrs(ctx, level, "source command", attrs...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[l.next] = event
	l.next = (l.next + 1) % len(l.events)
	if l.next == 0 {
		l.full = true
	}
	return nil
}

// Query returns retained events matching the filter, newest first.
func (l *SlogLogger) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := l.next
	if l.full {
		count = len(l.events)
	}

	var result []Event
	skipped := 0
	for i := range count {
		idx := (l.next - 1 - i + len(l.events)) % len(l.events)
		e := l.events[idx]
		if !matches(e, filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		result = append(result, e)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

// Close does nothing.
func (*SlogLogger) Close() error { return nil }

func matches(e Event, f QueryFilter) bool {
	if f.RequestID != "" && e.RequestID != f.RequestID {
		return false
	}
	if f.Connector != "" && e.Connector != f.Connector {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

var _ Logger = (*SlogLogger)(nil)
