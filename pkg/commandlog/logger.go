// Package commandlog records the lifecycle of commands sent to data sources.
package commandlog

import (
	"context"
	"time"
)

// Logger records source command events.
type Logger interface {
	// Log records an event.
	Log(ctx context.Context, event Event) error

	// Query retrieves events matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Close releases resources.
	Close() error
}

// Event is one step in the life of a source command.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
	NodeID       int       `json:"node_id"`
	ExecutionID  int       `json:"execution_id"`
	Connector    string    `json:"connector"`
	ConnectionID string    `json:"connection_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Status       Status    `json:"status"`
	SQL          string    `json:"sql,omitempty"`
	RowCount     int       `json:"row_count"`
	WarningCount int       `json:"warning_count,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// QueryFilter selects events.
type QueryFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	RequestID string
	Connector string
	Status    Status
	Limit     int
	Offset    int
}

// Config configures command logging.
type Config struct {
	Enabled       bool   `yaml:"enabled"`
	Store         string `yaml:"store"`
	Capacity      int    `yaml:"capacity"`
	RetentionDays int    `yaml:"retention_days"`
}
