package commandlog

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle step an event records.
type Status string

// Event statuses.
const (
	StatusStart  Status = "START"
	StatusEnd    Status = "END"
	StatusCancel Status = "CANCEL"
	StatusError  Status = "ERROR"
)

// NewEvent creates an event for the given step.
func NewEvent(status Status) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Status:    status,
	}
}

// WithRequest sets the request identity.
func (e *Event) WithRequest(requestID string, nodeID, executionID int) *Event {
	e.RequestID = requestID
	e.NodeID = nodeID
	e.ExecutionID = executionID
	return e
}

// WithConnector sets the connector and connection.
func (e *Event) WithConnector(connector, connectionID string) *Event {
	e.Connector = connector
	e.ConnectionID = connectionID
	return e
}

// WithUser sets the requesting user.
func (e *Event) WithUser(userID string) *Event {
	e.UserID = userID
	return e
}

// WithSQL sets the source command text.
func (e *Event) WithSQL(sql string) *Event {
	e.SQL = sql
	return e
}

// WithResult sets the outcome. A nil err leaves ErrorMessage empty.
func (e *Event) WithResult(rows, warnings int, duration time.Duration, err error) *Event {
	e.RowCount = rows
	e.WarningCount = warnings
	e.DurationMS = duration.Milliseconds()
	if err != nil {
		e.ErrorMessage = err.Error()
	}
	return e
}
