package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/txn2/fedquery/pkg/buffer"
	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/query"
)

// AtomicRequestID identifies one connector-bound part of a request.
type AtomicRequestID struct {
	RequestID   string
	NodeID      int
	ExecutionID int
}

// NewRequestID returns a new globally unique request id.
func NewRequestID() string {
	return uuid.NewString()
}

func (id AtomicRequestID) String() string {
	return fmt.Sprintf("%s.%d.%d", id.RequestID, id.NodeID, id.ExecutionID)
}

// TransactionContext describes the transaction a request runs in.
type TransactionContext struct {
	ID   string
	Kind connector.TransactionSupport
}

// AtomicRequestMessage is the unit of work sent to a connector.
type AtomicRequestMessage struct {
	ID            AtomicRequestID
	Command       query.Command
	ConnectorName string
	// FetchSize bounds the rows returned by one More call. Zero uses the
	// manager default.
	FetchSize int
	// Transaction is nil outside a transaction.
	Transaction *TransactionContext
	User        string
	// Buffer stores copied LOBs. Nil uses the manager's buffer.
	Buffer buffer.Manager
	// Timeout bounds the whole execution. Zero uses the manager default.
	Timeout time.Duration
}

// Pending reports that no rows were ready. It is not an error.
type Pending struct {
	RetryDelay time.Duration
	Strict     bool
}

// AtomicResultsMessage is one batch of results for an AtomicRequestID.
type AtomicResultsMessage struct {
	Rows        [][]any
	ColumnTypes []datatype.Type
	// FinalRow is the total row count once the last batch is reached, and
	// -1 before that.
	FinalRow int
	Warnings []error
	// Pending is set when the batch is empty because the source has no rows
	// ready yet.
	Pending *Pending

	IsTransactional bool
	// SupportsImplicitClose is false when rows hold LOBs that are only
	// readable while the execution stays open.
	SupportsImplicitClose bool
}

// IsFinal reports whether this is the last batch.
func (m *AtomicResultsMessage) IsFinal() bool {
	return m.FinalRow >= 0
}

// IsPending reports whether the batch is a not-yet-available signal.
func (m *AtomicResultsMessage) IsPending() bool {
	return m.Pending != nil
}
