// Package connector defines the contract between the engine and pluggable
// data-source adapters: execution factories, executions, and the errors and
// context passed across that boundary.
package connector

import (
	"context"

	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
)

// ConnectionFactory is the source-specific object connections come from,
// such as a pool or a client. Adapters assert it to their own type.
type ConnectionFactory any

// Connection is a source connection obtained from a ConnectionFactory.
type Connection any

// RuntimeMetadata resolves catalog entities during execution.
type RuntimeMetadata = metadata.Catalog

// Execution is a single command running against a source. Cancel may be
// called concurrently with any other method.
type Execution interface {
	Execute(ctx context.Context) error
	Close() error
	Cancel() error
}

// ResultSetExecution produces rows. Next returns a nil row at end of
// results and a *DataNotAvailableError when no row is ready yet.
type ResultSetExecution interface {
	Execution
	Next(ctx context.Context) ([]any, error)
}

// UpdateExecution produces one update count per command or parameter row.
type UpdateExecution interface {
	Execution
	UpdateCounts(ctx context.Context) ([]int, error)
}

// ProcedureExecution produces result-set rows followed by output parameter
// values, which are only available after Next has returned nil.
type ProcedureExecution interface {
	ResultSetExecution
	OutputParameterValues(ctx context.Context) ([]any, error)
}

// ExecutionFactory is implemented by each adapter. Embed
// BaseExecutionFactory for the flag and capability defaults.
type ExecutionFactory interface {
	// Start initializes the factory. It is called once before use.
	Start(ctx context.Context) error

	// GetConnection obtains a connection from cf.
	GetConnection(ctx context.Context, cf ConnectionFactory, ec *ExecutionContext) (Connection, error)

	// CloseConnection releases a connection obtained from GetConnection.
	CloseConnection(conn Connection, cf ConnectionFactory) error

	// CreateExecution creates the execution for cmd. The returned value
	// implements ResultSetExecution, UpdateExecution, or ProcedureExecution
	// according to the command kind.
	CreateExecution(ctx context.Context, cmd lom.Command, ec *ExecutionContext, md RuntimeMetadata, conn Connection) (Execution, error)

	// InitCapabilities is called once with a connection when
	// IsSourceRequiredForCapabilities is true, and with nil otherwise.
	InitCapabilities(ctx context.Context, conn Connection) error

	// Capabilities returns the supported feature set.
	Capabilities() Capabilities

	IsSourceRequired() bool
	IsSourceRequiredForCapabilities() bool
	// IsImmutable reports that the source never changes, so writes are safe
	// under an external transaction the adapter cannot join.
	IsImmutable() bool
	// CopyLobs reports whether LOB values must be copied into engine storage
	// before the execution is closed.
	CopyLobs() bool
	TransactionSupport() TransactionSupport
}
