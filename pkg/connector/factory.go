package connector

import (
	"context"
	"io"
)

// TransactionSupport is the level of transaction participation a source
// offers.
type TransactionSupport string

// Transaction support levels.
const (
	TransactionXA    TransactionSupport = "XA"
	TransactionLocal TransactionSupport = "LOCAL"
	TransactionNone  TransactionSupport = "NONE"
)

// Capabilities describes what a source can evaluate.
type Capabilities struct {
	SelectDistinct bool     `json:"select_distinct"`
	InnerJoins     bool     `json:"inner_joins"`
	OuterJoins     bool     `json:"outer_joins"`
	OrderBy        bool     `json:"order_by"`
	GroupBy        bool     `json:"group_by"`
	Aggregates     bool     `json:"aggregates"`
	InCriteria     bool     `json:"in_criteria"`
	LikeCriteria   bool     `json:"like_criteria"`
	Subqueries     bool     `json:"subqueries"`
	SetQueries     bool     `json:"set_queries"`
	RowLimit       bool     `json:"row_limit"`
	BulkUpdate     bool     `json:"bulk_update"`
	BatchedUpdates bool     `json:"batched_updates"`
	Procedures     bool     `json:"procedures"`
	MaxInCriteria  int      `json:"max_in_criteria,omitempty"`
	MaxFromGroups  int      `json:"max_from_groups,omitempty"`
	Functions      []string `json:"functions,omitempty"`
}

// BaseExecutionFactory supplies defaults for every ExecutionFactory method
// except GetConnection and CreateExecution. A source is required by default.
type BaseExecutionFactory struct {
	sourceNotRequired             bool
	sourceRequiredForCapabilities bool
	immutable                     bool
	copyLobs                      bool
	transactionSupport            TransactionSupport
	capabilities                  Capabilities
}

// Start does nothing.
func (*BaseExecutionFactory) Start(context.Context) error { return nil }

// CloseConnection closes conn when it implements io.Closer.
func (*BaseExecutionFactory) CloseConnection(conn Connection, _ ConnectionFactory) error {
	if c, ok := conn.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// InitCapabilities does nothing.
func (*BaseExecutionFactory) InitCapabilities(context.Context, Connection) error { return nil }

// Capabilities returns the configured capabilities.
func (f *BaseExecutionFactory) Capabilities() Capabilities { return f.capabilities }

// SetCapabilities replaces the capabilities.
func (f *BaseExecutionFactory) SetCapabilities(c Capabilities) { f.capabilities = c }

// IsSourceRequired reports whether executions need a connection.
func (f *BaseExecutionFactory) IsSourceRequired() bool { return !f.sourceNotRequired }

// SetSourceRequired sets whether executions need a connection.
func (f *BaseExecutionFactory) SetSourceRequired(v bool) { f.sourceNotRequired = !v }

// IsSourceRequiredForCapabilities reports whether capabilities need a
// connection.
func (f *BaseExecutionFactory) IsSourceRequiredForCapabilities() bool {
	return f.sourceRequiredForCapabilities
}

// SetSourceRequiredForCapabilities sets whether capabilities need a
// connection.
func (f *BaseExecutionFactory) SetSourceRequiredForCapabilities(v bool) {
	f.sourceRequiredForCapabilities = v
}

// IsImmutable reports whether the source is immutable.
func (f *BaseExecutionFactory) IsImmutable() bool { return f.immutable }

// SetImmutable marks the source immutable.
func (f *BaseExecutionFactory) SetImmutable(v bool) { f.immutable = v }

// CopyLobs reports whether LOBs are copied.
func (f *BaseExecutionFactory) CopyLobs() bool { return f.copyLobs }

// SetCopyLobs sets whether LOBs are copied.
func (f *BaseExecutionFactory) SetCopyLobs(v bool) { f.copyLobs = v }

// TransactionSupport returns the transaction level, NONE by default.
func (f *BaseExecutionFactory) TransactionSupport() TransactionSupport {
	if f.transactionSupport == "" {
		return TransactionNone
	}
	return f.transactionSupport
}

// SetTransactionSupport sets the transaction level.
func (f *BaseExecutionFactory) SetTransactionSupport(t TransactionSupport) {
	f.transactionSupport = t
}
