package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/txn2/fedquery/pkg/buffer"
	"github.com/txn2/fedquery/pkg/commandlog"
	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/lom"
)

// WorkItemState is the lifecycle state of a ConnectorWorkItem.
type WorkItemState int32

// Work item states.
const (
	StateCreated WorkItemState = iota
	StateExecuting
	StateMoreAvailable
	StateClosed
	StateCancelled
	StateFailed
)

func (s WorkItemState) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateExecuting:
		return "EXECUTING"
	case StateMoreAvailable:
		return "MORE_AVAILABLE"
	case StateClosed:
		return "CLOSED"
	case StateCancelled:
		return "CANCELLED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("WorkItemState(%d)", int32(s))
	}
}

const timeoutMessage = "operation timed out before completion"

// ConnectorWorkItem runs one request against a connector. Execute, More and
// Close are called by one goroutine at a time; Cancel may be called from any
// goroutine at any point.
type ConnectorWorkItem struct {
	id      AtomicRequestID
	msg     *AtomicRequestMessage
	manager *ConnectorManager
	ec      *connector.ExecutionContext

	state     atomic.Int32
	cancelled atomic.Bool

	// mu serializes Execute, More and Close.
	mu          sync.Mutex
	command     lom.Command
	sql         string
	columnTypes []datatype.Type
	procedure   *ProcedureBatchHandler
	rows        connector.ResultSetExecution
	updates     connector.UpdateExecution
	conn        connector.Connection
	connHeld    bool
	started     time.Time
	deadline    time.Time
	rowCount    int
	lobCount    int
	lobsHeld    bool
	done        bool
	released    bool
	err         error

	// ctl guards the fields Cancel reads.
	ctl       sync.Mutex
	execution connector.Execution
	inflight  context.CancelFunc
}

func newWorkItem(m *ConnectorManager, msg *AtomicRequestMessage) *ConnectorWorkItem {
	return &ConnectorWorkItem{
		id:      msg.ID,
		msg:     msg,
		manager: m,
		ec:      m.newExecutionContext(msg),
	}
}

// ID returns the request id.
func (w *ConnectorWorkItem) ID() AtomicRequestID { return w.id }

// State returns the current state.
func (w *ConnectorWorkItem) State() WorkItemState { return WorkItemState(w.state.Load()) }

// IsCancelled reports whether Cancel has been called.
func (w *ConnectorWorkItem) IsCancelled() bool { return w.cancelled.Load() }

// ExecutionContext returns the context passed to the connector.
func (w *ConnectorWorkItem) ExecutionContext() *connector.ExecutionContext { return w.ec }

// Command returns the translated command once Execute has run.
func (w *ConnectorWorkItem) Command() lom.Command {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.command
}

func (w *ConnectorWorkItem) transition(from, to WorkItemState) bool {
	return w.state.CompareAndSwap(int32(from), int32(to))
}

// Execute translates the command, obtains a connection, and starts the
// execution. Any failure moves the item to FAILED and releases its
// resources.
func (w *ConnectorWorkItem) Execute(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancelled.Load() {
		return w.cancelledError()
	}
	if !w.transition(StateCreated, StateExecuting) {
		return connector.Errorf(connector.CodeContractViolation, "request %s cannot execute in state %s", w.id, w.State())
	}

	w.started = time.Now()
	timeout := w.msg.Timeout
	if timeout <= 0 {
		timeout = w.manager.timeout
	}
	if timeout > 0 {
		w.deadline = w.started.Add(timeout)
	}

	callCtx, done := w.callContext(ctx)
	defer done()

	if err := w.execute(callCtx); err != nil {
		return w.fail(w.classify(callCtx, err))
	}
	if !w.transition(StateExecuting, StateMoreAvailable) {
		w.release()
		return w.cancelledError()
	}
	return nil
}

func (w *ConnectorWorkItem) execute(ctx context.Context) error {
	m := w.manager
	cmd, err := m.translator.Translate(ctx, w.msg.Command)
	if err != nil {
		return connector.Errorf(connector.CodeExecution, "translating command for %s: %w", m.name, err)
	}
	w.command = cmd
	w.sql = lom.SQLString(cmd)

	if err := w.checkTransaction(cmd); err != nil {
		return err
	}

	if m.factory.IsSourceRequired() {
		conn, err := m.factory.GetConnection(ctx, m.connFactory, w.ec)
		if err != nil {
			return connector.Errorf(connector.CodeExecution, "obtaining connection for %s: %w", m.name, err)
		}
		w.conn = conn
		w.connHeld = true
	}

	exec, err := m.factory.CreateExecution(ctx, cmd, w.ec, m.catalog, w.conn)
	if err != nil {
		return connector.Errorf(connector.CodeExecution, "creating execution on %s: %w", m.name, err)
	}
	w.ctl.Lock()
	w.execution = exec
	w.ctl.Unlock()

	if err := w.bind(cmd, exec); err != nil {
		return err
	}

	m.executions.Add(1)
	m.logCommand(ctx, w.event(commandlog.StatusStart).WithSQL(w.sql))
	m.logger.Debug("executing source command", "request", w.id.String(), "connector", m.name, "sql", w.sql)

	if err := exec.Execute(ctx); err != nil {
		return connector.Errorf(connector.CodeExecution, "executing on %s: %w", m.name, err)
	}
	return nil
}

// checkTransaction rejects a write under an XA transaction the connector
// cannot join, unless the connector declares its source immutable.
func (w *ConnectorWorkItem) checkTransaction(cmd lom.Command) error {
	tx := w.msg.Transaction
	if tx == nil || tx.Kind != connector.TransactionXA {
		return nil
	}
	f := w.manager.factory
	if f.TransactionSupport() == connector.TransactionXA || lom.IsQuery(cmd) || f.IsImmutable() {
		return nil
	}
	return connector.Errorf(connector.CodeTransaction,
		"connector %s does not support XA transactions and cannot run %q inside transaction %s", w.manager.name, w.sql, tx.ID)
}

// bind checks that exec matches the command kind and prepares result
// shaping.
func (w *ConnectorWorkItem) bind(cmd lom.Command, exec connector.Execution) error {
	switch c := cmd.(type) {
	case lom.QueryExpression:
		rs, ok := exec.(connector.ResultSetExecution)
		if !ok {
			return connector.Errorf(connector.CodeContractViolation, "connector %s returned %T for a query", w.manager.name, exec)
		}
		w.rows = rs
		w.columnTypes = c.ColumnTypes()
	case *lom.Call:
		pe, ok := exec.(connector.ProcedureExecution)
		if !ok {
			return connector.Errorf(connector.CodeContractViolation, "connector %s returned %T for a procedure call", w.manager.name, exec)
		}
		w.procedure = NewProcedureBatchHandler(c, pe)
		w.rows = pe
		w.columnTypes = w.procedure.ColumnTypes()
	default:
		ue, ok := exec.(connector.UpdateExecution)
		if !ok {
			return connector.Errorf(connector.CodeContractViolation, "connector %s returned %T for an update", w.manager.name, exec)
		}
		w.updates = ue
		w.columnTypes = []datatype.Type{datatype.Integer}
	}
	return nil
}

// More returns the next batch. An empty batch with Pending set means the
// source has nothing ready yet and More should be called again later.
func (w *ConnectorWorkItem) More(ctx context.Context) (*AtomicResultsMessage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		w.release()
		return nil, w.err
	}
	if w.cancelled.Load() {
		w.release()
		return nil, w.cancelledError()
	}
	if w.done {
		results := w.newResults()
		results.FinalRow = w.rowCount
		return w.complete(results), nil
	}
	if st := w.State(); st != StateMoreAvailable {
		return nil, connector.Errorf(connector.CodeContractViolation, "request %s has no results in state %s", w.id, st)
	}
	if !w.deadline.IsZero() && !time.Now().Before(w.deadline) {
		return nil, w.fail(timeoutError(nil))
	}

	callCtx, done := w.callContext(ctx)
	defer done()

	var (
		results *AtomicResultsMessage
		err     error
	)
	// Dispatch on the role bound to the command kind; one execution type
	// may implement several roles.
	if w.updates != nil {
		results, err = w.pullUpdates(callCtx, w.updates)
	} else {
		results, err = w.pullRows(callCtx, w.rows)
	}
	if err != nil {
		return nil, w.fail(w.classify(callCtx, err))
	}
	// A Cancel that arrived while Next was blocked could not take mu.
	if w.cancelled.Load() && !w.lobsHeld {
		w.release()
	}
	return results, nil
}

func (w *ConnectorWorkItem) pullRows(ctx context.Context, exec connector.ResultSetExecution) (*AtomicResultsMessage, error) {
	results := w.newResults()
	for len(results.Rows) < w.ec.BatchSize {
		raw, err := exec.Next(ctx)
		if err != nil {
			if dna, ok := connector.AsDataNotAvailable(err); ok {
				if len(results.Rows) == 0 {
					return w.pending(dna), nil
				}
				break
			}
			if w.cancelled.Load() && len(results.Rows) > 0 {
				break
			}
			return w.rowError(ctx, results, connector.Errorf(connector.CodeExecution, "reading results from %s: %w", w.manager.name, err))
		}

		if raw == nil {
			if err := w.endOfResults(ctx, results); err != nil {
				return w.rowError(ctx, results, err)
			}
			break
		}

		row, err := w.convertRow(raw)
		if err != nil {
			return w.rowError(ctx, results, err)
		}
		results.Rows = append(results.Rows, row)
		w.rowCount++
	}
	return w.complete(results), nil
}

func (w *ConnectorWorkItem) pullUpdates(ctx context.Context, exec connector.UpdateExecution) (*AtomicResultsMessage, error) {
	counts, err := exec.UpdateCounts(ctx)
	if err != nil {
		if dna, ok := connector.AsDataNotAvailable(err); ok {
			return w.pending(dna), nil
		}
		return nil, connector.Errorf(connector.CodeExecution, "reading update counts from %s: %w", w.manager.name, err)
	}
	results := w.newResults()
	for _, c := range counts {
		results.Rows = append(results.Rows, []any{int32(c)})
	}
	w.rowCount += len(counts)
	w.finish(results)
	return w.complete(results), nil
}

// rowError returns err at once when no rows are buffered. Otherwise the
// buffered rows are delivered and err is raised by the next More.
func (w *ConnectorWorkItem) rowError(ctx context.Context, results *AtomicResultsMessage, err error) (*AtomicResultsMessage, error) {
	if len(results.Rows) == 0 {
		return nil, err
	}
	w.err = w.record(w.classify(ctx, err))
	return w.complete(results), nil
}

func (w *ConnectorWorkItem) endOfResults(ctx context.Context, results *AtomicResultsMessage) error {
	if w.procedure != nil {
		row, err := w.procedure.ParameterRow(ctx)
		if err != nil {
			return err
		}
		if row != nil {
			converted, err := w.convertValues(row)
			if err != nil {
				return err
			}
			results.Rows = append(results.Rows, converted)
			w.rowCount++
		}
	}
	w.finish(results)
	return nil
}

// finish marks the last batch. Resources are released at once unless rows
// hold LOBs that still read from the source.
func (w *ConnectorWorkItem) finish(results *AtomicResultsMessage) {
	w.done = true
	results.FinalRow = w.rowCount
	if !w.lobsHeld {
		w.release()
	}
}

func (w *ConnectorWorkItem) convertRow(raw []any) ([]any, error) {
	if w.procedure != nil {
		padded, err := w.procedure.PadRow(raw)
		if err != nil {
			return nil, err
		}
		return w.convertValues(padded)
	}
	if len(raw) != len(w.columnTypes) {
		return nil, connector.Errorf(connector.CodeContractViolation,
			"connector %s returned a row of %d columns, expected %d", w.manager.name, len(raw), len(w.columnTypes))
	}
	return w.convertValues(raw)
}

func (w *ConnectorWorkItem) convertValues(raw []any) ([]any, error) {
	row := make([]any, len(raw))
	for i, v := range raw {
		c, err := w.convert(v, w.columnTypes[i])
		if err != nil {
			return nil, connector.Errorf(connector.CodeConversion,
				"converting column %d of row %d from %s: %w", i+1, w.rowCount+1, w.manager.name, err)
		}
		row[i] = c
	}
	return row, nil
}

// convert applies ConvertToRuntimeType and the connector's LOB copy policy.
func (w *ConnectorWorkItem) convert(v any, target datatype.Type) (any, error) {
	c, err := ConvertToRuntimeType(v, target)
	if err != nil {
		return nil, err
	}
	s, ok := c.(datatype.Streamable)
	if !ok {
		return c, nil
	}
	if w.manager.factory.CopyLobs() {
		w.lobCount++
		copied, err := buffer.CopyLOB(w.ec.Buffer, fmt.Sprintf("%s.lob%d", w.id, w.lobCount), s)
		if err != nil {
			return nil, err
		}
		return copied, nil
	}
	if s.Factory().StorageMode() == datatype.StorageModeOther {
		w.lobsHeld = true
	}
	return s, nil
}

// Cancel stops the request. It is safe to call concurrently with Execute
// and More; rows already returned stay valid.
func (w *ConnectorWorkItem) Cancel() error {
	for {
		st := w.State()
		if st == StateClosed || st == StateFailed || st == StateCancelled {
			return nil
		}
		if w.transition(st, StateCancelled) {
			break
		}
	}
	w.cancelled.Store(true)
	w.manager.cancellations.Add(1)

	w.ctl.Lock()
	inflight, exec := w.inflight, w.execution
	w.ctl.Unlock()

	if inflight != nil {
		inflight()
	}
	var err error
	if exec != nil {
		if cerr := exec.Cancel(); cerr != nil {
			err = connector.Errorf(connector.CodeExecution, "cancelling %s on %s: %w", w.id, w.manager.name, cerr)
		}
	}

	w.manager.logCommand(context.Background(), w.event(commandlog.StatusCancel))
	w.manager.logger.Info("connector request cancelled", "request", w.id.String(), "connector", w.manager.name)

	if w.mu.TryLock() {
		w.release()
		w.mu.Unlock()
	}
	return err
}

// Close releases the execution and connection and removes the item from its
// manager. It may be called more than once.
func (w *ConnectorWorkItem) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.release()
	w.manager.RemoveState(w.id)
	return nil
}

// release closes the execution and connection once. Callers hold mu.
func (w *ConnectorWorkItem) release() {
	if w.released {
		return
	}
	w.released = true
	m := w.manager

	w.ctl.Lock()
	exec := w.execution
	w.ctl.Unlock()
	if exec != nil {
		if err := exec.Close(); err != nil {
			m.logger.Warn("closing execution", "request", w.id.String(), "connector", m.name, "error", err)
		}
	}
	if w.connHeld {
		w.connHeld = false
		if err := m.factory.CloseConnection(w.conn, m.connFactory); err != nil {
			m.logger.Warn("closing connection", "request", w.id.String(), "connector", m.name, "error", err)
		}
	}

	if w.transition(StateMoreAvailable, StateClosed) || w.transition(StateExecuting, StateClosed) {
		e := w.event(commandlog.StatusEnd).WithSQL(w.sql).
			WithResult(w.rowCount, 0, time.Since(w.started), nil)
		m.logCommand(context.Background(), e)
	}
}

// record marks the item failed and logs err, without releasing resources.
func (w *ConnectorWorkItem) record(err error) error {
	te := connector.Wrap(connector.CodeExecution, err)
	if connector.HasCode(te, connector.CodeCancelled) {
		return te
	}
	for {
		st := w.State()
		if st == StateFailed || st == StateCancelled || w.transition(st, StateFailed) {
			break
		}
	}
	m := w.manager
	m.failures.Add(1)
	m.logger.Warn("connector request failed", "request", w.id.String(), "connector", m.name, "error", te)
	e := w.event(commandlog.StatusError).WithSQL(w.sql).
		WithResult(w.rowCount, 0, time.Since(w.started), te)
	m.logCommand(context.Background(), e)
	return te
}

func (w *ConnectorWorkItem) fail(err error) error {
	te := w.record(err)
	if !connector.HasCode(te, connector.CodeCancelled) {
		w.err = te
	}
	w.release()
	return te
}

// classify replaces errors caused by cancellation or the execution deadline.
func (w *ConnectorWorkItem) classify(ctx context.Context, err error) error {
	if w.cancelled.Load() {
		return w.cancelledError()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err)
	}
	return err
}

func (w *ConnectorWorkItem) cancelledError() error {
	return connector.Errorf(connector.CodeCancelled, "request %s on %s was cancelled", w.id, w.manager.name)
}

func timeoutError(cause error) error {
	return &connector.TranslatorError{Code: connector.CodeTimeout, Message: timeoutMessage, Err: cause}
}

// callContext derives the context for one connector call, bounded by the
// execution deadline and cancelled by Cancel.
func (w *ConnectorWorkItem) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	var cancel context.CancelFunc
	if w.deadline.IsZero() {
		ctx, cancel = context.WithCancel(ctx)
	} else {
		ctx, cancel = context.WithDeadline(ctx, w.deadline)
	}
	w.ctl.Lock()
	w.inflight = cancel
	w.ctl.Unlock()
	if w.cancelled.Load() {
		cancel()
	}
	return ctx, func() {
		w.ctl.Lock()
		w.inflight = nil
		w.ctl.Unlock()
		cancel()
	}
}

func (w *ConnectorWorkItem) newResults() *AtomicResultsMessage {
	return &AtomicResultsMessage{
		ColumnTypes:     w.columnTypes,
		FinalRow:        -1,
		IsTransactional: w.msg.Transaction != nil,
	}
}

func (w *ConnectorWorkItem) pending(dna *connector.DataNotAvailableError) *AtomicResultsMessage {
	results := w.newResults()
	results.Pending = &Pending{RetryDelay: dna.RetryDelay, Strict: dna.Strict}
	return w.complete(results)
}

func (w *ConnectorWorkItem) complete(results *AtomicResultsMessage) *AtomicResultsMessage {
	results.Warnings = w.ec.DrainWarnings()
	results.SupportsImplicitClose = !w.lobsHeld
	return results
}

func (w *ConnectorWorkItem) event(status commandlog.Status) *commandlog.Event {
	return commandlog.NewEvent(status).
		WithRequest(w.id.RequestID, w.id.NodeID, w.id.ExecutionID).
		WithConnector(w.manager.name, w.ec.ConnectionID).
		WithUser(w.msg.User)
}
