package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/fedquery/pkg/commandlog"
	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
	"github.com/txn2/fedquery/pkg/query"
)

// step is one Next result of a fake execution.
type step struct {
	row []any
	err error
}

type fakeExecution struct {
	steps      []step
	counts     []int
	outputs    []any
	executeErr error
	// block makes Execute wait for its context.
	block bool
	// nextBlocked, when set, is closed once the steps run out and Next
	// then waits for its context.
	nextBlocked chan struct{}

	pos       int
	cancelled atomic.Bool
	closed    atomic.Int32
}

func (e *fakeExecution) Execute(ctx context.Context) error {
	if e.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return e.executeErr
}

func (e *fakeExecution) Next(ctx context.Context) ([]any, error) {
	if e.pos >= len(e.steps) {
		if e.nextBlocked != nil {
			close(e.nextBlocked)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return nil, nil
	}
	s := e.steps[e.pos]
	e.pos++
	return s.row, s.err
}

func (e *fakeExecution) UpdateCounts(context.Context) ([]int, error) { return e.counts, nil }

func (e *fakeExecution) OutputParameterValues(context.Context) ([]any, error) {
	return e.outputs, nil
}

func (e *fakeExecution) Close() error {
	e.closed.Add(1)
	return nil
}

func (e *fakeExecution) Cancel() error {
	e.cancelled.Store(true)
	return nil
}

type fakeConn struct {
	closed  atomic.Int32
	pingErr error
}

func (c *fakeConn) Close() error {
	c.closed.Add(1)
	return nil
}

func (c *fakeConn) Ping(context.Context) error { return c.pingErr }

type fakeFactory struct {
	connector.BaseExecutionFactory

	exec     *fakeExecution
	conn     *fakeConn
	create   func(cmd lom.Command) (connector.Execution, error)
	connErr  error
	startErr error
	capsInit atomic.Int32
}

func newFakeFactory(exec *fakeExecution) *fakeFactory {
	f := &fakeFactory{exec: exec, conn: &fakeConn{}}
	f.SetCapabilities(connector.Capabilities{OrderBy: true})
	return f
}

func (f *fakeFactory) Start(context.Context) error { return f.startErr }

func (f *fakeFactory) GetConnection(context.Context, connector.ConnectionFactory, *connector.ExecutionContext) (connector.Connection, error) {
	if f.connErr != nil {
		return nil, f.connErr
	}
	return f.conn, nil
}

func (f *fakeFactory) CreateExecution(_ context.Context, cmd lom.Command, _ *connector.ExecutionContext, _ connector.RuntimeMetadata, _ connector.Connection) (connector.Execution, error) {
	if f.create != nil {
		return f.create(cmd)
	}
	return f.exec, nil
}

func (f *fakeFactory) InitCapabilities(context.Context, connector.Connection) error {
	f.capsInit.Add(1)
	return nil
}

// updateOnly exposes only the UpdateExecution methods of a fakeExecution.
type updateOnly struct{ e *fakeExecution }

func (u updateOnly) Execute(ctx context.Context) error { return u.e.Execute(ctx) }
func (u updateOnly) Close() error                      { return u.e.Close() }
func (u updateOnly) Cancel() error                     { return u.e.Cancel() }
func (u updateOnly) UpdateCounts(ctx context.Context) ([]int, error) {
	return u.e.UpdateCounts(ctx)
}

func testCatalog() *metadata.MemoryCatalog {
	c := metadata.NewMemoryCatalog()
	items := &metadata.Table{Schema: "src", Name: "items"}
	items.AddColumn(&metadata.Column{Name: "id", Type: datatype.Integer})
	items.AddColumn(&metadata.Column{Name: "doc", Type: datatype.Blob})
	items.AddColumn(&metadata.Column{Name: "note", Type: datatype.Clob})
	c.AddTable(items)

	proc := &metadata.Procedure{Schema: "src", Name: "refresh"}
	proc.AddParameter(&metadata.ProcedureParameter{Name: "id", Type: datatype.Integer})
	proc.AddParameter(&metadata.ProcedureParameter{Name: "note", Type: datatype.String, Direction: metadata.DirectionOut})
	proc.ResultSet = []*metadata.Column{{Name: "a", Type: datatype.String}}
	c.AddProcedure(proc)
	return c
}

func selectColumns(names ...string) *query.Query {
	g := &query.GroupSymbol{Name: "src.items"}
	q := &query.Query{From: []query.FromClause{&query.UnaryFromClause{Group: g}}}
	for _, n := range names {
		q.Select = append(q.Select, &query.ElementSymbol{Group: g, Name: n})
	}
	return q
}

func refreshCall() *query.StoredProcedure {
	return &query.StoredProcedure{
		ProcedureName: "src.refresh",
		Parameters: []*query.SPParameter{
			{Name: "id", Expression: &query.Constant{Value: int32(3), Type: datatype.Integer}},
			{Name: "note", Direction: metadata.DirectionOut},
		},
	}
}

func newManager(f connector.ExecutionFactory, opts ...Option) *ConnectorManager {
	opts = append([]Option{WithCatalog(testCatalog()), WithConnectionFactory(struct{}{})}, opts...)
	return NewConnectorManager("src", f, opts...)
}

func request(cmd query.Command) *AtomicRequestMessage {
	return &AtomicRequestMessage{
		ID:            AtomicRequestID{RequestID: NewRequestID(), NodeID: 1, ExecutionID: 1},
		Command:       cmd,
		ConnectorName: "src",
	}
}

func TestRegisterRequest(t *testing.T) {
	m := newManager(newFakeFactory(&fakeExecution{}))
	msg := request(selectColumns("id"))

	w := m.RegisterRequest(msg)
	assert.Equal(t, 1, m.Size())
	got, ok := m.State(msg.ID)
	require.True(t, ok)
	assert.Same(t, w, got)

	assert.PanicsWithValue(t, "State already existed", func() { m.RegisterRequest(msg) })

	m.RemoveState(AtomicRequestID{RequestID: "unknown"})
	assert.Equal(t, 1, m.Size())

	m.RemoveState(msg.ID)
	assert.Equal(t, 0, m.Size())
}

func TestWorkItem_SingleRow(t *testing.T) {
	exec := &fakeExecution{steps: []step{{row: []any{int64(7)}}}}
	f := newFakeFactory(exec)
	m := newManager(f)
	w := m.RegisterRequest(request(selectColumns("id")))
	ctx := context.Background()

	require.NoError(t, w.Execute(ctx))
	assert.Equal(t, StateMoreAvailable, w.State())
	assert.Equal(t, "SELECT items.id FROM items", lom.SQLString(w.Command()))

	results, err := w.More(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int32(7)}}, results.Rows)
	assert.Equal(t, 1, results.FinalRow)
	assert.True(t, results.IsFinal())
	assert.True(t, results.SupportsImplicitClose)
	assert.Equal(t, []datatype.Type{datatype.Integer}, results.ColumnTypes)

	// resources are released with the final batch
	assert.Equal(t, StateClosed, w.State())
	assert.Equal(t, int32(1), exec.closed.Load())
	assert.Equal(t, int32(1), f.conn.closed.Load())

	results, err = w.More(ctx)
	require.NoError(t, err)
	assert.Empty(t, results.Rows)
	assert.Equal(t, 1, results.FinalRow)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, int32(1), exec.closed.Load())
	assert.Equal(t, 0, m.Size())
	assert.Equal(t, int64(1), m.Stats().Executions)
}

func TestWorkItem_Batches(t *testing.T) {
	exec := &fakeExecution{}
	for i := range 5 {
		exec.steps = append(exec.steps, step{row: []any{i}})
	}
	m := newManager(newFakeFactory(exec), WithFetchSize(2))
	w := m.RegisterRequest(request(selectColumns("id")))
	ctx := context.Background()
	require.NoError(t, w.Execute(ctx))

	var sizes []int
	err := Drain(ctx, w, func(r *AtomicResultsMessage) error {
		sizes = append(sizes, len(r.Rows))
		if r.IsFinal() {
			assert.Equal(t, 5, r.FinalRow)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestWorkItem_ConversionErrorAfterRows(t *testing.T) {
	exec := &fakeExecution{steps: []step{
		{row: []any{1}},
		{row: []any{"not a number"}},
		{row: []any{3}},
	}}
	m := newManager(newFakeFactory(exec))
	w := m.RegisterRequest(request(selectColumns("id")))
	ctx := context.Background()
	require.NoError(t, w.Execute(ctx))

	results, err := w.More(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int32(1)}}, results.Rows)
	assert.False(t, results.IsFinal())

	_, err = w.More(ctx)
	require.Error(t, err)
	assert.True(t, connector.HasCode(err, connector.CodeConversion))
	assert.Contains(t, err.Error(), "column 1 of row 2")
	assert.Equal(t, StateFailed, w.State())
	assert.Equal(t, int32(1), exec.closed.Load())
	assert.Equal(t, int64(1), m.Stats().Failures)

	// the error stays
	_, err = w.More(ctx)
	assert.True(t, connector.HasCode(err, connector.CodeConversion))
}

func TestWorkItem_ErrorWithoutRows(t *testing.T) {
	boom := errors.New("boom")
	exec := &fakeExecution{steps: []step{{err: boom}}}
	m := newManager(newFakeFactory(exec))
	w := m.RegisterRequest(request(selectColumns("id")))
	ctx := context.Background()
	require.NoError(t, w.Execute(ctx))

	_, err := w.More(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, connector.HasCode(err, connector.CodeExecution))
	assert.Equal(t, StateFailed, w.State())
}

func TestWorkItem_RowWidthMismatch(t *testing.T) {
	exec := &fakeExecution{steps: []step{{row: []any{1, 2}}}}
	m := newManager(newFakeFactory(exec))
	w := m.RegisterRequest(request(selectColumns("id")))
	ctx := context.Background()
	require.NoError(t, w.Execute(ctx))

	_, err := w.More(ctx)
	assert.True(t, connector.HasCode(err, connector.CodeContractViolation))
}

func TestWorkItem_Lobs(t *testing.T) {
	rows := func() []step {
		return []step{{row: []any{1, bytes.NewReader([]byte("payload"))}}}
	}

	t.Run("held by source", func(t *testing.T) {
		exec := &fakeExecution{steps: rows()}
		m := newManager(newFakeFactory(exec))
		w := m.RegisterRequest(request(selectColumns("id", "doc")))
		ctx := context.Background()
		require.NoError(t, w.Execute(ctx))

		results, err := w.More(ctx)
		require.NoError(t, err)
		require.Len(t, results.Rows, 1)
		blob, ok := results.Rows[0][1].(*datatype.BlobType)
		require.True(t, ok)
		assert.Equal(t, datatype.StorageModeOther, blob.StorageMode())
		assert.True(t, results.IsFinal())
		assert.False(t, results.SupportsImplicitClose)

		// the execution stays open until the caller closes it
		assert.Equal(t, int32(0), exec.closed.Load())
		b, err := blob.Bytes()
		require.NoError(t, err)
		assert.Equal(t, "payload", string(b))

		require.NoError(t, w.Close())
		assert.Equal(t, int32(1), exec.closed.Load())
	})

	t.Run("copied", func(t *testing.T) {
		exec := &fakeExecution{steps: rows()}
		f := newFakeFactory(exec)
		f.SetCopyLobs(true)
		m := newManager(f)
		w := m.RegisterRequest(request(selectColumns("id", "doc")))
		ctx := context.Background()
		require.NoError(t, w.Execute(ctx))

		results, err := w.More(ctx)
		require.NoError(t, err)
		s, ok := results.Rows[0][1].(datatype.Streamable)
		require.True(t, ok)
		assert.Equal(t, datatype.StorageModeMemory, s.Factory().StorageMode())
		assert.True(t, results.SupportsImplicitClose)
		assert.Equal(t, int32(1), exec.closed.Load())
	})

	t.Run("copied clob outlives the source", func(t *testing.T) {
		src := &expiringReader{r: strings.NewReader("hello clob")}
		exec := &fakeExecution{steps: []step{{row: []any{1, src}}}}
		f := newFakeFactory(exec)
		f.SetCopyLobs(true)
		m := newManager(f)
		w := m.RegisterRequest(request(selectColumns("id", "note")))
		ctx := context.Background()
		require.NoError(t, w.Execute(ctx))

		results, err := w.More(ctx)
		require.NoError(t, err)
		clob, ok := results.Rows[0][1].(*datatype.ClobType)
		require.True(t, ok)
		assert.Equal(t, datatype.StorageModeMemory, clob.StorageMode())

		require.NoError(t, w.Close())
		src.expired.Store(true)

		for range 2 {
			text, err := clob.Text()
			require.NoError(t, err)
			assert.Equal(t, "hello clob", text)
		}
	})
}

// expiringReader fails every read once expired is set.
type expiringReader struct {
	r       *strings.Reader
	expired atomic.Bool
}

func (e *expiringReader) Read(p []byte) (int, error) {
	if e.expired.Load() {
		return 0, errors.New("source stream closed")
	}
	return e.r.Read(p)
}

func TestWorkItem_Procedure(t *testing.T) {
	exec := &fakeExecution{
		steps:   []step{{row: []any{"x"}}},
		outputs: []any{"done"},
	}
	m := newManager(newFakeFactory(exec))
	w := m.RegisterRequest(request(refreshCall()))
	ctx := context.Background()
	require.NoError(t, w.Execute(ctx))

	results, err := w.More(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"x", nil}, {nil, "done"}}, results.Rows)
	assert.Equal(t, 2, results.FinalRow)
	assert.Equal(t, []datatype.Type{datatype.String, datatype.String}, results.ColumnTypes)
}

func TestProcedureBatchHandler_PadRow(t *testing.T) {
	call := &lom.Call{
		Name: "refresh",
		Metadata: &metadata.Procedure{
			Name:      "refresh",
			ResultSet: []*metadata.Column{{Name: "a", Type: datatype.String}, {Name: "b", Type: datatype.String}},
		},
	}
	h := NewProcedureBatchHandler(call, &fakeExecution{})
	assert.Equal(t, 2, h.Width())

	_, err := h.PadRow([]any{"only"})
	require.Error(t, err)
	assert.True(t, connector.HasCode(err, connector.CodeContractViolation))
	assert.Contains(t, err.Error(), lom.SQLString(call))

	row, err := h.PadRow([]any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, row)

	row, err = h.ParameterRow(context.Background())
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestWorkItem_Updates(t *testing.T) {
	g := &query.GroupSymbol{Name: "src.items"}
	exec := &fakeExecution{counts: []int{1, 2}}
	f := newFakeFactory(exec)
	f.create = func(lom.Command) (connector.Execution, error) { return updateOnly{exec}, nil }
	m := newManager(f)

	w := m.RegisterRequest(request(&query.Delete{Group: g}))
	ctx := context.Background()
	require.NoError(t, w.Execute(ctx))

	results, err := w.More(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int32(1)}, {int32(2)}}, results.Rows)
	assert.Equal(t, 2, results.FinalRow)
	assert.Equal(t, []datatype.Type{datatype.Integer}, results.ColumnTypes)
}

func TestWorkItem_UpdatesFromMultiRoleExecution(t *testing.T) {
	g := &query.GroupSymbol{Name: "src.items"}
	// fakeExecution implements Next and UpdateCounts; the command kind decides.
	exec := &fakeExecution{counts: []int{5}}
	m := newManager(newFakeFactory(exec))

	w := m.RegisterRequest(request(&query.Delete{Group: g}))
	ctx := context.Background()
	require.NoError(t, w.Execute(ctx))

	results, err := w.More(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int32(5)}}, results.Rows)
	assert.Equal(t, 1, results.FinalRow)
	assert.True(t, results.IsFinal())
}

func TestWorkItem_WrongExecutionKind(t *testing.T) {
	exec := &fakeExecution{}
	f := newFakeFactory(exec)
	f.create = func(lom.Command) (connector.Execution, error) { return updateOnly{exec}, nil }
	m := newManager(f)

	w := m.RegisterRequest(request(selectColumns("id")))
	err := w.Execute(context.Background())
	assert.True(t, connector.HasCode(err, connector.CodeContractViolation))
	assert.Equal(t, StateFailed, w.State())
}

func TestWorkItem_XATransaction(t *testing.T) {
	g := &query.GroupSymbol{Name: "src.items"}
	xa := &TransactionContext{ID: "tx1", Kind: connector.TransactionXA}

	t.Run("write rejected", func(t *testing.T) {
		f := newFakeFactory(&fakeExecution{})
		m := newManager(f)
		msg := request(&query.Delete{Group: g})
		msg.Transaction = xa
		err := m.RegisterRequest(msg).Execute(context.Background())
		require.Error(t, err)
		assert.True(t, connector.HasCode(err, connector.CodeTransaction))
	})

	t.Run("immutable source", func(t *testing.T) {
		exec := &fakeExecution{counts: []int{1}}
		f := newFakeFactory(exec)
		f.SetImmutable(true)
		f.create = func(lom.Command) (connector.Execution, error) { return updateOnly{exec}, nil }
		m := newManager(f)
		msg := request(&query.Delete{Group: g})
		msg.Transaction = xa
		require.NoError(t, m.RegisterRequest(msg).Execute(context.Background()))
	})

	t.Run("query allowed", func(t *testing.T) {
		m := newManager(newFakeFactory(&fakeExecution{}))
		msg := request(selectColumns("id"))
		msg.Transaction = xa
		w := m.RegisterRequest(msg)
		require.NoError(t, w.Execute(context.Background()))
		results, err := w.More(context.Background())
		require.NoError(t, err)
		assert.True(t, results.IsTransactional)
	})
}

func TestWorkItem_Pending(t *testing.T) {
	exec := &fakeExecution{steps: []step{
		{err: connector.NewDataNotAvailable(5 * time.Millisecond)},
		{row: []any{1}},
		{err: connector.NewDataNotAvailable(connector.NoPolling)},
		{row: []any{2}},
	}}
	m := newManager(newFakeFactory(exec))
	w := m.RegisterRequest(request(selectColumns("id")))
	ctx := context.Background()
	require.NoError(t, w.Execute(ctx))

	results, err := w.More(ctx)
	require.NoError(t, err)
	require.True(t, results.IsPending())
	assert.Equal(t, 5*time.Millisecond, results.Pending.RetryDelay)
	assert.Empty(t, results.Rows)

	// rows read before the signal are returned
	results, err = w.More(ctx)
	require.NoError(t, err)
	assert.False(t, results.IsPending())
	assert.Equal(t, [][]any{{int32(1)}}, results.Rows)

	var rows int
	require.NoError(t, Drain(ctx, w, func(r *AtomicResultsMessage) error {
		rows += len(r.Rows)
		return nil
	}))
	assert.Equal(t, 1, rows)
}

func TestWorkItem_Timeout(t *testing.T) {
	exec := &fakeExecution{block: true}
	m := newManager(newFakeFactory(exec), WithExecutionTimeout(20*time.Millisecond))
	w := m.RegisterRequest(request(selectColumns("id")))

	err := w.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, connector.HasCode(err, connector.CodeTimeout))
	assert.Equal(t, timeoutMessage, err.Error())
	assert.Equal(t, StateFailed, w.State())
}

func TestWorkItem_Cancel(t *testing.T) {
	t.Run("before execute", func(t *testing.T) {
		m := newManager(newFakeFactory(&fakeExecution{}))
		w := m.RegisterRequest(request(selectColumns("id")))
		require.NoError(t, w.Cancel())
		assert.True(t, w.IsCancelled())

		err := w.Execute(context.Background())
		assert.True(t, connector.HasCode(err, connector.CodeCancelled))
	})

	t.Run("during execute", func(t *testing.T) {
		exec := &fakeExecution{block: true}
		m := newManager(newFakeFactory(exec))
		w := m.RegisterRequest(request(selectColumns("id")))

		var wg sync.WaitGroup
		var execErr error
		wg.Add(1)
		go func() {
			defer wg.Done()
			execErr = w.Execute(context.Background())
		}()
		require.Eventually(t, func() bool { return w.State() == StateExecuting }, time.Second, time.Millisecond)
		require.Eventually(t, func() bool {
			w.ctl.Lock()
			defer w.ctl.Unlock()
			return w.inflight != nil
		}, time.Second, time.Millisecond)

		require.NoError(t, w.Cancel())
		wg.Wait()
		assert.True(t, connector.HasCode(execErr, connector.CodeCancelled))
		assert.True(t, exec.cancelled.Load())
		assert.Equal(t, int32(1), exec.closed.Load())
		assert.Equal(t, StateCancelled, w.State())
		assert.Equal(t, int64(1), m.Stats().Cancellations)
		assert.Equal(t, int64(0), m.Stats().Failures)
	})

	t.Run("between batches", func(t *testing.T) {
		exec := &fakeExecution{steps: []step{{row: []any{1}}, {row: []any{2}}}}
		m := newManager(newFakeFactory(exec), WithFetchSize(1))
		w := m.RegisterRequest(request(selectColumns("id")))
		ctx := context.Background()
		require.NoError(t, w.Execute(ctx))

		results, err := w.More(ctx)
		require.NoError(t, err)
		assert.Len(t, results.Rows, 1)

		require.NoError(t, w.Cancel())
		require.NoError(t, w.Cancel())
		assert.Equal(t, int32(1), exec.closed.Load())

		_, err = w.More(ctx)
		assert.True(t, connector.HasCode(err, connector.CodeCancelled))
	})

	t.Run("during next with buffered rows", func(t *testing.T) {
		exec := &fakeExecution{
			steps:       []step{{row: []any{1}}},
			nextBlocked: make(chan struct{}),
		}
		f := newFakeFactory(exec)
		m := newManager(f, WithFetchSize(10))
		w := m.RegisterRequest(request(selectColumns("id")))
		ctx := context.Background()
		require.NoError(t, w.Execute(ctx))

		go func() {
			<-exec.nextBlocked
			_ = w.Cancel()
		}()

		results, err := w.More(ctx)
		require.NoError(t, err)
		assert.Equal(t, [][]any{{int32(1)}}, results.Rows)
		assert.Equal(t, StateCancelled, w.State())
		assert.Equal(t, int32(1), exec.closed.Load())
		assert.Equal(t, int32(1), f.conn.closed.Load())

		_, err = w.More(ctx)
		assert.True(t, connector.HasCode(err, connector.CodeCancelled))
		assert.Equal(t, int32(1), f.conn.closed.Load())
	})
}

func TestManager_ConcurrentRegistration(t *testing.T) {
	m := newManager(newFakeFactory(&fakeExecution{}))
	const n = 64

	ids := make([]AtomicRequestID, n)
	var wg sync.WaitGroup
	for i := range n {
		ids[i] = AtomicRequestID{RequestID: NewRequestID(), NodeID: i, ExecutionID: 1}
		wg.Add(1)
		go func(id AtomicRequestID) {
			defer wg.Done()
			msg := request(selectColumns("id"))
			msg.ID = id
			m.RegisterRequest(msg)
		}(ids[i])
	}
	wg.Wait()
	assert.Equal(t, n, m.Size())

	for _, id := range ids {
		wg.Add(1)
		go func(id AtomicRequestID) {
			defer wg.Done()
			_, ok := m.State(id)
			assert.True(t, ok)
			m.RemoveState(id)
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 0, m.Size())
}

func TestWorkItem_ExecuteTwice(t *testing.T) {
	m := newManager(newFakeFactory(&fakeExecution{}))
	w := m.RegisterRequest(request(selectColumns("id")))
	require.NoError(t, w.Execute(context.Background()))
	err := w.Execute(context.Background())
	assert.True(t, connector.HasCode(err, connector.CodeContractViolation))
}

func TestWorkItem_ConnectionFailure(t *testing.T) {
	f := newFakeFactory(&fakeExecution{})
	f.connErr = errors.New("refused")
	m := newManager(f)
	w := m.RegisterRequest(request(selectColumns("id")))

	err := w.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestWorkItem_Warnings(t *testing.T) {
	exec := &fakeExecution{steps: []step{{row: []any{1}}}}
	m := newManager(newFakeFactory(exec))
	w := m.RegisterRequest(request(selectColumns("id")))
	ctx := context.Background()
	require.NoError(t, w.Execute(ctx))

	w.ExecutionContext().AddWarning(errors.New("truncated"))
	results, err := w.More(ctx)
	require.NoError(t, err)
	require.Len(t, results.Warnings, 1)
	assert.EqualError(t, results.Warnings[0], "truncated")
}

func TestWorkItem_CommandLog(t *testing.T) {
	log := commandlog.NewSlogLogger(nil, 10)
	exec := &fakeExecution{steps: []step{{row: []any{1}}}}
	m := newManager(newFakeFactory(exec), WithCommandLogger(log))
	msg := request(selectColumns("id"))
	msg.User = "ana"
	w := m.RegisterRequest(msg)
	ctx := context.Background()
	require.NoError(t, w.Execute(ctx))
	_, err := w.More(ctx)
	require.NoError(t, err)

	events, err := log.Query(ctx, commandlog.QueryFilter{RequestID: msg.ID.RequestID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, commandlog.StatusEnd, events[0].Status)
	assert.Equal(t, 1, events[0].RowCount)
	assert.Equal(t, commandlog.StatusStart, events[1].Status)
	assert.Equal(t, "ana", events[1].UserID)
	assert.Equal(t, "src", events[1].Connector)
	assert.Equal(t, "SELECT items.id FROM items", events[1].SQL)
}

func TestManager_StartAndCapabilities(t *testing.T) {
	ctx := context.Background()

	t.Run("no connection needed", func(t *testing.T) {
		f := newFakeFactory(&fakeExecution{})
		m := NewConnectorManager("src", f)
		require.NoError(t, m.Start(ctx))
		require.NoError(t, m.Start(ctx))

		caps, err := m.Capabilities(ctx)
		require.NoError(t, err)
		assert.True(t, caps.OrderBy)
		_, err = m.Capabilities(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(1), f.capsInit.Load())
	})

	t.Run("connection required but missing", func(t *testing.T) {
		f := newFakeFactory(&fakeExecution{})
		f.SetSourceRequiredForCapabilities(true)
		m := NewConnectorManager("src", f)
		err := m.Start(ctx)
		assert.True(t, connector.HasCode(err, connector.CodeCapabilities))
		assert.Equal(t, StatusInitFailed, m.Status(ctx))

		_, err = m.Capabilities(ctx)
		assert.True(t, connector.HasCode(err, connector.CodeCapabilities))
	})

	t.Run("connection required", func(t *testing.T) {
		f := newFakeFactory(&fakeExecution{})
		f.SetSourceRequiredForCapabilities(true)
		m := newManager(f)
		require.NoError(t, m.Start(ctx))
		_, err := m.Capabilities(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(1), f.conn.closed.Load())
	})

	t.Run("start failure", func(t *testing.T) {
		f := newFakeFactory(&fakeExecution{})
		f.startErr = errors.New("bad config")
		m := newManager(f)
		assert.Error(t, m.Start(ctx))
		assert.Equal(t, StatusInitFailed, m.Status(ctx))
	})
}

func TestManager_Status(t *testing.T) {
	ctx := context.Background()
	f := newFakeFactory(&fakeExecution{})
	m := newManager(f)
	assert.Equal(t, StatusUnknown, m.Status(ctx))

	require.NoError(t, m.Start(ctx))
	assert.Equal(t, StatusOK, m.Status(ctx))

	f.conn.pingErr = errors.New("down")
	assert.Equal(t, StatusFailed, m.Status(ctx))

	f.connErr = errors.New("refused")
	assert.Equal(t, StatusFailed, m.Status(ctx))

	f.SetSourceRequired(false)
	assert.Equal(t, StatusUnknown, m.Status(ctx))
}

func TestManager_Stop(t *testing.T) {
	exec := &fakeExecution{steps: []step{{row: []any{1}}, {row: []any{2}}}}
	m := newManager(newFakeFactory(exec), WithFetchSize(1))
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	w := m.RegisterRequest(request(selectColumns("id")))
	require.NoError(t, w.Execute(ctx))

	require.NoError(t, m.Stop(ctx))
	assert.Equal(t, 0, m.Size())
	assert.True(t, exec.cancelled.Load())
	assert.Equal(t, int32(1), exec.closed.Load())
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()
	a := newManager(newFakeFactory(&fakeExecution{}))
	b := NewConnectorManager("other", newFakeFactory(&fakeExecution{}))

	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))
	assert.ErrorIs(t, r.Add(a), ErrDuplicateConnector)
	assert.Equal(t, []string{"other", "src"}, r.Names())

	got, ok := r.Get("src")
	require.True(t, ok)
	assert.Same(t, a, got)

	require.NoError(t, r.StartAll(ctx))
	require.NoError(t, r.StopAll(ctx))

	r.Remove("src")
	_, ok = r.Get("src")
	assert.False(t, ok)
}

func TestConvertToRuntimeType(t *testing.T) {
	v, err := ConvertToRuntimeType(nil, datatype.Integer)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ConvertToRuntimeType(int64(4), datatype.Integer)
	require.NoError(t, err)
	assert.Equal(t, int32(4), v)

	v, err = ConvertToRuntimeType(&connector.StreamSource{Reader: bytes.NewBufferString("<a/>")}, datatype.XML)
	require.NoError(t, err)
	x, ok := v.(*datatype.XMLType)
	require.True(t, ok)
	text, err := x.Text()
	require.NoError(t, err)
	assert.Equal(t, "<a/>", text)

	v, err = ConvertToRuntimeType(bytes.NewBufferString("hello"), datatype.Clob)
	require.NoError(t, err)
	c, ok := v.(*datatype.ClobType)
	require.True(t, ok)
	text, err = c.Text()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = ConvertToRuntimeType("abc", datatype.Integer)
	var te *datatype.TransformationError
	assert.True(t, errors.As(err, &te))
}

func TestAtomicRequestID(t *testing.T) {
	id := AtomicRequestID{RequestID: "r", NodeID: 2, ExecutionID: 3}
	assert.Equal(t, "r.2.3", id.String())
	assert.NotEqual(t, NewRequestID(), NewRequestID())
	assert.Equal(t, "MORE_AVAILABLE", StateMoreAvailable.String())
}
