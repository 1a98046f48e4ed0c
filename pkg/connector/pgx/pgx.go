// Package pgx is a native PostgreSQL connector on a pgx connection pool.
package pgx

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/connector/sqldb"
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
)

// Querier is the part of a pgx connection executions use.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// ExecutionFactory creates executions over a *pgxpool.Pool.
type ExecutionFactory struct {
	connector.BaseExecutionFactory
	renderer sqldb.Renderer
}

// New creates a factory.
func New(cfg Config) *ExecutionFactory {
	f := &ExecutionFactory{renderer: sqldb.Renderer{Placeholder: sqldb.PlaceholderFor("pgx")}}
	f.SetImmutable(cfg.Immutable)
	f.SetCopyLobs(cfg.CopyLobs)
	f.SetTransactionSupport(cfg.TransactionSupport)
	f.SetCapabilities(connector.Capabilities{
		SelectDistinct: true,
		InnerJoins:     true,
		OuterJoins:     true,
		OrderBy:        true,
		GroupBy:        true,
		Aggregates:     true,
		InCriteria:     true,
		LikeCriteria:   true,
		Subqueries:     true,
		SetQueries:     true,
		RowLimit:       true,
		BulkUpdate:     true,
		BatchedUpdates: true,
		Procedures:     true,
	})
	return f
}

// Pool is a connection pool that satisfies io.Closer, so the engine
// manager closes it on stop.
type Pool struct {
	*pgxpool.Pool
}

// Close closes every connection in the pool.
func (p *Pool) Close() error {
	p.Pool.Close()
	return nil
}

// Open creates the pool described by cfg.
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pcfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// Conn is a connection acquired from the pool. Close releases it.
type Conn struct {
	*pgxpool.Conn
}

// Close returns the connection to the pool.
func (c *Conn) Close() error {
	c.Release()
	return nil
}

// GetConnection acquires a connection from the pool in cf, a *Pool or a
// *pgxpool.Pool.
func (*ExecutionFactory) GetConnection(ctx context.Context, cf connector.ConnectionFactory, _ *connector.ExecutionContext) (connector.Connection, error) {
	var pool *pgxpool.Pool
	switch cf := cf.(type) {
	case *Pool:
		pool = cf.Pool
	case *pgxpool.Pool:
		pool = cf
	default:
		return nil, fmt.Errorf("connection factory is %T, want *pgx.Pool", cf)
	}
	c, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &Conn{Conn: c}, nil
}

// CreateExecution renders cmd and returns the matching execution. conn may
// be any Querier.
func (f *ExecutionFactory) CreateExecution(_ context.Context, cmd lom.Command, ec *connector.ExecutionContext, _ connector.RuntimeMetadata, conn connector.Connection) (connector.Execution, error) {
	q, ok := conn.(Querier)
	if !ok {
		return nil, fmt.Errorf("connection %T does not support queries", conn)
	}

	switch cmd := cmd.(type) {
	case lom.QueryExpression:
		stmt, err := f.renderer.Query(cmd)
		if err != nil {
			return nil, err
		}
		return &queryExecution{execution: newExecution(q, ec), stmt: stmt, types: cmd.ColumnTypes()}, nil
	case *lom.Call:
		stmt, err := f.renderer.Call(cmd)
		if err != nil {
			return nil, err
		}
		return newProcedureExecution(newExecution(q, ec), stmt, cmd), nil
	default:
		stmts, err := f.renderer.Updates(cmd)
		if err != nil {
			return nil, err
		}
		single := false
		if b, ok := cmd.(*lom.BatchedUpdates); ok {
			single = b.SingleResult
		}
		return &updateExecution{execution: newExecution(q, ec), stmts: stmts, singleResult: single}, nil
	}
}

// execution owns the context the statement runs under. Per-call contexts
// only cancel it while the call is in progress.
type execution struct {
	q      Querier
	ec     *connector.ExecutionContext
	ctx    context.Context
	cancel context.CancelFunc
}

func newExecution(q Querier, ec *connector.ExecutionContext) execution {
	ctx, cancel := context.WithCancel(context.Background())
	return execution{q: q, ec: ec, ctx: ctx, cancel: cancel}
}

func (e *execution) during(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, e.cancel)
}

func (e *execution) Cancel() error {
	e.cancel()
	return nil
}

type queryExecution struct {
	execution
	stmt  sqldb.Statement
	types []datatype.Type
	rows  pgx.Rows
}

func (e *queryExecution) Execute(ctx context.Context) error {
	stop := e.during(ctx)
	defer stop()

	rows, err := e.q.Query(e.ctx, e.stmt.SQL, e.stmt.Args...)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	e.rows = rows
	return nil
}

func (e *queryExecution) Next(ctx context.Context) ([]any, error) {
	stop := e.during(ctx)
	defer stop()

	if !e.rows.Next() {
		if err := e.rows.Err(); err != nil {
			return nil, fmt.Errorf("reading rows: %w", err)
		}
		return nil, nil
	}
	values, err := e.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("decoding row: %w", err)
	}
	for i, v := range values {
		values[i] = normalize(v)
	}
	return values, nil
}

func (e *queryExecution) Close() error {
	e.cancel()
	if e.rows != nil {
		e.rows.Close()
	}
	return nil
}

// normalize maps pgx-specific decodings onto runtime values.
func normalize(v any) any {
	switch v := v.(type) {
	case pgtype.Numeric:
		if !v.Valid {
			return nil
		}
		s, err := v.Value()
		if err != nil {
			return nil
		}
		return s
	case [16]byte:
		return uuid.UUID(v).String()
	default:
		return v
	}
}

// procedureExecution reads procedure results. A procedure without a result
// set returns its output values as its only row; otherwise values past the
// result-set width are taken as output values.
type procedureExecution struct {
	queryExecution
	resultSetSize int
	outputCount   int
	outputs       []any
}

func newProcedureExecution(base execution, stmt sqldb.Statement, call *lom.Call) *procedureExecution {
	e := &procedureExecution{resultSetSize: len(call.ResultSetColumnTypes())}
	e.execution = base
	e.stmt = stmt
	e.types = call.ResultSetColumnTypes()
	if call.ReturnType != "" {
		e.outputCount++
	}
	for _, a := range call.Arguments {
		if a.Direction == metadata.DirectionOut || a.Direction == metadata.DirectionInOut {
			e.outputCount++
		}
	}
	return e
}

func (e *procedureExecution) Next(ctx context.Context) ([]any, error) {
	if e.resultSetSize == 0 {
		if e.outputCount > 0 && e.outputs == nil {
			row, err := e.queryExecution.Next(ctx)
			if err != nil {
				return nil, err
			}
			e.outputs = row
		}
		return nil, nil
	}

	row, err := e.queryExecution.Next(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	if len(row) > e.resultSetSize {
		e.outputs = row[e.resultSetSize:]
		row = row[:e.resultSetSize]
	}
	return row, nil
}

func (e *procedureExecution) OutputParameterValues(context.Context) ([]any, error) {
	out := make([]any, e.outputCount)
	copy(out, e.outputs)
	return out, nil
}

type updateExecution struct {
	execution
	stmts        []sqldb.Statement
	singleResult bool
	counts       []int
}

// Execute runs a single statement directly and several as one batch, which
// PostgreSQL applies in an implicit transaction.
func (e *updateExecution) Execute(ctx context.Context) error {
	stop := e.during(ctx)
	defer stop()

	counts := make([]int, 0, len(e.stmts))
	if len(e.stmts) == 1 {
		tag, err := e.q.Exec(e.ctx, e.stmts[0].SQL, e.stmts[0].Args...)
		if err != nil {
			return fmt.Errorf("running statement: %w", err)
		}
		counts = append(counts, int(tag.RowsAffected()))
	} else {
		batch := &pgx.Batch{}
		for _, s := range e.stmts {
			batch.Queue(s.SQL, s.Args...)
		}
		br := e.q.SendBatch(e.ctx, batch)
		for i := range e.stmts {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("running statement %d: %w", i+1, err)
			}
			counts = append(counts, int(tag.RowsAffected()))
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("closing batch: %w", err)
		}
	}

	if e.singleResult {
		total := 0
		for _, c := range counts {
			total += c
		}
		counts = []int{total}
	}
	e.counts = counts
	return nil
}

func (e *updateExecution) UpdateCounts(context.Context) ([]int, error) {
	return e.counts, nil
}

func (e *updateExecution) Close() error {
	e.cancel()
	return nil
}
