// Package sqldb is a connector for database/sql sources. Commands are
// rendered to SQL with bind arguments and run on a connection checked out
// of a *sql.DB pool.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
)

// ExecutionFactory creates executions over *sql.DB connection factories.
type ExecutionFactory struct {
	connector.BaseExecutionFactory
	cfg      Config
	renderer Renderer
}

// New creates a factory.
func New(cfg Config) *ExecutionFactory {
	f := &ExecutionFactory{cfg: cfg, renderer: Renderer{Placeholder: PlaceholderFor(cfg.Driver)}}
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
		MaxInCriteria:  1000,
	})
	return f
}

// Open opens the pool described by cfg. The pool is the connection factory
// for this connector.
func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Conn is a connection checked out of the pool.
type Conn struct {
	*sql.Conn
}

// Ping checks the connection.
func (c *Conn) Ping(ctx context.Context) error {
	return c.PingContext(ctx)
}

// GetConnection checks a connection out of the *sql.DB in cf.
func (*ExecutionFactory) GetConnection(ctx context.Context, cf connector.ConnectionFactory, _ *connector.ExecutionContext) (connector.Connection, error) {
	db, ok := cf.(*sql.DB)
	if !ok {
		return nil, fmt.Errorf("connection factory is %T, want *sql.DB", cf)
	}
	c, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &Conn{Conn: c}, nil
}

// CreateExecution renders cmd and returns the matching execution.
func (f *ExecutionFactory) CreateExecution(_ context.Context, cmd lom.Command, ec *connector.ExecutionContext, _ connector.RuntimeMetadata, conn connector.Connection) (connector.Execution, error) {
	c, ok := conn.(*Conn)
	if !ok {
		return nil, fmt.Errorf("connection is %T, want *sqldb.Conn", conn)
	}

	switch cmd := cmd.(type) {
	case lom.QueryExpression:
		stmt, err := f.renderer.Query(cmd)
		if err != nil {
			return nil, err
		}
		return &queryExecution{execution: newExecution(c, ec), stmt: stmt, types: cmd.ColumnTypes()}, nil
	case *lom.Call:
		stmt, err := f.renderer.Call(cmd)
		if err != nil {
			return nil, err
		}
		return newProcedureExecution(newExecution(c, ec), stmt, cmd), nil
	default:
		stmts, err := f.renderer.Updates(cmd)
		if err != nil {
			return nil, err
		}
		single := false
		if b, ok := cmd.(*lom.BatchedUpdates); ok {
			single = b.SingleResult
		}
		return &updateExecution{execution: newExecution(c, ec), stmts: stmts, singleResult: single}, nil
	}
}

// execution holds the context the source statement runs under. It outlives
// the per-call contexts the engine passes in, which only cancel it while a
// call is in progress.
type execution struct {
	conn   *Conn
	ec     *connector.ExecutionContext
	ctx    context.Context
	cancel context.CancelFunc
}

func newExecution(conn *Conn, ec *connector.ExecutionContext) execution {
	ctx, cancel := context.WithCancel(context.Background())
	return execution{conn: conn, ec: ec, ctx: ctx, cancel: cancel}
}

// during ties the statement context to ctx until the returned func is
// called.
func (e *execution) during(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, e.cancel)
}

func (e *execution) Cancel() error {
	e.cancel()
	return nil
}

type queryExecution struct {
	execution
	stmt  Statement
	types []datatype.Type
	rows  *sql.Rows
	width int
}

func (e *queryExecution) Execute(ctx context.Context) error {
	stop := e.during(ctx)
	defer stop()

	rows, err := e.conn.QueryContext(e.ctx, e.stmt.SQL, e.stmt.Args...)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return fmt.Errorf("reading columns: %w", err)
	}
	e.rows = rows
	e.width = len(cols)
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
	values := make([]any, e.width)
	dest := make([]any, e.width)
	for i := range values {
		dest[i] = &values[i]
	}
	if err := e.rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}
	return normalize(values, e.types), nil
}

func (e *queryExecution) Close() error {
	defer e.cancel()
	if e.rows == nil {
		return nil
	}
	return e.rows.Close()
}

// normalize turns driver text returned as bytes into strings for columns
// that are not binary.
func normalize(values []any, types []datatype.Type) []any {
	for i, v := range values {
		b, ok := v.([]byte)
		if !ok {
			continue
		}
		if i < len(types) && (types[i] == datatype.VarBinary || types[i] == datatype.Blob || types[i] == datatype.Object) {
			values[i] = append([]byte(nil), b...)
			continue
		}
		values[i] = string(b)
	}
	return values
}

// procedureExecution reads procedure results. A procedure without a result
// set returns its output values as its only row; otherwise values past the
// result-set width of the last row are taken as output values.
type procedureExecution struct {
	queryExecution
	resultSetSize int
	outputCount   int
	outputs       []any
}

func newProcedureExecution(base execution, stmt Statement, call *lom.Call) *procedureExecution {
	e := &procedureExecution{resultSetSize: len(call.ResultSetColumnTypes())}
	e.execution = base
	e.stmt = stmt
	e.types = call.ResultSetColumnTypes()
	if call.ReturnType != "" {
		e.types = append(e.types, call.ReturnType)
		e.outputCount++
	}
	for _, a := range call.Arguments {
		if a.Direction == metadata.DirectionOut || a.Direction == metadata.DirectionInOut {
			e.types = append(e.types, a.DataType)
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
	stmts        []Statement
	singleResult bool
	counts       []int
}

// Execute runs every statement. Outside an engine transaction, more than
// one statement runs in a local transaction.
func (e *updateExecution) Execute(ctx context.Context) error {
	stop := e.during(ctx)
	defer stop()

	if len(e.stmts) <= 1 || e.ec == nil || e.ec.Transactional {
		return e.run(e.conn)
	}

	tx, err := e.conn.BeginTx(e.ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := e.run(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.ec.AddWarning(fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (e *updateExecution) run(db execer) error {
	counts := make([]int, 0, len(e.stmts))
	for i, stmt := range e.stmts {
		res, err := db.ExecContext(e.ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return fmt.Errorf("running statement %d: %w", i+1, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		}
		counts = append(counts, int(n))
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
