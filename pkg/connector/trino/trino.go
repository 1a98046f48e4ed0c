// Package trino is a connector that pushes queries down to a Trino cluster
// through the mcp-trino client.
package trino

import (
	"context"
	"errors"
	"fmt"
	"strings"

	trinoclient "github.com/txn2/mcp-trino/pkg/client"

	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/lom"
)

// ErrReadOnly is returned for a write against a read-only connector.
var ErrReadOnly = errors.New("trino connector is read-only")

// ErrParameterValues is returned for commands that carry parameter rows.
// The Trino client has no bind arguments.
var ErrParameterValues = errors.New("trino connector does not accept parameter values")

// Client is the part of the Trino client executions use. It is the
// connection factory for this connector.
type Client interface {
	Query(ctx context.Context, sql string, opts trinoclient.QueryOptions) (*trinoclient.QueryResult, error)
	Close() error
}

// Open creates a client for cfg.
func Open(cfg Config) (*trinoclient.Client, error) {
	client, err := trinoclient.New(trinoclient.Config{
		Host:      cfg.Host,
		Port:      cfg.Port,
		User:      cfg.User,
		Password:  cfg.Password,
		Catalog:   cfg.Catalog,
		Schema:    cfg.Schema,
		SSL:       cfg.SSL,
		SSLVerify: cfg.SSLVerify,
		Timeout:   cfg.Timeout,
		Source:    cfg.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("creating trino client: %w", err)
	}
	return client, nil
}

// ExecutionFactory creates executions against a Client.
type ExecutionFactory struct {
	connector.BaseExecutionFactory
	readOnly bool
}

// New creates a factory.
func New(cfg Config) *ExecutionFactory {
	f := &ExecutionFactory{readOnly: cfg.ReadOnly}
	f.SetImmutable(cfg.Immutable)
	f.SetTransactionSupport(connector.TransactionNone)
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
		BulkUpdate:     !cfg.ReadOnly,
		BatchedUpdates: !cfg.ReadOnly,
	})
	return f
}

// Conn is a handle on the shared client. Closing it leaves the client open.
type Conn struct {
	client Client
}

// Close does nothing; the client outlives its connections.
func (*Conn) Close() error { return nil }

// Ping runs a trivial query.
func (c *Conn) Ping(ctx context.Context) error {
	if _, err := c.client.Query(ctx, "SELECT 1", trinoclient.QueryOptions{}); err != nil {
		return fmt.Errorf("pinging trino: %w", err)
	}
	return nil
}

// GetConnection wraps the Client in cf.
func (*ExecutionFactory) GetConnection(_ context.Context, cf connector.ConnectionFactory, _ *connector.ExecutionContext) (connector.Connection, error) {
	client, ok := cf.(Client)
	if !ok {
		return nil, fmt.Errorf("connection factory is %T, want trino.Client", cf)
	}
	return &Conn{client: client}, nil
}

// CreateExecution renders cmd with literals inlined.
func (f *ExecutionFactory) CreateExecution(_ context.Context, cmd lom.Command, _ *connector.ExecutionContext, _ connector.RuntimeMetadata, conn connector.Connection) (connector.Execution, error) {
	c, ok := conn.(*Conn)
	if !ok {
		return nil, fmt.Errorf("connection is %T, want *trino.Conn", conn)
	}

	switch cmd := cmd.(type) {
	case lom.QueryExpression:
		q, names := project(cmd)
		sql, err := render(q)
		if err != nil {
			return nil, err
		}
		return &queryExecution{execution: newExecution(c.client), sql: sql, names: names}, nil
	case *lom.Call:
		return nil, fmt.Errorf("procedure %s: trino connector does not support procedures", cmd.Name)
	default:
		if f.readOnly {
			return nil, ErrReadOnly
		}
		var stmts []string
		single := false
		if b, ok := cmd.(*lom.BatchedUpdates); ok {
			single = b.SingleResult
			for _, u := range b.Updates {
				sql, err := render(u)
				if err != nil {
					return nil, err
				}
				stmts = append(stmts, sql)
			}
		} else {
			sql, err := render(cmd)
			if err != nil {
				return nil, err
			}
			stmts = []string{sql}
		}
		return &updateExecution{execution: newExecution(c.client), stmts: stmts, singleResult: single}, nil
	}
}

func render(cmd lom.Command) (string, error) {
	if _, args := (&lom.Renderer{Bind: true}).Render(cmd); len(args) > 0 {
		for _, a := range args {
			if _, ok := a.(lom.ParameterMarker); ok {
				return "", ErrParameterValues
			}
		}
	}
	return lom.SQLString(cmd), nil
}

// project gives every projected column a known alias so result maps can be
// read back in column order. Explicit aliases are kept.
func project(q lom.QueryExpression) (lom.QueryExpression, []string) {
	switch q := q.(type) {
	case *lom.Select:
		s := *q
		s.DerivedColumns = make([]*lom.DerivedColumn, len(q.DerivedColumns))
		names := make([]string, len(q.DerivedColumns))
		for i, dc := range q.DerivedColumns {
			names[i] = dc.Alias
			if names[i] == "" {
				names[i] = fmt.Sprintf("c_%d", i)
			}
			s.DerivedColumns[i] = &lom.DerivedColumn{Alias: names[i], Expression: dc.Expression}
		}
		return &s, names
	case *lom.SetQuery:
		s := *q
		left, names := project(q.Left)
		s.Left = left
		return &s, names
	default:
		return q, nil
	}
}

type execution struct {
	client Client
	ctx    context.Context
	cancel context.CancelFunc
}

func newExecution(client Client) execution {
	ctx, cancel := context.WithCancel(context.Background())
	return execution{client: client, ctx: ctx, cancel: cancel}
}

func (e *execution) during(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, e.cancel)
}

func (e *execution) Cancel() error {
	e.cancel()
	return nil
}

func (e *execution) Close() error {
	e.cancel()
	return nil
}

func (e *execution) query(ctx context.Context, sql string) (*trinoclient.QueryResult, error) {
	stop := e.during(ctx)
	defer stop()
	return e.client.Query(e.ctx, sql, trinoclient.QueryOptions{})
}

type queryExecution struct {
	execution
	sql   string
	names []string
	rows  []map[string]any
	pos   int
}

func (e *queryExecution) Execute(ctx context.Context) error {
	result, err := e.query(ctx, e.sql)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	if result != nil {
		e.rows = result.Rows
	}
	return nil
}

func (e *queryExecution) Next(context.Context) ([]any, error) {
	if e.pos >= len(e.rows) {
		return nil, nil
	}
	m := e.rows[e.pos]
	e.pos++

	row := make([]any, len(e.names))
	for i, name := range e.names {
		row[i] = lookup(m, name)
	}
	return row, nil
}

// lookup reads a column by name. Trino folds unquoted identifiers to lower
// case, so a case-insensitive match is accepted.
func lookup(m map[string]any, name string) any {
	if v, ok := m[name]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

type updateExecution struct {
	execution
	stmts        []string
	singleResult bool
	counts       []int
}

// Execute runs each statement in turn. Trino reports the affected row
// count in a single "rows" column.
func (e *updateExecution) Execute(ctx context.Context) error {
	counts := make([]int, 0, len(e.stmts))
	for i, sql := range e.stmts {
		result, err := e.query(ctx, sql)
		if err != nil {
			return fmt.Errorf("running statement %d: %w", i+1, err)
		}
		n, err := rowCount(result)
		if err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
		counts = append(counts, n)
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

func rowCount(result *trinoclient.QueryResult) (int, error) {
	if result == nil || len(result.Rows) == 0 {
		return 0, nil
	}
	v := lookup(result.Rows[0], "rows")
	if v == nil {
		return 0, nil
	}
	n, err := datatype.Transform(v, datatype.Long)
	if err != nil {
		return 0, fmt.Errorf("reading update count: %w", err)
	}
	return int(n.(int64)), nil
}
