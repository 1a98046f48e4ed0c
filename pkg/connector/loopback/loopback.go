package loopback

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"math/big"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
)

// ErrRequested is returned by Execute when Config.Error is set.
var ErrRequested = errors.New("loopback failure requested by configuration")

var errCancelled = errors.New("loopback execution cancelled")

// ExecutionFactory creates loopback executions. It needs no connection.
type ExecutionFactory struct {
	connector.BaseExecutionFactory
	cfg Config
}

// New creates a factory.
func New(cfg Config) *ExecutionFactory {
	f := &ExecutionFactory{cfg: cfg}
	f.SetSourceRequired(false)
	f.SetImmutable(cfg.Immutable)
	f.SetCopyLobs(cfg.CopyLobs)
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

// GetConnection returns a nil connection.
func (*ExecutionFactory) GetConnection(context.Context, connector.ConnectionFactory, *connector.ExecutionContext) (connector.Connection, error) {
	return nil, nil
}

// CreateExecution returns an execution matching the command kind.
func (f *ExecutionFactory) CreateExecution(_ context.Context, cmd lom.Command, _ *connector.ExecutionContext, _ connector.RuntimeMetadata, _ connector.Connection) (connector.Execution, error) {
	switch c := cmd.(type) {
	case lom.QueryExpression:
		return &queryExecution{execution: execution{cfg: f.cfg, types: c.ColumnTypes()}}, nil
	case *lom.Call:
		e := &procedureExecution{call: c}
		e.cfg = f.cfg
		e.types = c.ResultSetColumnTypes()
		return e, nil
	default:
		return &updateExecution{execution: execution{cfg: f.cfg}, counts: updateCounts(cmd)}, nil
	}
}

type execution struct {
	cfg       Config
	types     []datatype.Type
	cancelled atomic.Bool
}

func (e *execution) Execute(ctx context.Context) error {
	if e.cfg.Error {
		return ErrRequested
	}
	if e.cfg.WaitTime <= 0 {
		return nil
	}
	timer := time.NewTimer(rand.N(e.cfg.WaitTime))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (*execution) Close() error { return nil }

func (e *execution) Cancel() error {
	e.cancelled.Store(true)
	return nil
}

type queryExecution struct {
	execution
	returned int
	polled   bool
}

func (e *queryExecution) Next(ctx context.Context) ([]any, error) {
	if e.cancelled.Load() {
		return nil, errCancelled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.returned >= e.cfg.RowCount {
		return nil, nil
	}
	if e.cfg.PollInterval > 0 && !e.polled {
		e.polled = true
		return nil, connector.NewDataNotAvailable(e.cfg.PollInterval)
	}
	e.polled = false

	n := 0
	if e.cfg.IncrementRows {
		n = e.returned
	}
	row := make([]any, len(e.types))
	for i, t := range e.types {
		row[i] = value(t, n, e.cfg.CharValue)
	}
	e.returned++
	return row, nil
}

type procedureExecution struct {
	queryExecution
	call *lom.Call
}

func (e *procedureExecution) OutputParameterValues(context.Context) ([]any, error) {
	var out []any
	if e.call.ReturnType != "" {
		out = append(out, value(e.call.ReturnType, 0, e.cfg.CharValue))
	}
	for _, arg := range e.call.Arguments {
		if arg.Direction == metadata.DirectionOut || arg.Direction == metadata.DirectionInOut {
			out = append(out, value(arg.DataType, 0, e.cfg.CharValue))
		}
	}
	return out, nil
}

type updateExecution struct {
	execution
	counts []int
}

func (e *updateExecution) UpdateCounts(context.Context) ([]int, error) {
	if e.cancelled.Load() {
		return nil, errCancelled
	}
	return e.counts, nil
}

func updateCounts(cmd lom.Command) []int {
	rows := 1
	switch c := cmd.(type) {
	case *lom.BatchedUpdates:
		if c.SingleResult {
			return []int{len(c.Updates)}
		}
		rows = len(c.Updates)
	case *lom.Insert:
		rows = max(len(c.ParameterValues), 1)
	case *lom.Update:
		rows = max(len(c.ParameterValues), 1)
	case *lom.Delete:
		rows = max(len(c.ParameterValues), 1)
	}
	counts := make([]int, rows)
	for i := range counts {
		counts[i] = 1
	}
	return counts
}

// value fabricates a value of type t. LOB types are returned in their
// streamed source forms so callers exercise conversion.
func value(t datatype.Type, n int, chars string) any {
	if t.IsArray() {
		return []any{value(t.ComponentType(), n, chars)}
	}
	switch t {
	case datatype.String, datatype.Object:
		return chars
	case datatype.Char:
		if chars == "" {
			return " "
		}
		return chars[:1]
	case datatype.Boolean:
		return n%2 == 1
	case datatype.Byte:
		return int8(n)
	case datatype.Short:
		return int16(n)
	case datatype.Integer:
		return int32(n)
	case datatype.Long:
		return int64(n)
	case datatype.BigInteger:
		return big.NewInt(int64(n))
	case datatype.Float:
		return float32(n)
	case datatype.Double:
		return float64(n)
	case datatype.BigDecimal:
		return new(big.Float).SetInt64(int64(n))
	case datatype.Date, datatype.Timestamp:
		return time.Unix(0, 0).UTC().AddDate(0, 0, n)
	case datatype.Time:
		return time.Unix(int64(n), 0).UTC()
	case datatype.VarBinary:
		return []byte(chars)
	case datatype.Blob:
		return bytes.NewReader([]byte(chars))
	case datatype.Clob:
		return strings.NewReader(chars)
	case datatype.XML:
		var buf strings.Builder
		buf.WriteString("<value>")
		_ = xml.EscapeText(&buf, []byte(chars))
		buf.WriteString("</value>")
		return &connector.StreamSource{Reader: strings.NewReader(buf.String())}
	default:
		return nil
	}
}

var (
	_ connector.ExecutionFactory   = (*ExecutionFactory)(nil)
	_ connector.ResultSetExecution = (*queryExecution)(nil)
	_ connector.ProcedureExecution = (*procedureExecution)(nil)
	_ connector.UpdateExecution    = (*updateExecution)(nil)
)
