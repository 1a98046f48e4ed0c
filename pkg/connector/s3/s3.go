// Package s3 is a connector that exposes S3 object listings. A table's
// source name is "bucket" or "bucket/prefix"; the list_objects procedure
// takes the bucket and prefix as arguments.
package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	s3client "github.com/txn2/mcp-s3/pkg/client"

	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
)

// Listing columns and procedure parameters, matched case-insensitively.
const (
	ColumnBucket       = "bucket"
	ColumnKey          = "key"
	ColumnSize         = "size"
	ColumnLastModified = "last_modified"

	ParamBucket   = "bucket"
	ParamPrefix   = "prefix"
	ParamMaxKeys  = "max_keys"
	ParamKeyCount = "key_count"

	// ProcedureListObjects is the only procedure the connector runs.
	ProcedureListObjects = "list_objects"
)

// ErrReadOnly is returned for any write.
var ErrReadOnly = errors.New("s3 connector is read-only")

// Client is the part of the S3 client executions use. It is the connection
// factory for this connector.
type Client interface {
	ListObjects(ctx context.Context, bucket, prefix, delimiter string, maxKeys int32, continueToken string) (*s3client.ListObjectsOutput, error)
	Close() error
}

// Open creates a client for cfg.
func Open(ctx context.Context, cfg Config) (*s3client.Client, error) {
	client, err := s3client.New(ctx, &s3client.Config{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretKey,
		Name:            cfg.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	return client, nil
}

// ExecutionFactory creates listing executions. Listings never change
// inside a transaction, so the factory is immutable.
type ExecutionFactory struct {
	connector.BaseExecutionFactory
	maxKeys int
}

// New creates a factory.
func New(cfg Config) *ExecutionFactory {
	f := &ExecutionFactory{maxKeys: cfg.MaxKeys}
	if f.maxKeys <= 0 || f.maxKeys > maxKeysLimit {
		f.maxKeys = defaultMaxKeys
	}
	f.SetImmutable(true)
	f.SetTransactionSupport(connector.TransactionNone)
	f.SetCapabilities(connector.Capabilities{
		RowLimit:      true,
		Procedures:    true,
		MaxFromGroups: 1,
	})
	return f
}

// Conn is a handle on the shared client.
type Conn struct {
	client Client
}

// Close does nothing; the client outlives its connections.
func (*Conn) Close() error { return nil }

// GetConnection wraps the Client in cf.
func (*ExecutionFactory) GetConnection(_ context.Context, cf connector.ConnectionFactory, _ *connector.ExecutionContext) (connector.Connection, error) {
	client, ok := cf.(Client)
	if !ok {
		return nil, fmt.Errorf("connection factory is %T, want s3.Client", cf)
	}
	return &Conn{client: client}, nil
}

// CreateExecution supports single-table selects and list_objects calls.
func (f *ExecutionFactory) CreateExecution(_ context.Context, cmd lom.Command, _ *connector.ExecutionContext, _ connector.RuntimeMetadata, conn connector.Connection) (connector.Execution, error) {
	c, ok := conn.(*Conn)
	if !ok {
		return nil, fmt.Errorf("connection is %T, want *s3.Conn", conn)
	}

	switch cmd := cmd.(type) {
	case *lom.Select:
		return f.queryExecution(c.client, cmd)
	case *lom.Call:
		return f.procedureExecution(c.client, cmd)
	case lom.QueryExpression:
		return nil, errors.New("s3 connector does not support set queries")
	default:
		return nil, ErrReadOnly
	}
}

func (f *ExecutionFactory) queryExecution(client Client, s *lom.Select) (*listExecution, error) {
	if len(s.From) != 1 {
		return nil, fmt.Errorf("s3 connector needs exactly one table, got %d", len(s.From))
	}
	nt, ok := s.From[0].(*lom.NamedTable)
	if !ok || nt.Metadata == nil {
		return nil, errors.New("s3 connector needs a catalog table")
	}
	if s.Where != nil || s.GroupBy != nil || s.OrderBy != nil {
		return nil, errors.New("s3 connector supports only projection and row limits")
	}

	columns := make([]string, len(s.DerivedColumns))
	for i, dc := range s.DerivedColumns {
		ref, ok := dc.Expression.(*lom.ColumnReference)
		if !ok {
			return nil, fmt.Errorf("select item %d is not a column", i+1)
		}
		columns[i] = ref.Name
		if ref.Metadata != nil {
			columns[i] = ref.Metadata.SourceName()
		}
		if err := checkColumn(columns[i]); err != nil {
			return nil, err
		}
	}

	bucket, prefix, _ := strings.Cut(nt.Metadata.SourceName(), "/")
	e := newListExecution(client, f.maxKeys)
	e.bucket, e.prefix, e.columns = bucket, prefix, columns
	if s.Limit != nil {
		e.offset = s.Limit.Offset
		if s.Limit.RowLimit+s.Limit.Offset < e.maxKeys {
			e.maxKeys = s.Limit.RowLimit + s.Limit.Offset
		}
	}
	return e, nil
}

func (f *ExecutionFactory) procedureExecution(client Client, call *lom.Call) (*procedureExecution, error) {
	name := call.Name
	if call.Metadata != nil {
		name = call.Metadata.SourceName()
	}
	if !strings.EqualFold(name[strings.LastIndex(name, ".")+1:], ProcedureListObjects) {
		return nil, fmt.Errorf("unknown procedure %s", name)
	}

	e := &procedureExecution{listExecution: *newListExecution(client, f.maxKeys)}
	if call.ReturnType != "" {
		e.outputs = append(e.outputs, ParamKeyCount)
	}
	if call.Metadata != nil {
		for _, col := range call.Metadata.ResultSet {
			if err := checkColumn(col.SourceName()); err != nil {
				return nil, err
			}
			e.columns = append(e.columns, col.SourceName())
		}
	}

	for _, a := range call.Arguments {
		pname := ""
		if a.Metadata != nil {
			pname = a.Metadata.Name
		}
		switch a.Direction {
		case metadata.DirectionOut:
			e.outputs = append(e.outputs, pname)
			continue
		case metadata.DirectionInOut:
			e.outputs = append(e.outputs, pname)
		}

		lit, ok := a.Expression.(*lom.Literal)
		if !ok {
			return nil, fmt.Errorf("argument %s must be a literal", pname)
		}
		switch strings.ToLower(pname) {
		case ParamBucket:
			e.bucket = fmt.Sprint(lit.Value)
		case ParamPrefix:
			if lit.Value != nil {
				e.prefix = fmt.Sprint(lit.Value)
			}
		case ParamMaxKeys:
			n, ok := asInt(lit.Value)
			if !ok || n <= 0 {
				return nil, fmt.Errorf("max_keys must be a positive integer, got %v", lit.Value)
			}
			if n < e.maxKeys {
				e.maxKeys = n
			}
		default:
			return nil, fmt.Errorf("unknown parameter %q for %s", pname, ProcedureListObjects)
		}
	}
	if e.bucket == "" {
		return nil, errors.New("bucket is required")
	}
	return e, nil
}

func checkColumn(name string) error {
	switch strings.ToLower(name) {
	case ColumnBucket, ColumnKey, ColumnSize, ColumnLastModified:
		return nil
	default:
		return fmt.Errorf("unknown s3 listing column %q", name)
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

// listExecution reads one page of objects.
type listExecution struct {
	client  Client
	bucket  string
	prefix  string
	maxKeys int
	offset  int
	columns []string

	ctx    context.Context
	cancel context.CancelFunc
	out    *s3client.ListObjectsOutput
	pos    int
}

func newListExecution(client Client, maxKeys int) *listExecution {
	ctx, cancel := context.WithCancel(context.Background())
	return &listExecution{client: client, maxKeys: maxKeys, ctx: ctx, cancel: cancel}
}

func (e *listExecution) Execute(ctx context.Context) error {
	stop := context.AfterFunc(ctx, e.cancel)
	defer stop()

	out, err := e.client.ListObjects(e.ctx, e.bucket, e.prefix, "", int32(e.maxKeys), "") //nolint:gosec // bounded by maxKeysLimit
	if err != nil {
		return fmt.Errorf("listing s3://%s/%s: %w", e.bucket, e.prefix, err)
	}
	e.out = out
	e.pos = e.offset
	return nil
}

func (e *listExecution) Next(context.Context) ([]any, error) {
	if e.out == nil || e.pos >= len(e.out.Objects) {
		return nil, nil
	}
	obj := e.out.Objects[e.pos]
	e.pos++

	row := make([]any, len(e.columns))
	for i, c := range e.columns {
		switch strings.ToLower(c) {
		case ColumnBucket:
			row[i] = e.bucket
		case ColumnKey:
			row[i] = obj.Key
		case ColumnSize:
			row[i] = obj.Size
		case ColumnLastModified:
			row[i] = obj.LastModified
		}
	}
	return row, nil
}

// Cancel stops a listing in progress.
func (e *listExecution) Cancel() error {
	e.cancel()
	return nil
}

func (e *listExecution) Close() error {
	e.cancel()
	return nil
}

type procedureExecution struct {
	listExecution
	outputs []string
}

// OutputParameterValues reports the key count for the return value and any
// key_count parameter, and nil for other outputs.
func (e *procedureExecution) OutputParameterValues(context.Context) ([]any, error) {
	values := make([]any, len(e.outputs))
	for i, name := range e.outputs {
		if strings.EqualFold(name, ParamKeyCount) && e.out != nil {
			values[i] = int64(e.out.KeyCount)
		}
	}
	return values, nil
}
