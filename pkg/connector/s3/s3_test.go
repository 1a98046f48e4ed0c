package s3

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	s3client "github.com/txn2/mcp-s3/pkg/client"

	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
)

const (
	s3TestBucket = "landing"
	s3TestSize   = 100
)

// mockClient implements Client for testing.
type mockClient struct {
	output  *s3client.ListObjectsOutput
	err     error
	bucket  string
	prefix  string
	maxKeys int32
}

func (m *mockClient) ListObjects(_ context.Context, bucket, prefix, _ string, maxKeys int32, _ string) (*s3client.ListObjectsOutput, error) {
	m.bucket, m.prefix, m.maxKeys = bucket, prefix, maxKeys
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

func (*mockClient) Close() error { return nil }

func listing(now time.Time) *s3client.ListObjectsOutput {
	return &s3client.ListObjectsOutput{
		Objects: []s3client.ObjectInfo{
			{Key: "raw/a.csv", Size: s3TestSize, LastModified: now},
			{Key: "raw/b.csv", Size: 2 * s3TestSize, LastModified: now},
		},
		KeyCount: 2,
	}
}

func objectsTable() *lom.NamedTable {
	tbl := &metadata.Table{Schema: "files", Name: "raw", NameInSource: s3TestBucket + "/raw/"}
	tbl.AddColumn(&metadata.Column{Name: "key", Type: datatype.String})
	tbl.AddColumn(&metadata.Column{Name: "size", Type: datatype.Long})
	tbl.AddColumn(&metadata.Column{Name: "modified", NameInSource: "last_modified", Type: datatype.Timestamp})
	return lom.NewNamedTable("files.raw", "", tbl)
}

func listObjectsProcedure() *metadata.Procedure {
	p := &metadata.Procedure{Schema: "files", Name: "list_objects"}
	p.AddParameter(&metadata.ProcedureParameter{Name: "bucket", Type: datatype.String, Direction: metadata.DirectionIn})
	p.AddParameter(&metadata.ProcedureParameter{Name: "prefix", Type: datatype.String, Direction: metadata.DirectionIn})
	p.AddParameter(&metadata.ProcedureParameter{Name: "key_count", Type: datatype.Long, Direction: metadata.DirectionOut})
	p.ResultSet = []*metadata.Column{{Name: "key", Type: datatype.String}, {Name: "size", Type: datatype.Long}}
	return p
}

func create(t *testing.T, client Client, cmd lom.Command) (connector.Execution, error) {
	t.Helper()
	f := New(Config{MaxKeys: defaultMaxKeys})
	conn, err := f.GetConnection(context.Background(), client, nil)
	require.NoError(t, err)
	return f.CreateExecution(context.Background(), cmd, nil, nil, conn)
}

func drain(t *testing.T, e connector.ResultSetExecution) [][]any {
	t.Helper()
	var rows [][]any
	for {
		row, err := e.Next(context.Background())
		require.NoError(t, err)
		if row == nil {
			return rows
		}
		rows = append(rows, row)
	}
}

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig(map[string]any{"endpoint": "http://minio:9000"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", c.Region)
	assert.Equal(t, defaultMaxKeys, c.MaxKeys)

	_, err = ParseConfig(map[string]any{"max_keys": 5000})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	f := New(Config{})
	assert.True(t, f.IsImmutable())
	assert.Equal(t, connector.TransactionNone, f.TransactionSupport())
	assert.True(t, f.Capabilities().Procedures)
	assert.Equal(t, defaultMaxKeys, f.maxKeys)
}

func TestQueryExecution(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := &mockClient{output: listing(now)}
	nt := objectsTable()
	s := &lom.Select{
		DerivedColumns: []*lom.DerivedColumn{
			{Expression: lom.NewColumnReference(nt, "", nt.Metadata.Column("key"), "")},
			{Expression: lom.NewColumnReference(nt, "", nt.Metadata.Column("modified"), "")},
		},
		From: []lom.TableReference{nt},
	}

	exec, err := create(t, client, s)
	require.NoError(t, err)
	rse, ok := exec.(connector.ResultSetExecution)
	require.True(t, ok)
	require.NoError(t, rse.Execute(context.Background()))

	assert.Equal(t, s3TestBucket, client.bucket)
	assert.Equal(t, "raw/", client.prefix)
	assert.Equal(t, int32(defaultMaxKeys), client.maxKeys)
	assert.Equal(t, [][]any{{"raw/a.csv", now}, {"raw/b.csv", now}}, drain(t, rse))
	require.NoError(t, rse.Close())
}

func TestQueryExecution_Limit(t *testing.T) {
	client := &mockClient{output: listing(time.Now())}
	nt := objectsTable()
	s := &lom.Select{
		DerivedColumns: []*lom.DerivedColumn{{Expression: lom.NewColumnReference(nt, "", nt.Metadata.Column("size"), "")}},
		From:           []lom.TableReference{nt},
		Limit:          &lom.Limit{Offset: 1, RowLimit: 1},
	}
	exec, err := create(t, client, s)
	require.NoError(t, err)
	require.NoError(t, exec.Execute(context.Background()))
	assert.Equal(t, int32(2), client.maxKeys)
	assert.Equal(t, [][]any{{int64(2 * s3TestSize)}}, drain(t, exec.(connector.ResultSetExecution)))
}

func TestQueryExecution_Unsupported(t *testing.T) {
	nt := objectsTable()
	key := lom.NewColumnReference(nt, "", nt.Metadata.Column("key"), "")

	tests := []struct {
		name string
		cmd  lom.Command
	}{
		{"criteria", &lom.Select{
			DerivedColumns: []*lom.DerivedColumn{{Expression: key}},
			From:           []lom.TableReference{nt},
			Where:          lom.NewComparison(key, lom.EQ, lom.NewLiteral("x", datatype.String)),
		}},
		{"expression", &lom.Select{
			DerivedColumns: []*lom.DerivedColumn{{Expression: lom.NewLiteral(int64(1), datatype.Long)}},
			From:           []lom.TableReference{nt},
		}},
		{"unknown column", &lom.Select{
			DerivedColumns: []*lom.DerivedColumn{{Expression: &lom.ColumnReference{Table: nt, Name: "etag", DataType: datatype.String}}},
			From:           []lom.TableReference{nt},
		}},
		{"write", &lom.Delete{Table: nt}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := create(t, &mockClient{}, tt.cmd)
			assert.Error(t, err)
		})
	}

	_, err := create(t, &mockClient{}, &lom.Delete{Table: nt})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestProcedureExecution(t *testing.T) {
	client := &mockClient{output: listing(time.Now())}
	p := listObjectsProcedure()
	call := &lom.Call{
		Name:     "list_objects",
		Metadata: p,
		Arguments: []*lom.Argument{
			{Direction: metadata.DirectionIn, Expression: lom.NewLiteral(s3TestBucket, datatype.String), Metadata: p.Parameters[0], DataType: datatype.String},
			{Direction: metadata.DirectionIn, Expression: lom.NewLiteral(nil, datatype.String), Metadata: p.Parameters[1], DataType: datatype.String},
			{Direction: metadata.DirectionOut, Metadata: p.Parameters[2], DataType: datatype.Long},
		},
	}

	exec, err := create(t, client, call)
	require.NoError(t, err)
	pe, ok := exec.(connector.ProcedureExecution)
	require.True(t, ok)
	require.NoError(t, pe.Execute(context.Background()))
	assert.Empty(t, client.prefix)

	assert.Equal(t, [][]any{{"raw/a.csv", int64(s3TestSize)}, {"raw/b.csv", int64(2 * s3TestSize)}}, drain(t, pe))
	out, err := pe.OutputParameterValues(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2)}, out)
}

func TestProcedureExecution_Errors(t *testing.T) {
	p := listObjectsProcedure()

	_, err := create(t, &mockClient{}, &lom.Call{Name: "purge"})
	assert.Error(t, err)

	_, err = create(t, &mockClient{}, &lom.Call{Name: "list_objects", Metadata: p})
	assert.EqualError(t, err, "bucket is required")

	_, err = create(t, &mockClient{}, &lom.Call{Name: "list_objects", Metadata: p, Arguments: []*lom.Argument{
		{Direction: metadata.DirectionIn, Expression: &lom.Parameter{DataType: datatype.String}, Metadata: p.Parameters[0]},
	}})
	assert.Error(t, err)

	client := &mockClient{err: errors.New("access denied")}
	exec, err := create(t, client, &lom.Call{Name: "list_objects", Metadata: p, Arguments: []*lom.Argument{
		{Direction: metadata.DirectionIn, Expression: lom.NewLiteral(s3TestBucket, datatype.String), Metadata: p.Parameters[0]},
	}})
	require.NoError(t, err)
	err = exec.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
