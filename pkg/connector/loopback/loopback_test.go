package loopback

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
)

func selectOf(types ...datatype.Type) *lom.Select {
	s := &lom.Select{}
	for _, t := range types {
		s.DerivedColumns = append(s.DerivedColumns, &lom.DerivedColumn{Expression: lom.NewLiteral(nil, t)})
	}
	return s
}

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, defaultRowCount, c.RowCount)
	assert.Equal(t, defaultCharValue, c.CharValue)

	c, err = ParseConfig(map[string]any{
		"row_count":      5,
		"wait_time":      "10ms",
		"poll_interval":  "5ms",
		"error":          true,
		"char_value":     "xyz",
		"increment_rows": true,
		"immutable":      true,
		"copy_lobs":      true,
	})
	require.NoError(t, err)
	assert.Equal(t, Config{
		RowCount:      5,
		WaitTime:      10 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
		Error:         true,
		CharValue:     "xyz",
		IncrementRows: true,
		Immutable:     true,
		CopyLobs:      true,
	}, c)

	_, err = ParseConfig(map[string]any{"row_count": -1})
	assert.Error(t, err)
	_, err = ParseConfig(map[string]any{"wait_time": "later"})
	assert.Error(t, err)
	_, err = ParseConfig(map[string]any{"poll_interval": "never"})
	assert.Error(t, err)
}

func TestNew_Flags(t *testing.T) {
	f := New(Config{Immutable: true, CopyLobs: true})
	assert.False(t, f.IsSourceRequired())
	assert.True(t, f.IsImmutable())
	assert.True(t, f.CopyLobs())
	assert.True(t, f.Capabilities().Procedures)

	conn, err := f.GetConnection(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, conn)
}

func TestQueryExecution(t *testing.T) {
	ctx := context.Background()
	f := New(Config{RowCount: 3, CharValue: "abc", IncrementRows: true})
	exec, err := f.CreateExecution(ctx, selectOf(datatype.Integer, datatype.String, datatype.Clob), nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, exec.Execute(ctx))

	rs, ok := exec.(connector.ResultSetExecution)
	require.True(t, ok)

	for i := range 3 {
		row, err := rs.Next(ctx)
		require.NoError(t, err)
		require.Len(t, row, 3)
		assert.Equal(t, int32(i), row[0])
		assert.Equal(t, "abc", row[1])
		r, ok := row[2].(io.Reader)
		require.True(t, ok)
		b, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "abc", string(b))
	}
	row, err := rs.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.NoError(t, exec.Close())
}

func TestQueryExecution_Poll(t *testing.T) {
	ctx := context.Background()
	f := New(Config{RowCount: 1, PollInterval: 20 * time.Millisecond})
	exec, err := f.CreateExecution(ctx, selectOf(datatype.Long), nil, nil, nil)
	require.NoError(t, err)
	rs := exec.(connector.ResultSetExecution)

	_, err = rs.Next(ctx)
	dna, ok := connector.AsDataNotAvailable(err)
	require.True(t, ok)
	assert.Equal(t, 20*time.Millisecond, dna.RetryDelay)

	row, err := rs.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0)}, row)
}

func TestQueryExecution_Cancel(t *testing.T) {
	ctx := context.Background()
	exec, err := New(Config{RowCount: 10}).CreateExecution(ctx, selectOf(datatype.String), nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, exec.Cancel())

	_, err = exec.(connector.ResultSetExecution).Next(ctx)
	assert.ErrorIs(t, err, errCancelled)
}

func TestExecute_Error(t *testing.T) {
	exec, err := New(Config{Error: true}).CreateExecution(context.Background(), selectOf(), nil, nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, exec.Execute(context.Background()), ErrRequested)
}

func TestExecute_WaitHonoursContext(t *testing.T) {
	exec, err := New(Config{WaitTime: time.Hour}).CreateExecution(context.Background(), selectOf(), nil, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, exec.Execute(ctx), context.DeadlineExceeded)
}

func TestProcedureExecution(t *testing.T) {
	proc := &metadata.Procedure{Name: "p"}
	proc.ResultSet = []*metadata.Column{{Name: "a", Type: datatype.String}}
	call := &lom.Call{
		Name:       "p",
		Metadata:   proc,
		ReturnType: datatype.Integer,
		Arguments: []*lom.Argument{
			{Direction: metadata.DirectionIn, Expression: lom.NewLiteral("x", datatype.String), DataType: datatype.String},
			{Direction: metadata.DirectionOut, DataType: datatype.Boolean},
			{Direction: metadata.DirectionInOut, Expression: lom.NewLiteral(int64(1), datatype.Long), DataType: datatype.Long},
		},
	}
	ctx := context.Background()
	exec, err := New(Config{RowCount: 1, CharValue: "v"}).CreateExecution(ctx, call, nil, nil, nil)
	require.NoError(t, err)
	pe, ok := exec.(connector.ProcedureExecution)
	require.True(t, ok)

	row, err := pe.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"v"}, row)

	out, err := pe.OutputParameterValues(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{int32(0), false, int64(0)}, out)
}

func TestUpdateExecution(t *testing.T) {
	ctx := context.Background()
	table := lom.NewNamedTable("t", "", nil)
	tests := []struct {
		name string
		cmd  lom.Command
		want []int
	}{
		{"delete", &lom.Delete{Table: table}, []int{1}},
		{"bulk insert", &lom.Insert{Table: table, ParameterValues: [][]any{{1}, {2}, {3}}}, []int{1, 1, 1}},
		{"bulk update", &lom.Update{Table: table, ParameterValues: [][]any{{1}, {2}}}, []int{1, 1}},
		{"batch", &lom.BatchedUpdates{Updates: []lom.Command{&lom.Delete{Table: table}, &lom.Delete{Table: table}}}, []int{1, 1}},
		{"single result batch", &lom.BatchedUpdates{SingleResult: true, Updates: []lom.Command{&lom.Delete{Table: table}, &lom.Delete{Table: table}}}, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, err := New(Config{}).CreateExecution(ctx, tt.cmd, nil, nil, nil)
			require.NoError(t, err)
			ue, ok := exec.(connector.UpdateExecution)
			require.True(t, ok)
			counts, err := ue.UpdateCounts(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, counts)
		})
	}
}

func TestValue(t *testing.T) {
	assert.Equal(t, "a", value(datatype.Char, 0, "abc"))
	assert.Equal(t, " ", value(datatype.Char, 0, ""))
	assert.Equal(t, true, value(datatype.Boolean, 1, ""))
	assert.Equal(t, []any{int16(2)}, value(datatype.ArrayOf(datatype.Short), 2, ""))
	assert.Equal(t, time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC), value(datatype.Date, 2, ""))
	assert.Nil(t, value(datatype.Null, 0, ""))

	src, ok := value(datatype.XML, 0, "a<b").(*connector.StreamSource)
	require.True(t, ok)
	b, err := io.ReadAll(src.Reader)
	require.NoError(t, err)
	assert.Equal(t, "<value>a&lt;b</value>", string(b))
}
