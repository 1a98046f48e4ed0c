package platform

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/engine"
	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/query"
)

const (
	defaultSampleLimit = 10
	maxSampleLimit     = 1000
	sampleUser         = "mcp"
)

type sampleTableInput struct {
	Connector string   `json:"connector"`
	Table     string   `json:"table"`
	Columns   []string `json:"columns,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

type sampleTableOutput struct {
	Connector string   `json:"connector"`
	RequestID string   `json:"request_id"`
	SQL       string   `json:"sql"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Count     int      `json:"count"`
}

// registerSampleTool registers the sample_table tool with the MCP server.
func (p *Platform) registerSampleTool() {
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name: "sample_table",
		Description: "Read the first rows of a catalog table through one connector. " +
			"The source command is recorded in the command log.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in sampleTableInput) (*mcp.CallToolResult, any, error) {
		return p.handleSampleTable(ctx, req, in)
	})
}

// handleSampleTable runs a projection over one table as a single work item.
func (p *Platform) handleSampleTable(ctx context.Context, _ *mcp.CallToolRequest, in sampleTableInput) (*mcp.CallToolResult, any, error) {
	if in.Connector == "" || in.Table == "" {
		return errorResult("connector and table are required")
	}
	m, ok := p.repository.Get(in.Connector)
	if !ok {
		return errorResult("unknown connector: " + in.Connector)
	}

	columns := in.Columns
	if len(columns) == 0 {
		tbl, err := p.catalog.Table(ctx, in.Table)
		if err != nil {
			return errorResult(err.Error())
		}
		for _, c := range tbl.Columns {
			columns = append(columns, c.Name)
		}
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	limit = min(limit, maxSampleLimit)

	msg := &engine.AtomicRequestMessage{
		ID:            engine.AtomicRequestID{RequestID: engine.NewRequestID(), NodeID: 1, ExecutionID: 1},
		Command:       projection(in.Table, columns, limit),
		ConnectorName: m.Name(),
		User:          sampleUser,
	}
	rows, sql, err := p.run(ctx, m, msg, limit)
	if err != nil {
		return errorResult(err.Error())
	}

	return jsonResult(sampleTableOutput{
		Connector: m.Name(),
		RequestID: msg.ID.RequestID,
		SQL:       sql,
		Columns:   columns,
		Rows:      rows,
		Count:     len(rows),
	})
}

func projection(table string, columns []string, limit int) *query.Query {
	g := &query.GroupSymbol{Name: table}
	q := &query.Query{
		From:  []query.FromClause{&query.UnaryFromClause{Group: g}},
		Limit: &query.Limit{RowLimit: limit},
	}
	for _, c := range columns {
		q.Select = append(q.Select, &query.ElementSymbol{Group: g, Name: c})
	}
	return q
}

// run executes msg on m and drains at most limit rows.
func (p *Platform) run(ctx context.Context, m *engine.ConnectorManager, msg *engine.AtomicRequestMessage, limit int) ([][]any, string, error) {
	w := m.RegisterRequest(msg)
	defer func() { _ = w.Close() }()

	if err := w.Execute(ctx); err != nil {
		return nil, "", err
	}
	sql := lom.SQLString(w.Command())

	rows := make([][]any, 0, limit)
	err := engine.Drain(ctx, w, func(r *engine.AtomicResultsMessage) error {
		for _, row := range r.Rows {
			if len(rows) < limit {
				rows = append(rows, displayRow(row))
			}
		}
		return nil
	})
	if err != nil {
		return nil, sql, err
	}
	return rows, sql, nil
}

// displayRow replaces LOB values with a short description.
func displayRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if s, ok := v.(datatype.Streamable); ok {
			out[i] = fmt.Sprintf("<%s %d bytes>", s.Type(), s.Factory().Length())
			continue
		}
		out[i] = v
	}
	return out
}
