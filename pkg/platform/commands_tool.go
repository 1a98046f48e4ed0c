package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/fedquery/pkg/commandlog"
)

const (
	defaultCommandsLimit = 20
	maxCommandsLimit     = 500
)

type recentCommandsInput struct {
	Connector string `json:"connector,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Since     string `json:"since,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type recentCommandsOutput struct {
	Events []commandlog.Event `json:"events"`
	Count  int                `json:"count"`
}

// registerCommandsTool registers the recent_source_commands tool with the MCP server.
func (p *Platform) registerCommandsTool() {
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name: "recent_source_commands",
		Description: "List recent commands sent to data sources, newest first. " +
			"Filter by connector, request_id, status (START, END, CANCEL, ERROR) or since (a duration like 15m). " +
			fmt.Sprintf("Returns at most limit events (default %d, max %d).", defaultCommandsLimit, maxCommandsLimit),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in recentCommandsInput) (*mcp.CallToolResult, any, error) {
		return p.handleRecentCommands(ctx, req, in)
	})
}

// handleRecentCommands handles the recent_source_commands tool call.
func (p *Platform) handleRecentCommands(ctx context.Context, _ *mcp.CallToolRequest, in recentCommandsInput) (*mcp.CallToolResult, any, error) {
	if p.commandLogger == nil {
		return errorResult("command logging is disabled")
	}

	filter, err := commandsFilter(in, time.Now())
	if err != nil {
		return errorResult(err.Error())
	}

	events, err := p.commandLogger.Query(ctx, filter)
	if err != nil {
		return errorResult(err.Error())
	}
	if events == nil {
		events = []commandlog.Event{}
	}
	return jsonResult(recentCommandsOutput{Events: events, Count: len(events)})
}

func commandsFilter(in recentCommandsInput, now time.Time) (commandlog.QueryFilter, error) {
	filter := commandlog.QueryFilter{
		Connector: in.Connector,
		RequestID: in.RequestID,
		Limit:     in.Limit,
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultCommandsLimit
	case filter.Limit > maxCommandsLimit:
		filter.Limit = maxCommandsLimit
	}

	if in.Status != "" {
		status := commandlog.Status(strings.ToUpper(in.Status))
		switch status {
		case commandlog.StatusStart, commandlog.StatusEnd, commandlog.StatusCancel, commandlog.StatusError:
			filter.Status = status
		default:
			return filter, fmt.Errorf("unknown status %q", in.Status)
		}
	}

	if in.Since != "" {
		d, err := time.ParseDuration(in.Since)
		if err != nil || d <= 0 {
			return filter, fmt.Errorf("since must be a positive duration, got %q", in.Since)
		}
		start := now.Add(-d)
		filter.StartTime = &start
	}
	return filter, nil
}
