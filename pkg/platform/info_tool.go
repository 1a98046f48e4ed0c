package platform

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Info describes the running engine.
type Info struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Engine         string   `json:"engine"`
	ConnectorKinds []string `json:"connector_kinds"`
	Connectors     int      `json:"connectors"`
	Features       Features `json:"features"`
}

// Features describes enabled platform features.
type Features struct {
	MetadataProvider string `json:"metadata_provider"`
	CommandLog       bool   `json:"command_log"`
	CommandLogStore  string `json:"command_log_store,omitempty"`
	FetchSize        int    `json:"fetch_size"`
	ExecutionTimeout string `json:"execution_timeout"`
}

// platformInfoInput is empty since this tool has no parameters.
type platformInfoInput struct{}

// registerInfoTool registers the platform_info tool with the MCP server.
func (p *Platform) registerInfoTool() {
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        "platform_info",
		Description: "Get information about " + p.config.Server.Name + ": the engine settings and which connector kinds and features are available.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ platformInfoInput) (*mcp.CallToolResult, any, error) {
		return p.handleInfo(ctx, req)
	})
}

// handleInfo handles the platform_info tool call.
func (p *Platform) handleInfo(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, any, error) {
	kinds := map[string]bool{}
	connectors := p.registry.All()
	for _, c := range connectors {
		kinds[c.Kind] = true
	}
	names := slices.Sorted(maps.Keys(kinds))

	info := Info{
		Name:           p.config.Server.Name,
		Version:        p.config.Server.Version,
		Engine:         p.config.Engine.Name,
		ConnectorKinds: names,
		Connectors:     len(connectors),
		Features: Features{
			MetadataProvider: p.config.Metadata.Provider,
			CommandLog:       p.commandLogger != nil,
			FetchSize:        p.config.Engine.FetchSize,
			ExecutionTimeout: p.config.Engine.ExecutionTimeout.String(),
		},
	}
	if info.Features.CommandLog {
		info.Features.CommandLogStore = p.config.CommandLog.Store
	}
	return jsonResult(info)
}

// jsonResult renders v as indented JSON text content.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// errorResult reports a tool failure. MCP tool errors are returned in
// CallToolResult.IsError, not as Go errors.
func errorResult(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}
