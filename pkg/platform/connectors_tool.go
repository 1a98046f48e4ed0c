package platform

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/engine"
	"github.com/txn2/fedquery/pkg/registry"
)

// connectorEntry describes a single configured connector.
type connectorEntry struct {
	Kind               string `json:"kind"`
	Name               string `json:"name"`
	Default            bool   `json:"default,omitempty"`
	TransactionSupport string `json:"transaction_support"`
	Immutable          bool   `json:"immutable"`
	SourceRequired     bool   `json:"source_required"`
}

// listConnectorsOutput is the JSON response for the list_connectors tool.
type listConnectorsOutput struct {
	Connectors []connectorEntry `json:"connectors"`
	Count      int              `json:"count"`
}

type listConnectorsInput struct {
	Kind string `json:"kind,omitempty"`
}

// connectorStatus is the health and activity of one connector.
type connectorStatus struct {
	Name              string                  `json:"name"`
	Kind              string                  `json:"kind"`
	Status            engine.ConnectionStatus `json:"status"`
	Stats             engine.Stats            `json:"stats"`
	Capabilities      *connector.Capabilities `json:"capabilities,omitempty"`
	CapabilitiesError string                  `json:"capabilities_error,omitempty"`
}

type connectorStatusOutput struct {
	Connectors []connectorStatus `json:"connectors"`
}

type connectorStatusInput struct {
	Name string `json:"name,omitempty"`
}

// registerConnectorsTool registers the list_connectors tool with the MCP server.
func (p *Platform) registerConnectorsTool() {
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        "list_connectors",
		Description: "List the configured data source connectors (SQL databases, PostgreSQL, Trino, S3, loopback) with their transaction support.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in listConnectorsInput) (*mcp.CallToolResult, any, error) {
		return p.handleListConnectors(ctx, req, in)
	})
}

// handleListConnectors handles the list_connectors tool call.
func (p *Platform) handleListConnectors(_ context.Context, _ *mcp.CallToolRequest, in listConnectorsInput) (*mcp.CallToolResult, any, error) {
	var connectors []*registry.Connector
	if in.Kind != "" {
		connectors = p.registry.GetByKind(in.Kind)
	} else {
		connectors = p.registry.All()
	}

	entries := make([]connectorEntry, 0, len(connectors))
	for _, c := range connectors {
		entries = append(entries, connectorEntry{
			Kind:               c.Kind,
			Name:               c.Name,
			Default:            c.Default,
			TransactionSupport: string(c.Factory.TransactionSupport()),
			Immutable:          c.Factory.IsImmutable(),
			SourceRequired:     c.Factory.IsSourceRequired(),
		})
	}

	return jsonResult(listConnectorsOutput{Connectors: entries, Count: len(entries)})
}

// registerStatusTool registers the connector_status tool with the MCP server.
func (p *Platform) registerStatusTool() {
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        "connector_status",
		Description: "Check connector health by probing the source, and report in-flight requests, execution counters and capabilities.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in connectorStatusInput) (*mcp.CallToolResult, any, error) {
		return p.handleConnectorStatus(ctx, req, in)
	})
}

// handleConnectorStatus handles the connector_status tool call.
func (p *Platform) handleConnectorStatus(ctx context.Context, _ *mcp.CallToolRequest, in connectorStatusInput) (*mcp.CallToolResult, any, error) {
	kinds := make(map[string]string)
	for _, c := range p.registry.All() {
		kinds[c.Name] = c.Kind
	}

	names := p.repository.Names()
	if in.Name != "" {
		if _, ok := p.repository.Get(in.Name); !ok {
			return errorResult(fmt.Sprintf("unknown connector %q", in.Name))
		}
		names = []string{in.Name}
	}

	out := connectorStatusOutput{Connectors: make([]connectorStatus, 0, len(names))}
	for _, name := range names {
		m, _ := p.repository.Get(name)
		s := connectorStatus{
			Name:   name,
			Kind:   kinds[name],
			Status: m.Status(ctx),
			Stats:  m.Stats(),
		}
		if s.Status == engine.StatusOK || !m.Factory().IsSourceRequiredForCapabilities() {
			caps, err := m.Capabilities(ctx)
			if err != nil {
				s.CapabilitiesError = err.Error()
			} else {
				s.Capabilities = &caps
			}
		}
		out.Connectors = append(out.Connectors, s)
	}
	return jsonResult(out)
}
