// Package registry creates connector instances from configuration and
// keeps track of them by kind and name.
package registry

import (
	"context"

	"github.com/txn2/fedquery/pkg/connector"
)

// Connector is a configured connector instance: the execution factory and
// the source its connections come from.
type Connector struct {
	// Kind is the connector type (e.g., "sqldb", "trino", "s3").
	Kind string

	// Name is the instance name from config. It is also the name the
	// engine manages the connector under.
	Name string

	// Factory creates executions.
	Factory connector.ExecutionFactory

	// ConnectionFactory is the pool or client connections come from. It is
	// nil for connectors that need no source.
	ConnectionFactory connector.ConnectionFactory

	// Default marks the default instance of its kind.
	Default bool
}

// ConnectorFactory creates a connector from configuration.
type ConnectorFactory func(ctx context.Context, name string, config map[string]any) (*Connector, error)

// ConnectorConfig holds configuration for a connector instance.
type ConnectorConfig struct {
	Kind    string
	Name    string
	Enabled bool
	Config  map[string]any
	Default bool
}
