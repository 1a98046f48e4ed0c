// Package datahub provides a metadata.Catalog backed by DataHub dataset
// schemas.
package datahub

import (
	"context"
	"fmt"
	"strings"
	"time"

	dhclient "github.com/txn2/mcp-datahub/pkg/client"
	"github.com/txn2/mcp-datahub/pkg/types"

	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/metadata"
)

const (
	defaultPlatform = "trino"
	defaultEnv      = "PROD"
)

// Client is the subset of the DataHub client the catalog needs.
type Client interface {
	GetSchema(ctx context.Context, urn string) (*types.SchemaMetadata, error)
	Close() error
}

// Config holds DataHub catalog configuration.
type Config struct {
	URL      string        `yaml:"url"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
	Platform string        `yaml:"platform"`
	Env      string        `yaml:"env"`
	// Prefix is prepended to schema-qualified names when building URNs,
	// e.g. a Trino catalog name.
	Prefix string `yaml:"prefix"`
}

// Catalog resolves tables by fetching DataHub schema metadata.
type Catalog struct {
	cfg    Config
	client Client
}

// New creates a catalog with a real DataHub client.
func New(cfg Config) (*Catalog, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("datahub url is required")
	}

	clientCfg := dhclient.DefaultConfig()
	clientCfg.URL = cfg.URL
	clientCfg.Token = cfg.Token
	if cfg.Timeout > 0 {
		clientCfg.Timeout = cfg.Timeout
	}

	client, err := dhclient.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating datahub client: %w", err)
	}
	return NewWithClient(cfg, client), nil
}

// NewWithClient creates a catalog around an existing client.
func NewWithClient(cfg Config, client Client) *Catalog {
	if cfg.Platform == "" {
		cfg.Platform = defaultPlatform
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	return &Catalog{cfg: cfg, client: client}
}

// Table fetches the dataset schema and maps its fields to columns.
func (c *Catalog) Table(ctx context.Context, fullName string) (*metadata.Table, error) {
	schemaName, tableName := splitName(fullName)
	schema, err := c.client.GetSchema(ctx, c.buildDatasetURN(fullName))
	if err != nil {
		return nil, fmt.Errorf("fetching schema for %s: %w", fullName, err)
	}
	if schema == nil || len(schema.Fields) == 0 {
		return nil, fmt.Errorf("table %s: %w", fullName, metadata.ErrNotFound)
	}

	table := &metadata.Table{Schema: schemaName, Name: tableName}
	for _, field := range schema.Fields {
		name := extractFieldName(field.FieldPath)
		if name == "" {
			continue
		}
		typ, err := datatype.Parse(field.NativeType)
		if err != nil {
			typ = datatype.Object
		}
		table.AddColumn(&metadata.Column{
			Name:        name,
			Type:        typ,
			Nullable:    true,
			Description: field.Description,
		})
	}
	return table, nil
}

// Procedure always reports not found; DataHub does not catalog procedures.
func (c *Catalog) Procedure(_ context.Context, fullName string) (*metadata.Procedure, error) {
	return nil, fmt.Errorf("procedure %s: %w", fullName, metadata.ErrNotFound)
}

// Close releases the client.
func (c *Catalog) Close() error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("closing datahub client: %w", err)
	}
	return nil
}

// buildDatasetURN builds urn:li:dataset:(urn:li:dataPlatform:platform,name,env).
func (c *Catalog) buildDatasetURN(fullName string) string {
	name := fullName
	if c.cfg.Prefix != "" {
		name = c.cfg.Prefix + "." + fullName
	}
	return fmt.Sprintf("urn:li:dataset:(urn:li:dataPlatform:%s,%s,%s)", c.cfg.Platform, name, c.cfg.Env)
}

func splitName(fullName string) (schema, name string) {
	idx := strings.LastIndex(fullName, ".")
	if idx < 0 {
		return "", fullName
	}
	return fullName[:idx], fullName[idx+1:]
}

// extractFieldName returns the last segment of a v2 field path.
func extractFieldName(fieldPath string) string {
	if idx := strings.LastIndex(fieldPath, "."); idx >= 0 {
		return fieldPath[idx+1:]
	}
	return fieldPath
}

// Verify interface compliance.
var _ metadata.Catalog = (*Catalog)(nil)
