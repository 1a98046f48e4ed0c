package platform

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/txn2/fedquery/pkg/commandlog"
	"github.com/txn2/fedquery/pkg/metadata/datahub"
	"github.com/txn2/fedquery/pkg/registry"
)

// Metadata providers.
const (
	MetadataMemory  = "memory"
	MetadataDataHub = "datahub"
)

// Command log stores.
const (
	CommandLogSlog     = "slog"
	CommandLogPostgres = "postgres"
)

const (
	defaultEngineName       = "fedquery"
	defaultFetchSize        = 256
	defaultExecutionTimeout = 30 * time.Second
	defaultMaxLOBMemory     = 64 << 20
	defaultCacheTTL         = 5 * time.Minute
	defaultRetentionDays    = 30
	defaultServerVersion    = "0.0.0"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Config holds the platform configuration.
type Config struct {
	Engine     EngineConfig                            `yaml:"engine"`
	Buffer     BufferConfig                            `yaml:"buffer"`
	Metadata   MetadataConfig                          `yaml:"metadata"`
	Connectors map[string]registry.ConnectorKindConfig `yaml:"connectors"`
	CommandLog commandlog.Config                       `yaml:"command_log"`
	Database   DatabaseConfig                          `yaml:"database"`
	Server     ServerConfig                            `yaml:"server"`
}

// EngineConfig configures connector managers.
type EngineConfig struct {
	Name             string        `yaml:"name"`
	FetchSize        int           `yaml:"fetch_size"`
	ExecutionTimeout time.Duration `yaml:"execution_timeout"`
}

// BufferConfig configures LOB buffering.
type BufferConfig struct {
	MaxLOBMemory int64 `yaml:"max_lob_memory"`
}

// MetadataConfig configures the catalog shared by all connectors.
type MetadataConfig struct {
	Provider string         `yaml:"provider"`
	CacheTTL time.Duration  `yaml:"cache_ttl"`
	DataHub  datahub.Config `yaml:"datahub"`

	// Tables and Procedures seed the memory catalog.
	Tables     []TableDef     `yaml:"tables"`
	Procedures []ProcedureDef `yaml:"procedures"`
}

// TableDef declares a catalog table.
type TableDef struct {
	Schema       string      `yaml:"schema"`
	Name         string      `yaml:"name"`
	NameInSource string      `yaml:"name_in_source"`
	Updatable    bool        `yaml:"updatable"`
	Columns      []ColumnDef `yaml:"columns"`
}

// ColumnDef declares a column. Type is a runtime type name such as
// "string", "long" or "timestamp[]".
type ColumnDef struct {
	Name         string `yaml:"name"`
	NameInSource string `yaml:"name_in_source"`
	Type         string `yaml:"type"`
	Nullable     bool   `yaml:"nullable"`
}

// ProcedureDef declares a procedure.
type ProcedureDef struct {
	Schema       string         `yaml:"schema"`
	Name         string         `yaml:"name"`
	NameInSource string         `yaml:"name_in_source"`
	Parameters   []ParameterDef `yaml:"parameters"`
	ResultSet    []ColumnDef    `yaml:"result_set"`
}

// ParameterDef declares a procedure parameter. Direction is one of in, out,
// inout or return.
type ParameterDef struct {
	Name         string `yaml:"name"`
	NameInSource string `yaml:"name_in_source"`
	Type         string `yaml:"type"`
	Direction    string `yaml:"direction"`
}

// DatabaseConfig configures the PostgreSQL database used by the postgres
// command log store.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Transport string `yaml:"transport"` // stdio, http
	Address   string `yaml:"address"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, expanding ${VAR} references and
// applying defaults.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with the environment value. Unset variables
// expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Engine.Name == "" {
		cfg.Engine.Name = defaultEngineName
	}
	if cfg.Engine.FetchSize == 0 {
		cfg.Engine.FetchSize = defaultFetchSize
	}
	if cfg.Engine.ExecutionTimeout == 0 {
		cfg.Engine.ExecutionTimeout = defaultExecutionTimeout
	}
	if cfg.Buffer.MaxLOBMemory == 0 {
		cfg.Buffer.MaxLOBMemory = defaultMaxLOBMemory
	}
	if cfg.Metadata.Provider == "" {
		cfg.Metadata.Provider = MetadataMemory
	}
	if cfg.Metadata.CacheTTL == 0 {
		cfg.Metadata.CacheTTL = defaultCacheTTL
	}
	if cfg.CommandLog.Store == "" {
		cfg.CommandLog.Store = CommandLogSlog
	}
	if cfg.CommandLog.RetentionDays == 0 {
		cfg.CommandLog.RetentionDays = defaultRetentionDays
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Server.Name == "" {
		cfg.Server.Name = cfg.Engine.Name
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = defaultServerVersion
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = "stdio"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Engine.FetchSize < 0 {
		errs = append(errs, "engine.fetch_size must not be negative")
	}
	if c.Engine.ExecutionTimeout < 0 {
		errs = append(errs, "engine.execution_timeout must not be negative")
	}

	switch c.Metadata.Provider {
	case MetadataMemory:
	case MetadataDataHub:
		if c.Metadata.DataHub.URL == "" {
			errs = append(errs, "metadata.datahub.url is required for the datahub provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown metadata.provider %q", c.Metadata.Provider))
	}

	if c.CommandLog.Enabled {
		switch c.CommandLog.Store {
		case CommandLogSlog:
		case CommandLogPostgres:
			if c.Database.DSN == "" {
				errs = append(errs, "database.dsn is required for the postgres command log store")
			}
		default:
			errs = append(errs, fmt.Sprintf("unknown command_log.store %q", c.CommandLog.Store))
		}
	}

	switch c.Server.Transport {
	case "stdio", "http":
	default:
		errs = append(errs, fmt.Sprintf("unknown server.transport %q", c.Server.Transport))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoaderConfig returns the connector section in the form the registry
// loader reads.
func (c *Config) LoaderConfig() registry.LoaderConfig {
	return registry.LoaderConfig{Connectors: c.Connectors}
}
