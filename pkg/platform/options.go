package platform

import (
	"database/sql"
	"log/slog"

	"github.com/txn2/fedquery/pkg/buffer"
	"github.com/txn2/fedquery/pkg/commandlog"
	"github.com/txn2/fedquery/pkg/metadata"
	"github.com/txn2/fedquery/pkg/registry"
)

// Options configures the platform.
type Options struct {
	// Config is the platform configuration.
	Config *Config

	// Database connection for the postgres command log (optional, will be
	// opened from config if not provided).
	DB *sql.DB

	// Catalog (optional, will be created from config if not provided).
	Catalog metadata.Catalog

	// CommandLogger (optional, will be created from config if not provided).
	CommandLogger commandlog.Logger

	// ConnectorRegistry (optional, will be created and loaded from config
	// if not provided). The platform takes ownership of its sources.
	ConnectorRegistry *registry.Registry

	// Buffer (optional, defaults to a memory buffer bounded by
	// buffer.max_lob_memory).
	Buffer buffer.Manager

	// Logger (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithDB sets the database connection.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithCatalog sets the catalog.
func WithCatalog(c metadata.Catalog) Option {
	return func(o *Options) {
		o.Catalog = c
	}
}

// WithCommandLogger sets the command logger.
func WithCommandLogger(l commandlog.Logger) Option {
	return func(o *Options) {
		o.CommandLogger = l
	}
}

// WithConnectorRegistry sets the connector registry.
func WithConnectorRegistry(reg *registry.Registry) Option {
	return func(o *Options) {
		o.ConnectorRegistry = reg
	}
}

// WithBuffer sets the LOB buffer.
func WithBuffer(b buffer.Manager) Option {
	return func(o *Options) {
		o.Buffer = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
