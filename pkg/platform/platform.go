// Package platform assembles connectors, the catalog and command logging
// into a running engine and exposes its state over MCP.
//
// Embedders drive requests through the managers in Repository: register an
// engine.AtomicRequestMessage, Execute the work item and Drain its results.
// The sample_table tool does the same for a single table projection.
package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/lib/pq" // postgres driver for the command log database
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/fedquery/pkg/buffer"
	"github.com/txn2/fedquery/pkg/commandlog"
	"github.com/txn2/fedquery/pkg/commandlog/postgres"
	"github.com/txn2/fedquery/pkg/database/migrate"
	"github.com/txn2/fedquery/pkg/engine"
	"github.com/txn2/fedquery/pkg/metadata"
	"github.com/txn2/fedquery/pkg/registry"
)

const commandLogCleanupInterval = 24 * time.Hour

// Platform is the main platform facade.
type Platform struct {
	config *Config
	logger *slog.Logger

	// Core components
	mcpServer  *mcp.Server
	lifecycle  *Lifecycle
	repository *engine.Repository

	registry      *registry.Registry
	catalog       metadata.Catalog
	commandLogger commandlog.Logger
	buffer        buffer.Manager

	// closers run by Close after the lifecycle stops, in reverse order.
	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// New creates a platform and loads its connectors. Connectors are not
// started until Start.
func New(ctx context.Context, opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, errors.New("config is required")
	}
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}

	p := &Platform{
		config:     options.Config,
		logger:     options.Logger,
		lifecycle:  NewLifecycle(),
		repository: engine.NewRepository(),
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	if err := p.initializeComponents(ctx, options); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("initializing components: %w", err)
	}
	return p, nil
}

func (p *Platform) initializeComponents(ctx context.Context, opts *Options) error {
	if err := p.initCatalog(opts); err != nil {
		return err
	}
	if err := p.initCommandLog(opts); err != nil {
		return err
	}
	p.initBuffer(opts)
	if err := p.initConnectors(ctx, opts); err != nil {
		return err
	}
	p.finalizeSetup()
	return nil
}

func (p *Platform) initCatalog(opts *Options) error {
	if opts.Catalog != nil {
		p.catalog = opts.Catalog
		return nil
	}
	catalog, closer, err := newCatalog(p.config.Metadata)
	if err != nil {
		return err
	}
	p.catalog = catalog
	if closer != nil {
		p.closers = append(p.closers, closer)
	}
	return nil
}

func (p *Platform) initCommandLog(opts *Options) error {
	if opts.CommandLogger != nil {
		p.commandLogger = opts.CommandLogger
		p.closers = append(p.closers, p.commandLogger.Close)
		return nil
	}

	cfg := p.config.CommandLog
	if !cfg.Enabled {
		return nil
	}

	switch cfg.Store {
	case CommandLogPostgres:
		db, err := p.openDB(opts)
		if err != nil {
			return err
		}
		if err := migrate.Run(db); err != nil {
			return fmt.Errorf("migrating command log database: %w", err)
		}
		store := postgres.New(db, postgres.Config{RetentionDays: cfg.RetentionDays})
		p.commandLogger = store
		p.closers = append(p.closers, store.Close)
		p.lifecycle.Append("command log cleanup",
			func(context.Context) error {
				store.StartCleanupRoutine(commandLogCleanupInterval)
				return nil
			},
			func(context.Context) error { return store.Close() })
	default:
		l := commandlog.NewSlogLogger(p.logger, cfg.Capacity)
		p.commandLogger = l
		p.closers = append(p.closers, l.Close)
	}
	return nil
}

func (p *Platform) openDB(opts *Options) (*sql.DB, error) {
	if opts.DB != nil {
		return opts.DB, nil
	}
	db, err := sql.Open("postgres", p.config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(p.config.Database.MaxOpenConns)
	p.closers = append(p.closers, db.Close)
	return db, nil
}

func (p *Platform) initBuffer(opts *Options) {
	if opts.Buffer != nil {
		p.buffer = opts.Buffer
		return
	}
	p.buffer = buffer.NewMemoryManager(p.config.Buffer.MaxLOBMemory)
}

// initConnectors loads the registry and hands every connector to a
// ConnectorManager. From then on the managers own the sources.
func (p *Platform) initConnectors(ctx context.Context, opts *Options) error {
	p.registry = opts.ConnectorRegistry
	if p.registry == nil {
		p.registry = registry.NewRegistry()
		registry.RegisterBuiltinFactories(p.registry)
		if err := registry.NewLoader(p.registry).Load(ctx, p.config.LoaderConfig()); err != nil {
			_ = p.registry.Close()
			return fmt.Errorf("loading connectors: %w", err)
		}
	}

	for _, c := range p.registry.All() {
		m := engine.NewConnectorManager(c.Name, c.Factory,
			engine.WithConnectionFactory(c.ConnectionFactory),
			engine.WithCatalog(p.catalog),
			engine.WithCommandLogger(p.commandLogger),
			engine.WithLogger(p.logger),
			engine.WithBuffer(p.buffer),
			engine.WithFetchSize(p.config.Engine.FetchSize),
			engine.WithExecutionTimeout(p.config.Engine.ExecutionTimeout),
		)
		if err := p.repository.Add(m); err != nil {
			return err
		}
	}

	p.lifecycle.OnStart("connectors", p.startConnectors)
	return nil
}

// startConnectors starts every manager. A connector that fails to start is
// reported as INIT_FAILED by its status and does not stop the platform.
func (p *Platform) startConnectors(ctx context.Context) error {
	if err := p.repository.StartAll(ctx); err != nil {
		p.logger.Warn("some connectors failed to start", "error", err)
	}
	p.logger.Info("connectors started", "count", len(p.repository.Names()))
	return nil
}

func (p *Platform) finalizeSetup() {
	p.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    p.config.Server.Name,
		Version: p.config.Server.Version,
	}, nil)
	p.registerInfoTool()
	p.registerConnectorsTool()
	p.registerStatusTool()
	p.registerCommandsTool()
	p.registerSampleTool()
}

// Start starts the platform.
func (p *Platform) Start(ctx context.Context) error {
	return p.lifecycle.Start(ctx)
}

// Stop stops the platform.
func (p *Platform) Stop(ctx context.Context) error {
	return p.lifecycle.Stop(ctx)
}

// MCPServer returns the MCP server.
func (p *Platform) MCPServer() *mcp.Server {
	return p.mcpServer
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// Repository returns the connector managers.
func (p *Platform) Repository() *engine.Repository {
	return p.repository
}

// ConnectorRegistry returns the connector registry.
func (p *Platform) ConnectorRegistry() *registry.Registry {
	return p.registry
}

// Catalog returns the catalog.
func (p *Platform) Catalog() metadata.Catalog {
	return p.catalog
}

// CommandLogger returns the command logger, or nil when command logging is
// disabled.
func (p *Platform) CommandLogger() commandlog.Logger {
	return p.commandLogger
}

// Close stops the platform, cancels live requests, closes every connector
// source and then releases the remaining resources. Only the first call
// does any work.
func (p *Platform) Close() error {
	p.closeOnce.Do(func() { p.closeErr = p.close() })
	return p.closeErr
}

func (p *Platform) close() error {
	ctx := context.Background()
	var errs []error

	if err := p.lifecycle.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := p.repository.StopAll(ctx); err != nil {
		errs = append(errs, err)
	}
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing platform: %w", errors.Join(errs...))
	}
	return nil
}
