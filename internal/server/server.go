// Package server creates the platform and serves its MCP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/fedquery/pkg/platform"
)

// Version is set at build time.
var Version = "dev"

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// New creates a platform from cfg. The server version defaults to the
// build version.
func New(ctx context.Context, cfg *platform.Config, opts ...platform.Option) (*mcp.Server, *platform.Platform, error) {
	if cfg.Server.Version == "" || cfg.Server.Version == "0.0.0" {
		cfg.Server.Version = Version
	}
	p, err := platform.New(ctx, append([]platform.Option{platform.WithConfig(cfg)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating platform: %w", err)
	}
	return p.MCPServer(), p, nil
}

// NewWithConfig loads the configuration file at path and creates a platform.
func NewWithConfig(ctx context.Context, path string) (*mcp.Server, *platform.Platform, error) {
	cfg, err := platform.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	return New(ctx, cfg)
}

// Handler serves the MCP server over streamable HTTP.
func Handler(s *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s }, nil)
}

// Serve starts p and serves its MCP server on transport until ctx is
// done or the client disconnects. The platform is stopped on return.
func Serve(ctx context.Context, p *platform.Platform, transport, address string) error {
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}
	defer func() {
		if err := p.Stop(context.Background()); err != nil {
			slog.Warn("stopping platform", "error", err)
		}
	}()

	switch transport {
	case "stdio":
		return p.MCPServer().Run(ctx, &mcp.StdioTransport{})
	case "http":
		return serveHTTP(ctx, Handler(p.MCPServer()), address)
	default:
		return fmt.Errorf("unknown transport: %s", transport)
	}
}

func serveHTTP(ctx context.Context, handler http.Handler, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("serving MCP over HTTP", "address", address)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	}
}
