package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/txn2/fedquery/internal/server"
)

var (
	serveTransport string
	serveAddress   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the connectors and serve MCP over stdio or HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "Transport type: stdio, http (overrides config)")
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "Listen address for the http transport (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveTransport != "" {
		cfg.Server.Transport = serveTransport
	}
	if serveAddress != "" {
		cfg.Server.Address = serveAddress
	}

	// stdout carries the protocol on stdio, so logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, p, err := mcpserver.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			slog.Warn("closing platform", "error", err)
		}
	}()

	slog.Info("starting fedquery",
		"version", mcpserver.Version,
		"transport", cfg.Server.Transport,
		"connectors", len(p.Repository().Names()))

	if err := mcpserver.Serve(ctx, p, cfg.Server.Transport, cfg.Server.Address); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
