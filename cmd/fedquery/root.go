package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/txn2/fedquery/pkg/platform"
)

var configPath string

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fedquery",
	Short: "Federated query connector engine served over MCP",
	Long: `fedquery executes pushed-down query commands against configured data
source connectors (SQL databases, PostgreSQL, Trino, S3 and loopback) and
exposes connector status and the source command log as MCP tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
}

// loadConfig reads the --config file, or returns defaults when none is set.
func loadConfig() (*platform.Config, error) {
	if configPath == "" {
		return platform.ParseConfig(nil)
	}
	return platform.LoadConfig(configPath)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
