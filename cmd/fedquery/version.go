package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	mcpserver "github.com/txn2/fedquery/internal/server"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fedquery version",
	Run: func(cmd *cobra.Command, _ []string) {
		pterm.Fprintln(cmd.OutOrStdout(), "fedquery "+mcpserver.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
