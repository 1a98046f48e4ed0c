package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/txn2/fedquery/pkg/platform"
)

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "Start the configured connectors and show their status",
	Long: `The connectors command builds every configured connector, starts it
against its data source and prints one row per connector with its kind,
transaction support, connection status and capability check.`,
	RunE: runConnectors,
}

func init() {
	rootCmd.AddCommand(connectorsCmd)
}

func runConnectors(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	p, err := platform.New(ctx, platform.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting connectors: %w", err)
	}

	connectors := p.ConnectorRegistry().All()
	if len(connectors) == 0 {
		pterm.Println("⚠️  No connectors configured")
		return nil
	}

	data := pterm.TableData{{"NAME", "KIND", "TRANSACTIONS", "STATUS", "CAPABILITIES"}}
	for _, c := range connectors {
		status, caps := "NOT LOADED", "-"
		if m, ok := p.Repository().Get(c.Name); ok {
			status = string(m.Status(ctx))
			if _, err := m.Capabilities(ctx); err != nil {
				caps = pterm.Red("error: " + err.Error())
			} else {
				caps = pterm.Green("ok")
			}
		}
		name := c.Name
		if c.Default {
			name += " (default)"
		}
		data = append(data, []string{name, c.Kind, string(c.Factory.TransactionSupport()), status, caps})
	}

	pterm.DefaultSection.Println("Connectors")
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Println()
	pterm.Println(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(strconv.Itoa(len(connectors)) + " connector(s)"))
	return nil
}
