package main

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/txn2/fedquery/pkg/database/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the command log database schema",
	Long: `The migrate command applies or rolls back the schema used by the
postgres command log store. It connects using database.dsn from the
configuration file.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: withDB(func(db *sql.DB) error {
		if err := migrate.Run(db); err != nil {
			return err
		}
		pterm.Success.Println("Migrations applied")
		return nil
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: withDB(func(db *sql.DB) error {
		if err := migrate.Down(db); err != nil {
			return err
		}
		pterm.Success.Println("Migrations rolled back")
		return nil
	}),
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	RunE: withDB(func(db *sql.DB) error {
		version, dirty, err := migrate.Version(db)
		if err != nil {
			return err
		}
		state := pterm.Green("clean")
		if dirty {
			state = pterm.Red("dirty")
		}
		pterm.Printfln("Schema version %d (%s)", version, state)
		return nil
	}),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

// withDB opens the configured database for the duration of fn.
func withDB(fn func(*sql.DB) error) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.DSN == "" {
			return errors.New("database.dsn is required")
		}

		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() { _ = db.Close() }()

		if err := db.Ping(); err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		return fn(db)
	}
}
