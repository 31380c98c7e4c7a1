package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-engine/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables",
	Long: `Apply the PostgreSQL schema. Existing tables are left untouched.

Requires PGHOST and the other PG* variables.

Examples:
  PGHOST=localhost PGDATABASE=fiscal fiscal-engine migrate`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.UsePostgres() {
		return fmt.Errorf("no database configured, set PGHOST")
	}

	st, err := postgres.Connect(postgres.Config{
		DSN:          cfg.GetDSN(),
		LockTimeout:  cfg.Database.LockTimeout,
		Serializable: cfg.Database.Serializable,
	}, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return st.Migrate(ctx)
}
