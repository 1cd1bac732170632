package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"playout/internal/config"
	"playout/internal/store/pgstore"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the Postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, pgstore.MigrateUp, "applied")
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, pgstore.MigrateDown, "rolled back")
		},
	})

	return cmd
}

func runMigrate(cmd *cobra.Command, fn func(dsn string) error, verb string) error {
	_, cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Backend != config.BackendPostgres || strings.TrimSpace(cfg.Store.DSN) == "" {
		return errors.New("migrate requires store.backend postgres and a dsn (or DATABASE_URL)")
	}
	if err := fn(cfg.Store.DSN); err != nil {
		return err
	}
	cmd.Printf("Migrations %s\n", verb)
	return nil
}
