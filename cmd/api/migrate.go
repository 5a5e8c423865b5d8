package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/GFB-Team3/backend/internal/config"
	"github.com/GFB-Team3/backend/internal/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply or roll back the embedded schema migrations.

Subcommands:
  up       - Apply pending migrations
  down     - Roll back the last migration
  version  - Print the applied schema version`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd.Context(), func(ctx context.Context, run migrationRunner) error {
					if err := database.MigrateUp(ctx, run.db); err != nil {
						return err
					}
					run.log.Info("Migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd.Context(), func(ctx context.Context, run migrationRunner) error {
					if err := database.MigrateDown(ctx, run.db); err != nil {
						return err
					}
					run.log.Info("Rolled back one migration")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd.Context(), func(ctx context.Context, run migrationRunner) error {
					v, dirty, err := database.Version(ctx, run.db)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

type migrationRunner struct {
	db  *sql.DB
	log logrus.FieldLogger
}

func withDatabase(ctx context.Context, fn func(ctx context.Context, run migrationRunner) error) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	if cfg.DB.Driver != config.StoreDriverPostgres {
		return errors.New("migrations require STORE_DRIVER=postgres")
	}

	db, err := database.Open(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, migrationRunner{db: db.DB, log: log})
}
