package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/GFB-Team3/backend/internal/config"
	"github.com/GFB-Team3/backend/internal/logging"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pins-api",
		Short: "Pins API - image pin board backend",
		Long: `Pins API serves users, pins, likes and comments over HTTP.

Settings are read from the environment and an optional .env file.
Running without a subcommand starts the HTTP server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

// loadRuntime reads configuration and builds the process logger.
func loadRuntime() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format), nil
}
