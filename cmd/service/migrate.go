package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"dbstudio/cmd/service/internal/config"
	"dbstudio/cmd/service/internal/connections"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)

			database, err := connections.Open(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := connections.Migrate(database, cfg.DB.Driver); err != nil {
				return err
			}

			logger.Info("migrations complete", slog.String("driver", cfg.DB.Driver))
			return nil
		},
	}
}
