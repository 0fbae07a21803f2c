package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dbstudio/cmd/service/internal/bus"
	"dbstudio/cmd/service/internal/config"
	"dbstudio/cmd/service/internal/connections"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)

			database, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var resolver connections.Resolver
			var connStore ConnectionStore
			if store == nil {
				logger.Warn("connectionRef resolver disabled", slog.String("reason", "no encryption key configured"))
			} else {
				resolver = connections.NewResolver(store)
				connStore = store
				if cfg.ImportFile != "" {
					result, err := connections.ImportFile(ctx, store, cfg.ImportFile)
					if err != nil {
						return err
					}
					logger.Info("connections imported", slog.Int("created", len(result.Created)), slog.Int("skipped", len(result.Skipped)))
				}
			}

			h := NewHandler(resolver, driverFactory(cfg), connStore, logger)
			if cfg.Bus.NatsURL != "" {
				publisher, err := bus.NewPublisher(cfg.Bus.NatsURL)
				if err != nil {
					return err
				}
				defer publisher.Close()
				h.Events = publisher
			}
			proxy := NewD1Proxy(cfg.Proxy.CloudflareAPI, &http.Client{Timeout: cfg.HTTP.Timeout}, cfg.Proxy.RPS, cfg.Proxy.Burst, logger)

			server := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           newRouter(routerDeps{Handler: h, Proxy: proxy, Logger: logger, Timeout: cfg.HTTP.Timeout}),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      cfg.HTTP.Timeout + 5*time.Second,
				IdleTimeout:       60 * time.Second,
			}

			shutdownErr := make(chan error, 1)
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				shutdownErr <- server.Shutdown(shutdownCtx)
			}()

			logger.Info("dbstudio listening", slog.String("addr", cfg.HTTP.Addr), slog.String("store", cfg.DB.Driver))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return <-shutdownErr
		},
	}
}
