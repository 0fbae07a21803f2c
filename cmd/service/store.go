package main

import (
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	dbdriver "dbstudio"
	"dbstudio/cmd/service/internal/config"
	"dbstudio/cmd/service/internal/connections"
)

// openStore opens and migrates the saved-connection database. The store is
// nil when no encryption key is configured.
func openStore(cfg *config.Config) (*sqlx.DB, *connections.SQLStore, error) {
	database, err := connections.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := connections.Migrate(database, cfg.DB.Driver); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	if len(cfg.EncryptionKey) == 0 {
		return database, nil, nil
	}
	store, err := connections.NewSQLStore(database, cfg.EncryptionKey)
	if err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return database, store, nil
}

func requireStore(store *connections.SQLStore) error {
	if store == nil {
		return errors.New("DBSTUDIO_ENCRYPTION_KEY is required for saved connections")
	}
	return nil
}

// driverFactory binds the selector to the service's proxy origin.
func driverFactory(cfg *config.Config) DriverFactory {
	origin := proxyOrigin(cfg)
	return func(c dbdriver.ConnectionConfig) (dbdriver.Driver, error) {
		return dbdriver.NewDriver(c,
			dbdriver.WithProxyOrigin(origin),
			dbdriver.WithUserAgent("dbstudio"),
		)
	}
}

func proxyOrigin(cfg *config.Config) string {
	if cfg.Proxy.Origin != "" {
		return cfg.Proxy.Origin
	}
	addr := cfg.HTTP.Addr
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}
