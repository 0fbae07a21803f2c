package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateSavedConnections, downCreateSavedConnections)
}

func upCreateSavedConnections(ctx context.Context, tx *sql.Tx) error {
	var ddl string
	switch dialect {
	case "postgres":
		ddl = `CREATE TABLE IF NOT EXISTS saved_connections (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL UNIQUE,
    driver       TEXT NOT NULL,
    url          TEXT NOT NULL DEFAULT '',
    username     TEXT NOT NULL DEFAULT '',
    database_id  TEXT NOT NULL DEFAULT '',
    token_enc    TEXT NOT NULL DEFAULT '',
    password_enc TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
)`
	case "mysql":
		ddl = `CREATE TABLE IF NOT EXISTS saved_connections (
    id           VARCHAR(36) PRIMARY KEY,
    name         VARCHAR(255) NOT NULL,
    driver       VARCHAR(32) NOT NULL,
    url          TEXT NOT NULL,
    username     VARCHAR(255) NOT NULL DEFAULT '',
    database_id  VARCHAR(255) NOT NULL DEFAULT '',
    token_enc    TEXT NOT NULL,
    password_enc TEXT NOT NULL,
    created_at   DATETIME(6) NOT NULL,
    updated_at   DATETIME(6) NOT NULL,
    UNIQUE KEY saved_connections_name (name)
)`
	case "mssql":
		ddl = `IF OBJECT_ID(N'saved_connections', N'U') IS NULL
CREATE TABLE saved_connections (
    id           NVARCHAR(36) PRIMARY KEY,
    name         NVARCHAR(255) NOT NULL CONSTRAINT saved_connections_name UNIQUE,
    driver       NVARCHAR(32) NOT NULL,
    url          NVARCHAR(MAX) NOT NULL DEFAULT '',
    username     NVARCHAR(255) NOT NULL DEFAULT '',
    database_id  NVARCHAR(255) NOT NULL DEFAULT '',
    token_enc    NVARCHAR(MAX) NOT NULL DEFAULT '',
    password_enc NVARCHAR(MAX) NOT NULL DEFAULT '',
    created_at   DATETIME2 NOT NULL,
    updated_at   DATETIME2 NOT NULL
)`
	default: // sqlite3
		ddl = `CREATE TABLE IF NOT EXISTS saved_connections (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL UNIQUE,
    driver       TEXT NOT NULL,
    url          TEXT NOT NULL DEFAULT '',
    username     TEXT NOT NULL DEFAULT '',
    database_id  TEXT NOT NULL DEFAULT '',
    token_enc    TEXT NOT NULL DEFAULT '',
    password_enc TEXT NOT NULL DEFAULT '',
    created_at   DATETIME NOT NULL,
    updated_at   DATETIME NOT NULL
)`
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create saved_connections table: %w", err)
	}
	return nil
}

func downCreateSavedConnections(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS saved_connections`)
	return err
}
