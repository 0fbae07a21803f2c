// Package migrations holds the saved-connection schema. The DDL differs per
// dialect, so migrations are written in Go rather than SQL.
package migrations

// dialect is set by the parent package before goose runs.
var dialect string

// SetDialect configures the SQL dialect for the Go migrations.
// Valid values: "sqlite3", "postgres", "mysql", "mssql".
func SetDialect(d string) {
	dialect = d
}
