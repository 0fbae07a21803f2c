// file: driver.go
package dbdriver

import "context"

type Kind string

const (
	KindRqlite        Kind = "rqlite"
	KindValtown       Kind = "valtown"
	KindCloudflareD1  Kind = "cloudflare-d1"
	KindStarbase      Kind = "starbase"
	KindCloudflareWAE Kind = "cloudflare-wae"
	KindTurso         Kind = "turso"
)

// Kinds lists every declared kind in dispatch priority order. Turso is last
// because it also serves as the fallback.
func Kinds() []Kind {
	return []Kind{KindRqlite, KindValtown, KindCloudflareD1, KindStarbase, KindCloudflareWAE, KindTurso}
}

// ParseKind matches a driver tag exactly. The boolean reports whether the
// tag names a declared kind; unknown and empty tags resolve to KindTurso.
func ParseKind(raw string) (Kind, bool) {
	k := Kind(raw)
	if _, ok := kindTable[k]; ok {
		return k, true
	}
	return KindTurso, false
}

type ConnectionConfig struct {
	Driver   Kind   `json:"driver" yaml:"driver"`
	URL      string `json:"url,omitempty" yaml:"url"`
	Token    string `json:"token,omitempty" yaml:"token"`
	Username string `json:"username,omitempty" yaml:"username"`
	Password string `json:"password,omitempty" yaml:"password"`
	Database string `json:"database,omitempty" yaml:"database"`
}

type ResultHeader struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	OriginalType string `json:"originalType,omitempty"`
}

type ResultStat struct {
	RowsAffected    int64    `json:"rowsAffected"`
	RowsRead        int64    `json:"rowsRead"`
	RowsWritten     int64    `json:"rowsWritten"`
	QueryDurationMs *float64 `json:"queryDurationMs"`
}

type ResultSet struct {
	Headers         []ResultHeader   `json:"headers"`
	Rows            []map[string]any `json:"rows"`
	Stat            ResultStat       `json:"stat"`
	LastInsertRowID *int64           `json:"lastInsertRowid,omitempty"`
}

// Queryable is the raw surface of a remote SQL-row service.
type Queryable interface {
	Query(ctx context.Context, stmt string) (*ResultSet, error)
	Transaction(ctx context.Context, stmts []string) ([]*ResultSet, error)
}

// Driver is what NewDriver hands back to callers.
type Driver interface {
	Queryable
	Kind() Kind
	Close() error
}

// Inspector is implemented by drivers that speak the SQLite dialect.
type Inspector interface {
	TestConnection(ctx context.Context) error
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) (*TableSchema, error)
	SampleRows(ctx context.Context, table string, limit int) ([]map[string]any, error)
	ProfileTable(ctx context.Context, table string, opts ProfileOptions) (*TableProfile, error)
}

type ProfileOptions struct {
	MaxColumns  int `json:"maxColumns"`
	SampleLimit int `json:"sampleLimit"`
}

type ColumnInfo struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	IsPK     bool    `json:"isPk"`
	Default  *string `json:"default,omitempty"`
}

type IndexInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

type TableSchema struct {
	Columns []ColumnInfo `json:"columns"`
	Indexes []IndexInfo  `json:"indexes"`
}

type ColumnProfile struct {
	Column           string   `json:"column"`
	Type             string   `json:"type"`
	Nullable         bool     `json:"nullable"`
	IsPK             bool     `json:"isPk"`
	SampleCount      int      `json:"sampleCount"`
	Nulls            int      `json:"nulls"`
	NullRate         float64  `json:"nullRate"`
	DistinctInSample int      `json:"distinctInSample"`
	Min              any      `json:"min"`
	Max              any      `json:"max"`
	Examples         []string `json:"examples"`
}

type TableProfile struct {
	Table         string           `json:"table"`
	RowCount      int64            `json:"rowCount"`
	Schema        TableSchema      `json:"schema"`
	Profiling     []ColumnProfile  `json:"profiling"`
	SamplePreview []map[string]any `json:"samplePreview"`
}

func present(s string) bool {
	return s != ""
}
