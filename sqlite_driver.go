// file: sqlite_driver.go
package dbdriver

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// SQLiteDriver gives every SQLite-compatible remote service the same
// query and schema-inspection surface.
type SQLiteDriver struct {
	kind Kind
	q    Queryable
}

func NewSQLiteDriver(kind Kind, q Queryable) *SQLiteDriver {
	return &SQLiteDriver{kind: kind, q: q}
}

func (d *SQLiteDriver) Kind() Kind { return d.kind }

// Raw returns the wrapped client.
func (d *SQLiteDriver) Raw() Queryable { return d.q }

func (d *SQLiteDriver) Query(ctx context.Context, stmt string) (*ResultSet, error) {
	return d.q.Query(ctx, stmt)
}

func (d *SQLiteDriver) Transaction(ctx context.Context, stmts []string) ([]*ResultSet, error) {
	return d.q.Transaction(ctx, stmts)
}

func (d *SQLiteDriver) Close() error {
	if c, ok := d.q.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (d *SQLiteDriver) TestConnection(ctx context.Context) error {
	if _, err := d.q.Query(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("ping %s: %w", d.kind, err)
	}
	return nil
}

func (d *SQLiteDriver) ListTables(ctx context.Context) ([]string, error) {
	rs, err := d.q.Query(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' AND name NOT LIKE '\_cf\_%' ESCAPE '\' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list %s tables: %w", d.kind, err)
	}
	tables := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		if name, ok := row["name"].(string); ok {
			tables = append(tables, name)
		}
	}
	sort.Strings(tables)
	return tables, nil
}

func (d *SQLiteDriver) DescribeTable(ctx context.Context, table string) (*TableSchema, error) {
	schema, name, _, err := splitTable(table)
	if err != nil {
		return nil, fmt.Errorf("invalid %s table: %w", d.kind, err)
	}
	colsQuery := fmt.Sprintf(`SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(%s, %s) ORDER BY cid`, quoteString(name), quoteString(schema))
	colsRS, err := d.q.Query(ctx, colsQuery)
	if err != nil {
		return nil, fmt.Errorf("query %s columns: %w", d.kind, err)
	}
	if len(colsRS.Rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, table)
	}
	columns := make([]ColumnInfo, 0, len(colsRS.Rows))
	for _, row := range colsRS.Rows {
		col := ColumnInfo{
			Name:     fmt.Sprint(row["name"]),
			Nullable: toInt(row["notnull"]) == 0,
			IsPK:     toInt(row["pk"]) > 0,
		}
		if t, ok := row["type"].(string); ok {
			col.Type = t
		}
		if row["dflt_value"] != nil {
			def := fmt.Sprint(row["dflt_value"])
			col.Default = &def
		}
		columns = append(columns, col)
	}

	idxQuery := fmt.Sprintf(`SELECT il.name AS index_name, il."unique" AS is_unique, ii.name AS column_name FROM pragma_index_list(%s, %s) AS il JOIN pragma_index_info(il.name, %s) AS ii ORDER BY il.name, ii.seqno`, quoteString(name), quoteString(schema), quoteString(schema))
	idxRS, err := d.q.Query(ctx, idxQuery)
	if err != nil {
		return nil, fmt.Errorf("query %s indexes: %w", d.kind, err)
	}
	indexMap := map[string]*IndexInfo{}
	order := []string{}
	for _, row := range idxRS.Rows {
		idxName := fmt.Sprint(row["index_name"])
		idx, ok := indexMap[idxName]
		if !ok {
			idx = &IndexInfo{Name: idxName, Unique: toInt(row["is_unique"]) == 1, Columns: []string{}}
			indexMap[idxName] = idx
			order = append(order, idxName)
		}
		if col, ok := row["column_name"].(string); ok {
			idx.Columns = append(idx.Columns, col)
		}
	}
	indexes := make([]IndexInfo, 0, len(order))
	for _, n := range order {
		indexes = append(indexes, *indexMap[n])
	}
	return &TableSchema{Columns: columns, Indexes: sortIndexes(indexes)}, nil
}

func (d *SQLiteDriver) SampleRows(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	return d.sampleRows(ctx, table, normalizeSampleLimit(limit), nil)
}

func (d *SQLiteDriver) ProfileTable(ctx context.Context, table string, opts ProfileOptions) (*TableProfile, error) {
	opts = normalizeProfileOptions(opts)
	schema, err := d.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	rowCount, err := d.countRows(ctx, table)
	if err != nil {
		return nil, err
	}
	columns := schema.Columns
	if len(columns) > opts.MaxColumns {
		columns = columns[:opts.MaxColumns]
	}
	columnNames := make([]string, len(columns))
	for i, col := range columns {
		columnNames[i] = col.Name
	}
	sample, err := d.sampleRows(ctx, table, opts.SampleLimit, columnNames)
	if err != nil {
		return nil, err
	}
	preview := sample
	if len(preview) > maxSamplePreview {
		preview = preview[:maxSamplePreview]
	}
	return &TableProfile{
		Table:         table,
		RowCount:      rowCount,
		Schema:        *schema,
		Profiling:     profileFromSample(*schema, sample, opts.MaxColumns),
		SamplePreview: preview,
	}, nil
}

func (d *SQLiteDriver) sampleRows(ctx context.Context, table string, limit int, columns []string) ([]map[string]any, error) {
	_, _, quotedTable, err := splitTable(table)
	if err != nil {
		return nil, fmt.Errorf("invalid %s table: %w", d.kind, err)
	}
	selectClause := "*"
	if len(columns) > 0 {
		selectClause, err = quoteList(columns)
		if err != nil {
			return nil, fmt.Errorf("invalid %s column list: %w", d.kind, err)
		}
	}
	rs, err := d.q.Query(ctx, fmt.Sprintf("SELECT %s FROM %s LIMIT %d", selectClause, quotedTable, limit))
	if err != nil {
		return nil, fmt.Errorf("query %s sample rows: %w", d.kind, err)
	}
	return ensureSlice(rs.Rows), nil
}

func (d *SQLiteDriver) countRows(ctx context.Context, table string) (int64, error) {
	_, _, quotedTable, err := splitTable(table)
	if err != nil {
		return 0, fmt.Errorf("invalid %s table: %w", d.kind, err)
	}
	rs, err := d.q.Query(ctx, "SELECT COUNT(*) AS row_count FROM "+quotedTable)
	if err != nil {
		return 0, fmt.Errorf("count %s rows: %w", d.kind, err)
	}
	if len(rs.Rows) == 0 {
		return 0, nil
	}
	return toInt(rs.Rows[0]["row_count"]), nil
}

var (
	_ Driver    = (*SQLiteDriver)(nil)
	_ Inspector = (*SQLiteDriver)(nil)
)
