// file: profile.go
package dbdriver

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxColumns  = 25
	defaultSampleLimit = 50
	maxSamplePreview   = 5
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

func splitIdentifier(ident string) ([]string, error) {
	trimmed := strings.TrimSpace(ident)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	parts := strings.Split(trimmed, ".")
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidIdentifier, trimmed)
		}
		if !identPattern.MatchString(part) {
			return nil, fmt.Errorf("%w: segment %q", ErrInvalidIdentifier, part)
		}
	}
	return parts, nil
}

func quoteIdent(s string) string {
	return `"` + s + `"`
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// splitTable returns the schema (defaulting to main) and table name of a
// possibly qualified SQLite table reference, plus its quoted form.
func splitTable(table string) (schema, name, quoted string, err error) {
	parts, err := splitIdentifier(table)
	if err != nil {
		return "", "", "", err
	}
	switch len(parts) {
	case 1:
		return "main", parts[0], quoteIdent(parts[0]), nil
	case 2:
		return parts[0], parts[1], quoteIdent(parts[0]) + "." + quoteIdent(parts[1]), nil
	default:
		return "", "", "", fmt.Errorf("%w: %q has too many segments", ErrInvalidIdentifier, table)
	}
}

func quoteList(names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no columns provided", ErrInvalidIdentifier)
	}
	quoted := make([]string, len(names))
	for i, name := range names {
		parts, err := splitIdentifier(name)
		if err != nil || len(parts) != 1 {
			return "", fmt.Errorf("%w: column %q", ErrInvalidIdentifier, name)
		}
		quoted[i] = quoteIdent(name)
	}
	return strings.Join(quoted, ", "), nil
}

func normalizeProfileOptions(opts ProfileOptions) ProfileOptions {
	if opts.MaxColumns <= 0 {
		opts.MaxColumns = defaultMaxColumns
	}
	if opts.SampleLimit <= 0 {
		opts.SampleLimit = defaultSampleLimit
	}
	return opts
}

func normalizeSampleLimit(limit int) int {
	if limit <= 0 {
		return defaultSampleLimit
	}
	return limit
}

func profileFromSample(schema TableSchema, sample []map[string]any, maxColumns int) []ColumnProfile {
	cols := schema.Columns
	if maxColumns > 0 && len(cols) > maxColumns {
		cols = cols[:maxColumns]
	}
	stats := make([]*columnStats, len(cols))
	for i, col := range cols {
		stats[i] = newColumnStats(col, len(sample))
	}
	for _, row := range sample {
		for _, st := range stats {
			st.add(row[st.Column])
		}
	}
	out := make([]ColumnProfile, len(stats))
	for i, st := range stats {
		out[i] = st.profile()
	}
	return out
}

const maxExamples = 3

// columnStats accumulates one column's profile over a sample. Missing keys
// count as nulls.
type columnStats struct {
	ColumnProfile
	seen   map[string]struct{}
	bounds valueRange
}

func newColumnStats(col ColumnInfo, rows int) *columnStats {
	return &columnStats{
		ColumnProfile: ColumnProfile{
			Column:      col.Name,
			Type:        col.Type,
			Nullable:    col.Nullable,
			IsPK:        col.IsPK,
			SampleCount: rows,
			Examples:    []string{},
		},
		seen: make(map[string]struct{}),
	}
}

func (st *columnStats) add(v any) {
	if v == nil {
		st.Nulls++
		return
	}
	text := fmt.Sprint(v)
	if _, dup := st.seen[text]; !dup {
		st.seen[text] = struct{}{}
		if len(st.Examples) < maxExamples {
			st.Examples = append(st.Examples, text)
		}
	}
	st.bounds.observe(v)
}

func (st *columnStats) profile() ColumnProfile {
	p := st.ColumnProfile
	p.DistinctInSample = len(st.seen)
	if p.SampleCount > 0 {
		p.NullRate = float64(p.Nulls) / float64(p.SampleCount)
	}
	p.Min, p.Max = st.bounds.extremes()
	return p
}

type rangeFamily int

const (
	familyNone rangeFamily = iota
	familyTime
	familyNumber
)

// valueRange keeps the extremes of the first family it sees, timestamps or
// numbers. Values of the other family are dropped afterwards. Strings are
// tried as timestamps before numbers.
type valueRange struct {
	family       rangeFamily
	loT, hiT     time.Time
	loNum, hiNum float64
}

func (r *valueRange) observe(v any) {
	if t, ok := toTime(v); ok {
		switch r.family {
		case familyNone:
			r.family, r.loT, r.hiT = familyTime, t, t
		case familyTime:
			if t.Before(r.loT) {
				r.loT = t
			}
			if t.After(r.hiT) {
				r.hiT = t
			}
		}
		return
	}
	f, ok := toFloat(v)
	if !ok {
		return
	}
	switch r.family {
	case familyNone:
		r.family, r.loNum, r.hiNum = familyNumber, f, f
	case familyNumber:
		r.loNum = min(r.loNum, f)
		r.hiNum = max(r.hiNum, f)
	}
}

func (r valueRange) extremes() (lo, hi any) {
	switch r.family {
	case familyTime:
		return r.loT, r.hiT
	case familyNumber:
		return r.loNum, r.hiNum
	default:
		return nil, nil
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt(v any) int64 {
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	return int64(f)
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return parseTime(t)
	default:
		return time.Time{}, false
	}
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func ensureSlice[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func sortIndexes(indexes []IndexInfo) []IndexInfo {
	for i := range indexes {
		indexes[i].Columns = ensureSlice(indexes[i].Columns)
	}
	sort.SliceStable(indexes, func(i, j int) bool {
		return indexes[i].Name < indexes[j].Name
	})
	return indexes
}
