package dbdriver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

// Turso speaks the Hrana-over-HTTP pipeline protocol used by libsql servers.
type Turso struct {
	endpoint  string
	token     string
	localMode bool
	http      *transport
}

// NewTurso builds a Turso client. In local mode integer cells keep their
// exact int64 value the way a local SQLite returns them; otherwise they are
// decoded as float64.
func NewTurso(url, token string, localMode bool, t *transport) *Turso {
	return &Turso{
		endpoint:  tursoHTTPURL(url) + "/v2/pipeline",
		token:     token,
		localMode: localMode,
		http:      t,
	}
}

func tursoHTTPURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	switch {
	case strings.HasPrefix(u, "libsql://"):
		return "https://" + strings.TrimPrefix(u, "libsql://")
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	default:
		return u
	}
}

type hranaStmt struct {
	SQL      string `json:"sql"`
	WantRows bool   `json:"want_rows"`
}

type hranaCondition struct {
	Type string          `json:"type"`
	Step *int            `json:"step,omitempty"`
	Cond *hranaCondition `json:"cond,omitempty"`
}

type hranaStep struct {
	Condition *hranaCondition `json:"condition,omitempty"`
	Stmt      hranaStmt       `json:"stmt"`
}

type hranaRequest struct {
	Type  string      `json:"type"`
	Stmt  *hranaStmt  `json:"stmt,omitempty"`
	Batch *hranaBatch `json:"batch,omitempty"`
}

type hranaBatch struct {
	Steps []hranaStep `json:"steps"`
}

type hranaValue struct {
	Type   string          `json:"type"`
	Value  json.RawMessage `json:"value"`
	Base64 string          `json:"base64"`
}

type hranaStmtResult struct {
	Cols []struct {
		Name     string `json:"name"`
		Decltype string `json:"decltype"`
	} `json:"cols"`
	Rows             [][]hranaValue `json:"rows"`
	AffectedRowCount int64          `json:"affected_row_count"`
	LastInsertRowID  *string        `json:"last_insert_rowid"`
	RowsRead         int64          `json:"rows_read"`
	RowsWritten      int64          `json:"rows_written"`
	QueryDurationMs  *float64       `json:"query_duration_ms"`
}

type hranaError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type hranaStreamResult struct {
	Type     string `json:"type"`
	Response struct {
		Type   string          `json:"type"`
		Result json.RawMessage `json:"result"`
	} `json:"response"`
	Error *hranaError `json:"error"`
}

type hranaBatchResult struct {
	StepResults []*hranaStmtResult `json:"step_results"`
	StepErrors  []*hranaError      `json:"step_errors"`
}

func (t *Turso) pipeline(ctx context.Context, req hranaRequest) (json.RawMessage, error) {
	body := map[string]any{
		"baton":    nil,
		"requests": []hranaRequest{req, {Type: "close"}},
	}
	var resp struct {
		Results []hranaStreamResult `json:"results"`
	}
	if err := t.http.postJSON(ctx, KindTurso, t.endpoint, bearer(t.token), body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, &QueryError{Kind: KindTurso, Message: "empty pipeline response"}
	}
	first := resp.Results[0]
	if first.Type == "error" {
		msg := "unknown error"
		if first.Error != nil {
			msg = first.Error.Message
		}
		return nil, &QueryError{Kind: KindTurso, Message: msg}
	}
	return first.Response.Result, nil
}

func (t *Turso) Query(ctx context.Context, stmt string) (*ResultSet, error) {
	raw, err := t.pipeline(ctx, hranaRequest{Type: "execute", Stmt: &hranaStmt{SQL: stmt, WantRows: true}})
	if err != nil {
		return nil, err
	}
	var res hranaStmtResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &QueryError{Kind: KindTurso, Message: "malformed execute result: " + err.Error()}
	}
	return t.resultSet(&res), nil
}

// Transaction wraps the statements in BEGIN/COMMIT inside a single batch.
// Each step only runs if the previous one succeeded, and a final ROLLBACK
// step runs when the COMMIT did not.
func (t *Turso) Transaction(ctx context.Context, stmts []string) ([]*ResultSet, error) {
	if len(stmts) == 0 {
		return nil, errEmptyBatch
	}
	steps := []hranaStep{{Stmt: hranaStmt{SQL: "BEGIN"}}}
	for i, s := range stmts {
		steps = append(steps, hranaStep{Condition: okAfter(i), Stmt: hranaStmt{SQL: s, WantRows: true}})
	}
	commit := len(steps)
	steps = append(steps, hranaStep{Condition: okAfter(commit - 1), Stmt: hranaStmt{SQL: "COMMIT"}})
	steps = append(steps, hranaStep{
		Condition: &hranaCondition{Type: "not", Cond: okAfter(commit)},
		Stmt:      hranaStmt{SQL: "ROLLBACK"},
	})
	raw, err := t.pipeline(ctx, hranaRequest{Type: "batch", Batch: &hranaBatch{Steps: steps}})
	if err != nil {
		return nil, err
	}
	var res hranaBatchResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &QueryError{Kind: KindTurso, Message: "malformed batch result: " + err.Error()}
	}
	for _, e := range res.StepErrors {
		if e != nil {
			return nil, &QueryError{Kind: KindTurso, Message: e.Message}
		}
	}
	if len(res.StepResults) < len(stmts)+1 {
		return nil, &QueryError{Kind: KindTurso, Message: "result count does not match statement count"}
	}
	out := make([]*ResultSet, len(stmts))
	for i := range stmts {
		r := res.StepResults[i+1]
		if r == nil {
			return nil, &QueryError{Kind: KindTurso, Message: "statement was not executed"}
		}
		out[i] = t.resultSet(r)
	}
	return out, nil
}

func okAfter(step int) *hranaCondition {
	return &hranaCondition{Type: "ok", Step: &step}
}

func (t *Turso) resultSet(res *hranaStmtResult) *ResultSet {
	columns := make([]string, len(res.Cols))
	types := make([]string, len(res.Cols))
	for i, c := range res.Cols {
		columns[i] = c.Name
		types[i] = c.Decltype
	}
	values := make([][]any, len(res.Rows))
	for i, row := range res.Rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = t.decodeValue(v)
		}
		values[i] = vals
	}
	rs := buildResultSet(columns, types, values)
	rs.Stat = ResultStat{
		RowsAffected:    res.AffectedRowCount,
		RowsRead:        res.RowsRead,
		RowsWritten:     res.RowsWritten,
		QueryDurationMs: res.QueryDurationMs,
	}
	if res.LastInsertRowID != nil {
		if id, err := strconv.ParseInt(*res.LastInsertRowID, 10, 64); err == nil {
			rs.LastInsertRowID = &id
		}
	}
	return rs
}

func (t *Turso) decodeValue(v hranaValue) any {
	switch v.Type {
	case "integer":
		var s string
		if err := json.Unmarshal(v.Value, &s); err != nil {
			return nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return s
		}
		if t.localMode {
			return i
		}
		return float64(i)
	case "float":
		var f float64
		if err := json.Unmarshal(v.Value, &f); err != nil {
			return nil
		}
		return f
	case "text":
		var s string
		if err := json.Unmarshal(v.Value, &s); err != nil {
			return nil
		}
		return s
	case "blob":
		b, err := base64.StdEncoding.DecodeString(v.Base64)
		if err != nil {
			b, err = base64.RawStdEncoding.DecodeString(v.Base64)
			if err != nil {
				return nil
			}
		}
		return b
	default:
		return nil
	}
}
