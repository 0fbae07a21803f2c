package dbdriver

import (
	"context"
	"encoding/json"
	"strings"
)

// CloudflareD1 talks to D1 through the studio's proxy endpoint, which
// forwards to the Cloudflare REST API using the account and database headers.
type CloudflareD1 struct {
	endpoint string
	headers  map[string]string
	http     *transport
}

func NewCloudflareD1(endpoint string, headers map[string]string, t *transport) *CloudflareD1 {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &CloudflareD1{endpoint: endpoint, headers: h, http: t}
}

type d1Meta struct {
	Changes     json.Number  `json:"changes"`
	Duration    float64      `json:"duration"`
	LastRowID   *json.Number `json:"last_row_id"`
	RowsRead    json.Number  `json:"rows_read"`
	RowsWritten json.Number  `json:"rows_written"`
}

type d1Result struct {
	Results struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	} `json:"results"`
	Meta    d1Meta `json:"meta"`
	Success bool   `json:"success"`
}

type d1Response struct {
	Result  []d1Result `json:"result"`
	Success bool       `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *CloudflareD1) Query(ctx context.Context, stmt string) (*ResultSet, error) {
	results, err := c.run(ctx, stmt, 1)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// Transaction sends the statements as one multi-statement call; D1 runs
// them in order and returns one result per statement. Separators sit on
// their own line so a trailing line comment cannot swallow them.
func (c *CloudflareD1) Transaction(ctx context.Context, stmts []string) ([]*ResultSet, error) {
	if len(stmts) == 0 {
		return nil, errEmptyBatch
	}
	trimmed := make([]string, len(stmts))
	for i, s := range stmts {
		trimmed[i] = strings.TrimRight(strings.TrimSpace(s), ";")
	}
	return c.run(ctx, strings.Join(trimmed, "\n;\n"), len(stmts))
}

func (c *CloudflareD1) run(ctx context.Context, sql string, expected int) ([]*ResultSet, error) {
	var resp d1Response
	if err := c.http.postJSON(ctx, KindCloudflareD1, c.endpoint, c.headers, map[string]any{"sql": sql}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := "request was not successful"
		if len(resp.Errors) > 0 {
			msg = resp.Errors[0].Message
		}
		return nil, &QueryError{Kind: KindCloudflareD1, Message: msg}
	}
	if len(resp.Result) < expected {
		return nil, &QueryError{Kind: KindCloudflareD1, Message: "result count does not match statement count"}
	}
	out := make([]*ResultSet, 0, len(resp.Result))
	for _, r := range resp.Result {
		rs := buildResultSet(r.Results.Columns, nil, r.Results.Rows)
		rs.Stat.RowsAffected = jsonInt(r.Meta.Changes)
		rs.Stat.RowsRead = jsonInt(r.Meta.RowsRead)
		rs.Stat.RowsWritten = jsonInt(r.Meta.RowsWritten)
		rs.Stat.QueryDurationMs = durationMs(r.Meta.Duration)
		rs.LastInsertRowID = jsonIntPtr(r.Meta.LastRowID)
		out = append(out, rs)
	}
	return out, nil
}
