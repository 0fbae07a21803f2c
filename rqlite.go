package dbdriver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
)

type Rqlite struct {
	endpoint string
	username string
	password string
	http     *transport
}

func NewRqlite(url, username, password string, t *transport) *Rqlite {
	return &Rqlite{
		endpoint: strings.TrimRight(strings.TrimSpace(url), "/"),
		username: username,
		password: password,
		http:     t,
	}
}

type rqliteResult struct {
	Columns      []string     `json:"columns"`
	Types        []string     `json:"types"`
	Values       [][]any      `json:"values"`
	RowsAffected json.Number  `json:"rows_affected"`
	LastInsertID *json.Number `json:"last_insert_id"`
	Time         float64      `json:"time"`
	Error        string       `json:"error"`
}

type rqliteResponse struct {
	Results []rqliteResult `json:"results"`
	Error   string         `json:"error"`
}

func (r *Rqlite) Query(ctx context.Context, stmt string) (*ResultSet, error) {
	results, err := r.request(ctx, []string{stmt}, false)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func (r *Rqlite) Transaction(ctx context.Context, stmts []string) ([]*ResultSet, error) {
	if len(stmts) == 0 {
		return nil, errEmptyBatch
	}
	return r.request(ctx, stmts, true)
}

func (r *Rqlite) request(ctx context.Context, stmts []string, tx bool) ([]*ResultSet, error) {
	url := r.endpoint + "/db/request?timings"
	if tx {
		url += "&transaction"
	}
	var headers map[string]string
	if r.username != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(r.username + ":" + r.password))
		headers = map[string]string{"Authorization": "Basic " + creds}
	}
	var resp rqliteResponse
	if err := r.http.postJSON(ctx, KindRqlite, url, headers, stmts, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &QueryError{Kind: KindRqlite, Message: resp.Error}
	}
	if len(resp.Results) != len(stmts) {
		return nil, &QueryError{Kind: KindRqlite, Message: "result count does not match statement count"}
	}
	out := make([]*ResultSet, len(resp.Results))
	for i, res := range resp.Results {
		if res.Error != "" {
			return nil, &QueryError{Kind: KindRqlite, Message: res.Error}
		}
		rs := buildResultSet(res.Columns, res.Types, res.Values)
		rs.Stat.RowsAffected = jsonInt(res.RowsAffected)
		rs.Stat.RowsRead = int64(len(res.Values))
		rs.Stat.QueryDurationMs = durationMs(res.Time * 1000)
		rs.LastInsertRowID = jsonIntPtr(res.LastInsertID)
		out[i] = rs
	}
	return out, nil
}
