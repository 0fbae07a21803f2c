package dbdriver

import (
	"context"
	"encoding/json"
)

const valtownAPI = "https://api.val.town"

type Valtown struct {
	baseURL string
	token   string
	http    *transport
}

func NewValtown(token string, t *transport) *Valtown {
	return &Valtown{baseURL: valtownAPI, token: token, http: t}
}

type valtownResult struct {
	Columns         []string     `json:"columns"`
	ColumnTypes     []string     `json:"columnTypes"`
	Rows            [][]any      `json:"rows"`
	RowsAffected    json.Number  `json:"rowsAffected"`
	LastInsertRowID *json.Number `json:"lastInsertRowid"`
}

func (r valtownResult) resultSet() *ResultSet {
	rs := buildResultSet(r.Columns, r.ColumnTypes, r.Rows)
	rs.Stat.RowsAffected = jsonInt(r.RowsAffected)
	rs.Stat.RowsRead = int64(len(r.Rows))
	rs.LastInsertRowID = jsonIntPtr(r.LastInsertRowID)
	return rs
}

func (v *Valtown) Query(ctx context.Context, stmt string) (*ResultSet, error) {
	var res valtownResult
	body := map[string]any{"statement": stmt}
	if err := v.http.postJSON(ctx, KindValtown, v.baseURL+"/v1/sqlite/execute", bearer(v.token), body, &res); err != nil {
		return nil, err
	}
	return res.resultSet(), nil
}

func (v *Valtown) Transaction(ctx context.Context, stmts []string) ([]*ResultSet, error) {
	if len(stmts) == 0 {
		return nil, errEmptyBatch
	}
	var res []valtownResult
	body := map[string]any{"statements": stmts, "mode": "write"}
	if err := v.http.postJSON(ctx, KindValtown, v.baseURL+"/v1/sqlite/batch", bearer(v.token), body, &res); err != nil {
		return nil, err
	}
	if len(res) != len(stmts) {
		return nil, &QueryError{Kind: KindValtown, Message: "result count does not match statement count"}
	}
	out := make([]*ResultSet, len(res))
	for i, r := range res {
		out[i] = r.resultSet()
	}
	return out, nil
}
