package dbdriver

import (
	"context"
	"encoding/json"
	"strings"
)

type Starbase struct {
	endpoint string
	token    string
	http     *transport
}

func NewStarbase(url, token string, t *transport) *Starbase {
	return &Starbase{
		endpoint: strings.TrimRight(strings.TrimSpace(url), "/") + "/query/raw",
		token:    token,
		http:     t,
	}
}

type starbaseStatement struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

type starbaseResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Meta    struct {
		RowsRead    json.Number `json:"rows_read"`
		RowsWritten json.Number `json:"rows_written"`
	} `json:"meta"`
}

func (r starbaseResult) resultSet() *ResultSet {
	rs := buildResultSet(r.Columns, nil, r.Rows)
	rs.Stat.RowsRead = jsonInt(r.Meta.RowsRead)
	rs.Stat.RowsWritten = jsonInt(r.Meta.RowsWritten)
	rs.Stat.RowsAffected = rs.Stat.RowsWritten
	return rs
}

func (s *Starbase) Query(ctx context.Context, stmt string) (*ResultSet, error) {
	var resp struct {
		Result starbaseResult `json:"result"`
	}
	body := starbaseStatement{SQL: stmt, Params: []any{}}
	if err := s.http.postJSON(ctx, KindStarbase, s.endpoint, bearer(s.token), body, &resp); err != nil {
		return nil, err
	}
	return resp.Result.resultSet(), nil
}

func (s *Starbase) Transaction(ctx context.Context, stmts []string) ([]*ResultSet, error) {
	if len(stmts) == 0 {
		return nil, errEmptyBatch
	}
	batch := make([]starbaseStatement, len(stmts))
	for i, stmt := range stmts {
		batch[i] = starbaseStatement{SQL: stmt, Params: []any{}}
	}
	var resp struct {
		Result []starbaseResult `json:"result"`
	}
	if err := s.http.postJSON(ctx, KindStarbase, s.endpoint, bearer(s.token), map[string]any{"transaction": batch}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) != len(stmts) {
		return nil, &QueryError{Kind: KindStarbase, Message: "result count does not match statement count"}
	}
	out := make([]*ResultSet, len(resp.Result))
	for i, r := range resp.Result {
		out[i] = r.resultSet()
	}
	return out, nil
}
