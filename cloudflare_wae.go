package dbdriver

import (
	"context"
	"fmt"
	"net/url"
)

const cloudflareAPI = "https://api.cloudflare.com/client/v4"

// CloudflareWAE queries Workers Analytics Engine through its SQL API. The
// backend is an analytics store, so it is handed out as-is rather than behind
// SQLiteDriver.
type CloudflareWAE struct {
	baseURL   string
	accountID string
	token     string
	http      *transport
}

func NewCloudflareWAE(accountID, token string, t *transport) *CloudflareWAE {
	return &CloudflareWAE{baseURL: cloudflareAPI, accountID: accountID, token: token, http: t}
}

func (c *CloudflareWAE) Kind() Kind { return KindCloudflareWAE }

func (c *CloudflareWAE) Close() error { return nil }

type waeResponse struct {
	Meta []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"meta"`
	Data []map[string]any `json:"data"`
	Rows int64            `json:"rows"`
}

func (c *CloudflareWAE) Query(ctx context.Context, stmt string) (*ResultSet, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/analytics_engine/sql", c.baseURL, url.PathEscape(c.accountID))
	var resp waeResponse
	if err := c.http.post(ctx, KindCloudflareWAE, endpoint, bearer(c.token), "text/plain", []byte(stmt), &resp); err != nil {
		return nil, err
	}
	rs := &ResultSet{
		Headers: make([]ResultHeader, len(resp.Meta)),
		Rows:    make([]map[string]any, 0, len(resp.Data)),
	}
	for i, m := range resp.Meta {
		rs.Headers[i] = ResultHeader{Name: m.Name, DisplayName: m.Name, OriginalType: m.Type}
	}
	for _, row := range resp.Data {
		rs.Rows = append(rs.Rows, jsonValue(row).(map[string]any))
	}
	rs.Stat.RowsRead = resp.Rows
	return rs, nil
}

func (c *CloudflareWAE) Transaction(ctx context.Context, stmts []string) ([]*ResultSet, error) {
	return nil, fmt.Errorf("cloudflare-wae transaction: %w", ErrUnsupported)
}

var _ Driver = (*CloudflareWAE)(nil)
