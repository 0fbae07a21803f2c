package dbdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 64 << 10

type transport struct {
	client    *http.Client
	userAgent string
}

func (t *transport) postJSON(ctx context.Context, kind Kind, url string, headers map[string]string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", kind, err)
	}
	return t.post(ctx, kind, url, headers, "application/json", payload, out)
}

func (t *transport) post(ctx context.Context, kind Kind, url string, headers map[string]string, contentType string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", kind, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	client := t.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s request: %w", kind, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &QueryError{Kind: kind, Status: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", kind, err)
	}
	return nil
}

// errorMessage pulls a readable message out of the error bodies the
// supported services return, falling back to the raw text.
func errorMessage(raw []byte, fallback string) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if len(body.Error) > 0 {
			var s string
			if json.Unmarshal(body.Error, &s) == nil && s != "" {
				return s
			}
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
		if body.Message != "" {
			return body.Message
		}
		if len(body.Errors) > 0 && body.Errors[0].Message != "" {
			return body.Errors[0].Message
		}
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return fallback
	}
	return text
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// jsonValue turns decoder output into plain Go values: integral numbers become
// int64, other numbers float64.
func jsonValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = jsonValue(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = jsonValue(t[k])
		}
		return t
	default:
		return t
	}
}

func jsonInt(n json.Number) int64 {
	if n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return int64(f)
}

func jsonIntPtr(n *json.Number) *int64 {
	if n == nil || *n == "" {
		return nil
	}
	i := jsonInt(*n)
	return &i
}

func durationMs(ms float64) *float64 {
	return &ms
}

// buildResultSet maps positional rows onto headers. Repeated column names get
// a numeric suffix so no value is lost in the row maps.
func buildResultSet(columns []string, types []string, values [][]any) *ResultSet {
	headers := make([]ResultHeader, len(columns))
	seen := map[string]int{}
	for i, col := range columns {
		name := col
		if n := seen[col]; n > 0 {
			name = fmt.Sprintf("%s%d", col, n+1)
		}
		seen[col]++
		headers[i] = ResultHeader{Name: name, DisplayName: col}
		if i < len(types) {
			headers[i].OriginalType = types[i]
		}
	}
	rows := make([]map[string]any, 0, len(values))
	for _, vals := range values {
		row := make(map[string]any, len(headers))
		for i, h := range headers {
			if i < len(vals) {
				row[h.Name] = jsonValue(vals[i])
			} else {
				row[h.Name] = nil
			}
		}
		rows = append(rows, row)
	}
	return &ResultSet{Headers: headers, Rows: rows}
}

var errEmptyBatch = errors.New("no statements provided")
