package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	dbdriver "dbstudio"
	"dbstudio/cmd/service/internal/connections"
)

type mockResolver struct {
	cfg     dbdriver.ConnectionConfig
	err     error
	called  bool
	lastRef string
}

func (m *mockResolver) ResolveByRef(ctx context.Context, connectionRef string) (dbdriver.ConnectionConfig, error) {
	m.called = true
	m.lastRef = connectionRef
	return m.cfg, m.err
}

// mockDriver is a plain Driver without schema inspection.
type mockDriver struct {
	kind       dbdriver.Kind
	queryErr   error
	statements []string
	closed     bool
}

func (m *mockDriver) Kind() dbdriver.Kind { return m.kind }
func (m *mockDriver) Close() error {
	m.closed = true
	return nil
}
func (m *mockDriver) Query(ctx context.Context, stmt string) (*dbdriver.ResultSet, error) {
	m.statements = append(m.statements, stmt)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return &dbdriver.ResultSet{
		Headers: []dbdriver.ResultHeader{{Name: "n", DisplayName: "n"}},
		Rows:    []map[string]any{{"n": int64(1)}},
	}, nil
}
func (m *mockDriver) Transaction(ctx context.Context, stmts []string) ([]*dbdriver.ResultSet, error) {
	m.statements = append(m.statements, stmts...)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	out := make([]*dbdriver.ResultSet, len(stmts))
	for i := range stmts {
		out[i] = &dbdriver.ResultSet{Rows: []map[string]any{}}
	}
	return out, nil
}

// mockInspector adds the schema surface.
type mockInspector struct {
	mockDriver
	testErr        error
	listCalled     bool
	describeCalled bool
	lastLimit      int
}

func (m *mockInspector) TestConnection(ctx context.Context) error { return m.testErr }
func (m *mockInspector) ListTables(ctx context.Context) ([]string, error) {
	m.listCalled = true
	return []string{"t1"}, nil
}
func (m *mockInspector) DescribeTable(ctx context.Context, table string) (*dbdriver.TableSchema, error) {
	m.describeCalled = true
	if table == "ghost" {
		return nil, dbdriver.ErrTableNotFound
	}
	return &dbdriver.TableSchema{}, nil
}
func (m *mockInspector) SampleRows(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	m.lastLimit = limit
	return []map[string]any{{"id": int64(1)}}, nil
}
func (m *mockInspector) ProfileTable(ctx context.Context, table string, opts dbdriver.ProfileOptions) (*dbdriver.TableProfile, error) {
	return &dbdriver.TableProfile{Table: table}, nil
}

func newTestHandler(resolver connections.Resolver, drv dbdriver.Driver) *Handler {
	return NewHandler(resolver, func(cfg dbdriver.ConnectionConfig) (dbdriver.Driver, error) {
		return drv, nil
	}, nil, nil)
}

func doJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)
	return resp
}

func TestTablesConnectionSelection(t *testing.T) {
	tests := []struct {
		name           string
		payload        map[string]any
		resolverErr    error
		expectedStatus int
		expectCalled   bool
	}{
		{
			name:           "inline connection",
			payload:        map[string]any{"connection": map[string]any{"driver": "rqlite", "url": "http://rq"}},
			expectedStatus: http.StatusOK,
		},
		{
			name: "both ref and inline rejected",
			payload: map[string]any{
				"connectionRef": "ref",
				"connection":    map[string]any{"driver": "rqlite"},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "valid connectionRef",
			payload:        map[string]any{"connectionRef": "ref"},
			expectedStatus: http.StatusOK,
			expectCalled:   true,
		},
		{
			name:           "unknown connectionRef",
			payload:        map[string]any{"connectionRef": "missing"},
			resolverErr:    connections.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectCalled:   true,
		},
		{
			name:           "unknown field",
			payload:        map[string]any{"connectionRef": "ref", "extra": true},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mockResolver{cfg: dbdriver.ConnectionConfig{Driver: dbdriver.KindRqlite, URL: "http://rq"}, err: tt.resolverErr}
			drv := &mockInspector{mockDriver: mockDriver{kind: dbdriver.KindRqlite}}
			h := newTestHandler(resolver, drv)

			resp := doJSON(t, h.HandleListTables, "/tables", tt.payload)
			if resp.Code != tt.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", tt.expectedStatus, resp.Code, resp.Body.String())
			}
			if tt.expectCalled && !resolver.called {
				t.Fatalf("expected resolver to be called")
			}
			if tt.expectedStatus == http.StatusOK && (!drv.listCalled || !drv.closed) {
				t.Fatalf("expected tables to be listed and the driver closed")
			}
		})
	}
}

func TestResolverNotConfigured(t *testing.T) {
	h := NewHandler(nil, func(cfg dbdriver.ConnectionConfig) (dbdriver.Driver, error) {
		t.Fatalf("factory must not be called")
		return nil, nil
	}, nil, nil)
	resp := doJSON(t, h.HandleQuery, "/query", map[string]any{"connectionRef": "ref", "statement": "SELECT 1"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestDescribeRequiresTable(t *testing.T) {
	drv := &mockInspector{}
	h := newTestHandler(&mockResolver{}, drv)
	resp := doJSON(t, h.HandleDescribeTable, "/describe", map[string]any{"connectionRef": "ref"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if drv.describeCalled {
		t.Fatalf("describe must not run without a table")
	}
}

func TestDescribeMissingTable(t *testing.T) {
	h := newTestHandler(&mockResolver{}, &mockInspector{})
	resp := doJSON(t, h.HandleDescribeTable, "/describe", map[string]any{"connectionRef": "ref", "table": "ghost"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSampleRowsPassesLimit(t *testing.T) {
	drv := &mockInspector{}
	h := newTestHandler(&mockResolver{}, drv)
	resp := doJSON(t, h.HandleSampleRows, "/sample", map[string]any{"connectionRef": "ref", "table": "users", "limit": 7})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if drv.lastLimit != 7 {
		t.Fatalf("unexpected limit: %d", drv.lastLimit)
	}
	var body struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Rows) != 1 {
		t.Fatalf("unexpected rows: %#v", body.Rows)
	}
}

func TestSchemaEndpointsRejectAnalyticsDriver(t *testing.T) {
	drv := &mockDriver{kind: dbdriver.KindCloudflareWAE}
	h := newTestHandler(&mockResolver{}, drv)
	withTable := map[string]any{"connectionRef": "ref", "table": "events"}
	cases := []struct {
		path    string
		handler http.HandlerFunc
		payload map[string]any
	}{
		{"/tables", h.HandleListTables, map[string]any{"connectionRef": "ref"}},
		{"/describe", h.HandleDescribeTable, withTable},
		{"/sample", h.HandleSampleRows, withTable},
		{"/profile", h.HandleProfileTable, withTable},
	}
	for _, tc := range cases {
		drv.closed = false
		resp := doJSON(t, tc.handler, tc.path, tc.payload)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.path, resp.Code)
		}
		if !drv.closed {
			t.Fatalf("%s: expected driver to be closed", tc.path)
		}
	}
}

func TestQueryAndTransaction(t *testing.T) {
	drv := &mockDriver{kind: dbdriver.KindValtown}
	h := newTestHandler(&mockResolver{}, drv)

	resp := doJSON(t, h.HandleQuery, "/query", map[string]any{"connectionRef": "ref", "statement": "SELECT 1 AS n"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var rs dbdriver.ResultSet
	if err := json.Unmarshal(resp.Body.Bytes(), &rs); err != nil {
		t.Fatalf("decode result set: %v", err)
	}
	if len(rs.Headers) != 1 || rs.Headers[0].Name != "n" {
		t.Fatalf("unexpected result set: %#v", rs)
	}

	resp = doJSON(t, h.HandleTransaction, "/transaction", map[string]any{"connectionRef": "ref", "statements": []string{"INSERT INTO t VALUES (1)", "SELECT 1"}})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Results []dbdriver.ResultSet `json:"results"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if len(body.Results) != 2 {
		t.Fatalf("unexpected results: %d", len(body.Results))
	}

	for _, payload := range []map[string]any{
		{"connectionRef": "ref"},
		{"connectionRef": "ref", "statements": []string{"SELECT 1", " "}},
	} {
		if resp := doJSON(t, h.HandleTransaction, "/transaction", payload); resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", payload, resp.Code)
		}
	}
}

func TestFailureStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"config", &dbdriver.ConfigError{Kind: dbdriver.KindTurso, Message: "Turso URL and token are required"}, http.StatusBadRequest},
		{"unsupported", errors.Join(errors.New("tx"), dbdriver.ErrUnsupported), http.StatusBadRequest},
		{"identifier", dbdriver.ErrInvalidIdentifier, http.StatusBadRequest},
		{"not found", connections.ErrNotFound, http.StatusNotFound},
		{"conflict", connections.ErrConflict, http.StatusConflict},
		{"upstream", &dbdriver.QueryError{Kind: dbdriver.KindRqlite, Status: 500, Message: "boom"}, http.StatusBadGateway},
		{"other", errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&mockResolver{}, &mockDriver{queryErr: tt.err})
			resp := doJSON(t, h.HandleQuery, "/query", map[string]any{"connectionRef": "ref", "statement": "SELECT 1"})
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
			if tt.status == http.StatusInternalServerError && !bytes.Contains(resp.Body.Bytes(), []byte("internal error")) {
				t.Fatalf("internal errors must not leak details: %s", resp.Body.String())
			}
		})
	}
}

func TestConfigErrorFromFactory(t *testing.T) {
	h := NewHandler(&mockResolver{}, func(cfg dbdriver.ConnectionConfig) (dbdriver.Driver, error) {
		return dbdriver.NewDriver(cfg)
	}, nil, nil)
	resp := doJSON(t, h.HandleQuery, "/query", map[string]any{"connection": map[string]any{"driver": "valtown"}, "statement": "SELECT 1"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Error != "Valtown token is required" {
		t.Fatalf("unexpected error message: %q", body.Error)
	}
}

func TestTestConnection(t *testing.T) {
	t.Run("inspector ok", func(t *testing.T) {
		h := newTestHandler(&mockResolver{}, &mockInspector{mockDriver: mockDriver{kind: dbdriver.KindTurso}})
		resp := doJSON(t, h.HandleTestConnection, "/connection/test", map[string]any{"connectionRef": "ref"})
		if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"ok":true`)) {
			t.Fatalf("unexpected response: %d %s", resp.Code, resp.Body.String())
		}
	})
	t.Run("inspector failure", func(t *testing.T) {
		drv := &mockInspector{testErr: errors.New("unreachable")}
		h := newTestHandler(&mockResolver{}, drv)
		resp := doJSON(t, h.HandleTestConnection, "/connection/test", map[string]any{"connectionRef": "ref"})
		if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"ok":false`)) {
			t.Fatalf("unexpected response: %d %s", resp.Code, resp.Body.String())
		}
	})
	t.Run("analytics driver", func(t *testing.T) {
		drv := &mockDriver{kind: dbdriver.KindCloudflareWAE}
		h := newTestHandler(&mockResolver{}, drv)
		resp := doJSON(t, h.HandleTestConnection, "/connection/test", map[string]any{"connectionRef": "ref"})
		if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"ok":true`)) {
			t.Fatalf("unexpected response: %d %s", resp.Code, resp.Body.String())
		}
		if len(drv.statements) != 1 || drv.statements[0] != "SHOW TABLES" {
			t.Fatalf("unexpected ping statements: %#v", drv.statements)
		}
	})
}
