package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	dbdriver "dbstudio"
	"dbstudio/cmd/service/internal/connections"
)

type DriverFactory func(cfg dbdriver.ConnectionConfig) (dbdriver.Driver, error)

type Handler struct {
	Resolver      connections.Resolver
	DriverFactory DriverFactory
	Store         ConnectionStore
	Events        EventPublisher
	Logger        *slog.Logger
}

func NewHandler(resolver connections.Resolver, factory DriverFactory, store ConnectionStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Resolver: resolver, DriverFactory: factory, Store: store, Logger: logger}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) HandleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req baseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := h.resolveConnection(r.Context(), req.ConnectionRef, req.Connection)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	drv, err := h.DriverFactory(cfg)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	defer drv.Close()
	if err := ping(r.Context(), drv); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "driver": drv.Kind()})
}

func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Statement) == "" {
		writeError(w, http.StatusBadRequest, "statement is required")
		return
	}
	drv, ok := h.openDriver(w, r, req.ConnectionRef, req.Connection)
	if !ok {
		return
	}
	defer drv.Close()
	rs, err := drv.Query(r.Context(), req.Statement)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (h *Handler) HandleTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Statements) == 0 {
		writeError(w, http.StatusBadRequest, "statements are required")
		return
	}
	for i, stmt := range req.Statements {
		if strings.TrimSpace(stmt) == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("statement %d is empty", i+1))
			return
		}
	}
	drv, ok := h.openDriver(w, r, req.ConnectionRef, req.Connection)
	if !ok {
		return
	}
	defer drv.Close()
	results, err := drv.Transaction(r.Context(), req.Statements)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) HandleListTables(w http.ResponseWriter, r *http.Request) {
	var req baseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	drv, in, ok := h.openInspector(w, r, req.ConnectionRef, req.Connection)
	if !ok {
		return
	}
	defer drv.Close()
	tables, err := in.ListTables(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (h *Handler) HandleDescribeTable(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Table) == "" {
		writeError(w, http.StatusBadRequest, "table is required")
		return
	}
	drv, in, ok := h.openInspector(w, r, req.ConnectionRef, req.Connection)
	if !ok {
		return
	}
	defer drv.Close()
	schema, err := in.DescribeTable(r.Context(), req.Table)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (h *Handler) HandleSampleRows(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Table) == "" {
		writeError(w, http.StatusBadRequest, "table is required")
		return
	}
	drv, in, ok := h.openInspector(w, r, req.ConnectionRef, req.Connection)
	if !ok {
		return
	}
	defer drv.Close()
	rows, err := in.SampleRows(r.Context(), req.Table, req.Limit)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) HandleProfileTable(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Table) == "" {
		writeError(w, http.StatusBadRequest, "table is required")
		return
	}
	drv, in, ok := h.openInspector(w, r, req.ConnectionRef, req.Connection)
	if !ok {
		return
	}
	defer drv.Close()
	profile, err := in.ProfileTable(r.Context(), req.Table, req.Options)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// openDriver resolves the request's connection and builds its driver. On
// failure the response has already been written.
func (h *Handler) openDriver(w http.ResponseWriter, r *http.Request, ref string, inline dbdriver.ConnectionConfig) (dbdriver.Driver, bool) {
	cfg, err := h.resolveConnection(r.Context(), ref, inline)
	if err != nil {
		h.writeFailure(w, err)
		return nil, false
	}
	drv, err := h.DriverFactory(cfg)
	if err != nil {
		h.writeFailure(w, err)
		return nil, false
	}
	return drv, true
}

func (h *Handler) openInspector(w http.ResponseWriter, r *http.Request, ref string, inline dbdriver.ConnectionConfig) (dbdriver.Driver, dbdriver.Inspector, bool) {
	drv, ok := h.openDriver(w, r, ref, inline)
	if !ok {
		return nil, nil, false
	}
	in, ok := drv.(dbdriver.Inspector)
	if !ok {
		_ = drv.Close()
		h.writeFailure(w, fmt.Errorf("%s does not support schema inspection: %w", drv.Kind(), dbdriver.ErrUnsupported))
		return nil, nil, false
	}
	return drv, in, true
}

// resolveConnection accepts exactly one of a saved connection reference or an
// inline configuration.
func (h *Handler) resolveConnection(ctx context.Context, ref string, inline dbdriver.ConnectionConfig) (dbdriver.ConnectionConfig, error) {
	if strings.TrimSpace(ref) == "" {
		return inline, nil
	}
	if hasInlineConnection(inline) {
		return dbdriver.ConnectionConfig{}, fmt.Errorf("use either connectionRef or connection, not both: %w", connections.ErrInvalidInput)
	}
	if h.Resolver == nil {
		return dbdriver.ConnectionConfig{}, connections.ErrNotConfigured
	}
	return h.Resolver.ResolveByRef(ctx, ref)
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	var cfgErr *dbdriver.ConfigError
	var queryErr *dbdriver.QueryError
	var urlErr *url.Error
	switch {
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusBadRequest, cfgErr.Error())
	case errors.Is(err, dbdriver.ErrUnsupported),
		errors.Is(err, dbdriver.ErrInvalidIdentifier),
		errors.Is(err, connections.ErrInvalidInput),
		errors.Is(err, connections.ErrNotConfigured):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, connections.ErrNotFound), errors.Is(err, dbdriver.ErrTableNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, connections.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &queryErr), errors.As(err, &urlErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.Logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ping checks connectivity. Drivers without schema inspection get a cheap
// metadata statement instead.
func ping(ctx context.Context, drv dbdriver.Driver) error {
	if in, ok := drv.(dbdriver.Inspector); ok {
		return in.TestConnection(ctx)
	}
	if _, err := drv.Query(ctx, "SHOW TABLES"); err != nil {
		return fmt.Errorf("ping %s: %w", drv.Kind(), err)
	}
	return nil
}

func hasInlineConnection(cfg dbdriver.ConnectionConfig) bool {
	return strings.TrimSpace(string(cfg.Driver)) != "" || strings.TrimSpace(cfg.URL) != "" || strings.TrimSpace(cfg.Token) != "" || strings.TrimSpace(cfg.Username) != "" || strings.TrimSpace(cfg.Password) != "" || strings.TrimSpace(cfg.Database) != ""
}
