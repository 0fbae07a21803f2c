package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	dbdriver "dbstudio"
	"dbstudio/cmd/service/internal/bus"
	"dbstudio/cmd/service/internal/connections"
)

type EventPublisher interface {
	Publish(subject string, payload any) error
}

type ConnectionStore interface {
	Create(ctx context.Context, name string, cfg dbdriver.ConnectionConfig) (*connections.SavedConnection, error)
	Get(ctx context.Context, id string) (*connections.SavedConnection, error)
	List(ctx context.Context) ([]*connections.SavedConnection, error)
	Delete(ctx context.Context, id string) error
}

func (h *Handler) HandleListConnections(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		h.writeFailure(w, connections.ErrNotConfigured)
		return
	}
	saved, err := h.Store.List(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	out := make([]connectionView, 0, len(saved))
	for _, c := range saved {
		out = append(out, viewOf(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": out})
}

func (h *Handler) HandleCreateConnection(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		h.writeFailure(w, connections.ErrNotConfigured)
		return
	}
	var req createConnectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	drv, err := h.DriverFactory(req.Connection)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	_ = drv.Close()
	saved, err := h.Store.Create(r.Context(), req.Name, req.Connection)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.publish(bus.SubjectConnectionCreated, bus.ConnectionEvent{ConnectionID: saved.ID, Name: saved.Name, Driver: string(saved.Config.Driver)})
	writeJSON(w, http.StatusCreated, viewOf(saved))
}

func (h *Handler) HandleGetConnection(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		h.writeFailure(w, connections.ErrNotConfigured)
		return
	}
	saved, err := h.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(saved))
}

func (h *Handler) HandleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		h.writeFailure(w, connections.ErrNotConfigured)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Store.Delete(r.Context(), id); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.publish(bus.SubjectConnectionDeleted, bus.ConnectionEvent{ConnectionID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publish(subject string, event bus.ConnectionEvent) {
	if h.Events == nil {
		return
	}
	if err := h.Events.Publish(subject, event); err != nil {
		h.Logger.Warn("publish event failed", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}

func viewOf(c *connections.SavedConnection) connectionView {
	return connectionView{
		ID:          c.ID,
		Name:        c.Name,
		Driver:      c.Config.Driver,
		URL:         c.Config.URL,
		Username:    c.Config.Username,
		Database:    c.Config.Database,
		HasToken:    c.Config.Token != "",
		HasPassword: c.Config.Password != "",
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
