package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	dbdriver "dbstudio"
)

type routerDeps struct {
	Handler *Handler
	Proxy   http.Handler
	Logger  *slog.Logger
	Timeout time.Duration
}

func newRouter(d routerDeps) http.Handler {
	h := d.Handler
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	if d.Timeout > 0 {
		r.Use(middleware.Timeout(d.Timeout))
	}

	r.Get("/health", handleHealth)
	r.Post("/connection/test", h.HandleTestConnection)
	r.Post("/query", h.HandleQuery)
	r.Post("/transaction", h.HandleTransaction)
	r.Post("/tables", h.HandleListTables)
	r.Post("/describe", h.HandleDescribeTable)
	r.Post("/sample", h.HandleSampleRows)
	r.Post("/profile", h.HandleProfileTable)

	r.Route("/connections", func(r chi.Router) {
		r.Get("/", h.HandleListConnections)
		r.Post("/", h.HandleCreateConnection)
		r.Get("/{id}", h.HandleGetConnection)
		r.Delete("/{id}", h.HandleDeleteConnection)
	})

	if d.Proxy != nil {
		r.Method(http.MethodPost, dbdriver.D1ProxyPath, d.Proxy)
	}
	return r
}
