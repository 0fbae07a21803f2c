package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// D1Proxy forwards D1 queries from the driver to the Cloudflare REST API.
// The account, database and token travel as request headers.
type D1Proxy struct {
	apiBase string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewD1Proxy(apiBase string, client *http.Client, rps float64, burst int, logger *slog.Logger) *D1Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &D1Proxy{
		apiBase: strings.TrimRight(apiBase, "/"),
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

func (p *D1Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !p.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	account := strings.TrimSpace(r.Header.Get("x-account-id"))
	database := strings.TrimSpace(r.Header.Get("x-database-id"))
	if auth == "" || strings.TrimSpace(strings.TrimPrefix(auth, "Bearer")) == "" {
		writeError(w, http.StatusBadRequest, "authorization header is required")
		return
	}
	if account == "" || database == "" {
		writeError(w, http.StatusBadRequest, "x-account-id and x-database-id headers are required")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	target := fmt.Sprintf("%s/accounts/%s/d1/database/%s/raw", p.apiBase, url.PathEscape(account), url.PathEscape(database))
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("d1 proxy upstream failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "d1 upstream unavailable")
		return
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.Warn("d1 proxy copy failed", slog.String("error", err.Error()))
	}
}
