package dbdriver

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	D1ProxyPath        = "/proxy/d1"
	DefaultProxyOrigin = "http://127.0.0.1:8080"
	defaultHTTPTimeout = 30 * time.Second
)

type options struct {
	httpClient  *http.Client
	proxyOrigin string
	userAgent   string
}

type Option func(*options)

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithProxyOrigin sets the origin D1ProxyPath is resolved against.
func WithProxyOrigin(origin string) Option {
	return func(o *options) {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			o.proxyOrigin = strings.TrimRight(trimmed, "/")
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

func (o *options) transport() *transport {
	return &transport{client: o.httpClient, userAgent: o.userAgent}
}

// NewDriver picks the adapter for cfg.Driver and builds it. Missing required
// fields yield a *ConfigError and no adapter. Nothing is dialed here; network
// traffic starts with the first query.
func NewDriver(cfg ConnectionConfig, opts ...Option) (Driver, error) {
	o := options{
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		proxyOrigin: DefaultProxyOrigin,
	}
	for _, opt := range opts {
		opt(&o)
	}
	kind, _ := ParseKind(string(cfg.Driver))
	entry := kindTable[kind]
	if missing := missingFields(cfg, entry.Required); len(missing) > 0 {
		return nil, &ConfigError{Kind: kind, Missing: missing, Message: entry.message}
	}
	raw := entry.build(cfg, &o)
	if capabilities(kind).UniformSQL {
		return NewSQLiteDriver(kind, raw), nil
	}
	d, ok := raw.(Driver)
	if !ok {
		return nil, fmt.Errorf("%s client does not implement Driver", kind)
	}
	return d, nil
}
