package main

import (
	"testing"

	"dbstudio/cmd/service/internal/config"
)

func TestProxyOrigin(t *testing.T) {
	tests := []struct {
		addr   string
		origin string
		want   string
	}{
		{":8080", "", "http://127.0.0.1:8080"},
		{"0.0.0.0:9000", "", "http://0.0.0.0:9000"},
		{":8080", "https://studio.example.com", "https://studio.example.com"},
	}
	for _, tt := range tests {
		cfg := &config.Config{}
		cfg.HTTP.Addr = tt.addr
		cfg.Proxy.Origin = tt.origin
		if got := proxyOrigin(cfg); got != tt.want {
			t.Fatalf("addr %q origin %q: expected %s, got %s", tt.addr, tt.origin, tt.want, got)
		}
	}
}

func TestRequireStore(t *testing.T) {
	if err := requireStore(nil); err == nil {
		t.Fatalf("expected error without a store")
	}
}
