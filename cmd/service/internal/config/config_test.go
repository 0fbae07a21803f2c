package config

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.HTTP.Timeout != 30*time.Second {
		t.Fatalf("unexpected http config: %#v", cfg.HTTP)
	}
	if cfg.DB.Driver != "sqlite3" || cfg.DB.DSN == "" {
		t.Fatalf("unexpected db config: %#v", cfg.DB)
	}
	if cfg.Proxy.CloudflareAPI != "https://api.cloudflare.com/client/v4" || cfg.Proxy.RPS != 10 || cfg.Proxy.Burst != 20 {
		t.Fatalf("unexpected proxy config: %#v", cfg.Proxy)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Fatalf("unexpected log config: %#v", cfg.Log)
	}
	if cfg.EncryptionKey != nil {
		t.Fatalf("expected no encryption key by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	key := strings.Repeat("k", 32)
	t.Setenv("DBSTUDIO_HTTP_ADDR", ":9090")
	t.Setenv("DBSTUDIO_DB_DRIVER", "postgres")
	t.Setenv("DBSTUDIO_DB_DSN", "postgres://localhost/studio")
	t.Setenv("DBSTUDIO_PROXY_CLOUDFLARE_API", "http://cf.local/")
	t.Setenv("DBSTUDIO_LOG_FORMAT", "TEXT")
	t.Setenv("DBSTUDIO_BUS_NATS_URL", "nats://localhost:4222")
	t.Setenv("DBSTUDIO_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte(key)))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.DB.Driver != "postgres" || cfg.DB.DSN != "postgres://localhost/studio" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
	if cfg.Proxy.CloudflareAPI != "http://cf.local" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Proxy.CloudflareAPI)
	}
	if cfg.Log.Format != "text" {
		t.Fatalf("unexpected log format: %q", cfg.Log.Format)
	}
	if cfg.Bus.NatsURL != "nats://localhost:4222" {
		t.Fatalf("unexpected nats url: %q", cfg.Bus.NatsURL)
	}
	if string(cfg.EncryptionKey) != key {
		t.Fatalf("unexpected encryption key")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"driver", "db.driver", "oracle"},
		{"timeout", "http.timeout", "soon"},
		{"log format", "log.format", "xml"},
		{"rps", "proxy.rps", 0},
		{"encryption key", "encryption_key", "too-short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			if _, err := fromViper(v); err == nil {
				t.Fatalf("expected error for %s=%v", tt.key, tt.val)
			}
		})
	}
}

func TestDecodeKeyHex(t *testing.T) {
	raw := []byte(strings.Repeat("a", 32))
	key, err := decodeKey(hex.EncodeToString(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(key) != string(raw) {
		t.Fatalf("unexpected key")
	}
}
