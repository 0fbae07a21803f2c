package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP struct {
		Addr    string
		Timeout time.Duration
	}
	DB struct {
		Driver string
		DSN    string
	}
	Proxy struct {
		Origin        string
		CloudflareAPI string
		RPS           float64
		Burst         int
	}
	Bus struct {
		NatsURL string
	}
	Log struct {
		Level  string
		Format string
	}
	EncryptionKey []byte
	ImportFile    string
}

// Load reads config from environment (DBSTUDIO_ prefix) and optional dbstudio.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DBSTUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("dbstudio")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "file:dbstudio.db")
	v.SetDefault("proxy.origin", "")
	v.SetDefault("proxy.cloudflare_api", "https://api.cloudflare.com/client/v4")
	v.SetDefault("proxy.rps", 10.0)
	v.SetDefault("proxy.burst", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.Proxy.Origin = v.GetString("proxy.origin")
	cfg.Proxy.CloudflareAPI = strings.TrimRight(v.GetString("proxy.cloudflare_api"), "/")
	cfg.Proxy.RPS = v.GetFloat64("proxy.rps")
	cfg.Proxy.Burst = v.GetInt("proxy.burst")
	cfg.Log.Level = strings.ToLower(v.GetString("log.level"))
	cfg.Log.Format = strings.ToLower(v.GetString("log.format"))
	cfg.ImportFile = v.GetString("connections.import_file")
	cfg.Bus.NatsURL = v.GetString("bus.nats_url")

	timeout, err := time.ParseDuration(v.GetString("http.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid DBSTUDIO_HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTP.Timeout = timeout

	switch cfg.DB.Driver {
	case "sqlite3", "mysql", "postgres", "pgx", "sqlserver":
	default:
		return nil, fmt.Errorf("DBSTUDIO_DB_DRIVER must be sqlite3, mysql, postgres, pgx or sqlserver, got %q", cfg.DB.Driver)
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("DBSTUDIO_DB_DSN is required")
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return nil, fmt.Errorf("DBSTUDIO_LOG_FORMAT must be json or text, got %q", cfg.Log.Format)
	}
	if cfg.Proxy.RPS <= 0 || cfg.Proxy.Burst <= 0 {
		return nil, fmt.Errorf("DBSTUDIO_PROXY_RPS and DBSTUDIO_PROXY_BURST must be positive")
	}

	if raw := strings.TrimSpace(v.GetString("encryption_key")); raw != "" {
		key, err := decodeKey(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid DBSTUDIO_ENCRYPTION_KEY: %w", err)
		}
		cfg.EncryptionKey = key
	}

	return cfg, nil
}

// decodeKey accepts a 32-byte key as base64 or hex.
func decodeKey(raw string) ([]byte, error) {
	if key, err := base64.StdEncoding.DecodeString(raw); err == nil && len(key) == 32 {
		return key, nil
	}
	if key, err := hex.DecodeString(raw); err == nil && len(key) == 32 {
		return key, nil
	}
	return nil, fmt.Errorf("key must be 32 bytes encoded as base64 or hex")
}
