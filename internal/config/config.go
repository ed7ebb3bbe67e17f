package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// FileEnvVar names the optional YAML file layered under the environment.
const FileEnvVar = "CONFIG_FILE"

// Config captures all runtime configuration.
type Config struct {
	Port               string `koanf:"port"`
	DBURL              string `koanf:"db_url"`
	JWTSecret          string `koanf:"jwt_secret"`
	SessionTTLMinutes  int    `koanf:"session_ttl_minutes"`
	PublicBaseURL      string `koanf:"public_base_url"`
	BlobDir            string `koanf:"blob_dir"`
	MaxUploadBytes     int64  `koanf:"max_upload_bytes"`
	CatalogURL         string `koanf:"catalog_url"`
	CatalogAPIKey      string `koanf:"catalog_api_key"`
	CatalogTimeoutSecs int    `koanf:"catalog_timeout_secs"`
	LogLevel           string `koanf:"log_level"`
	LogFormat          string `koanf:"log_format"`
	ReadTimeoutSecs    int    `koanf:"server_read_timeout"`
	WriteTimeoutSecs   int    `koanf:"server_write_timeout"`
	IdleTimeoutSecs    int    `koanf:"server_idle_timeout"`
	RateLimitPerMinute int    `koanf:"rate_limit_per_minute"`
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`
	DBMaxConns         int    `koanf:"db_max_conns"`
	DBMinConns         int    `koanf:"db_min_conns"`
	DBMaxIdleSecs      int    `koanf:"db_max_conn_idle_secs"`
	DBMaxLifeSecs      int    `koanf:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs  int    `koanf:"db_conn_timeout_secs"`
	DBStatementCache   int    `koanf:"db_statement_cache_capacity"`
}

// Defaults returns the configuration used when nothing overrides a key.
func Defaults() Config {
	return Config{
		Port:               "8080",
		SessionTTLMinutes:  60 * 24 * 7,
		PublicBaseURL:      "http://localhost:8080",
		MaxUploadBytes:     10 << 20,
		CatalogTimeoutSecs: 5,
		LogLevel:           "info",
		LogFormat:          "json",
		ReadTimeoutSecs:    15,
		WriteTimeoutSecs:   15,
		IdleTimeoutSecs:    60,
		RateLimitPerMinute: 300,
		CORSAllowedOrigins: "*",
		DBMaxConns:         20,
		DBMinConns:         2,
		DBMaxIdleSecs:      300,
		DBMaxLifeSecs:      3600,
		DBConnTimeoutSecs:  10,
		DBStatementCache:   256,
	}
}

// Load layers defaults, the optional YAML file named by CONFIG_FILE, and
// environment variables (DB_URL -> db_url), then validates the result.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(FileEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate applies the same bounds the server relies on.
func (c Config) Validate() error {
	if c.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	if c.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.CatalogURL != "" && c.CatalogTimeoutSecs <= 0 {
		return fmt.Errorf("CATALOG_TIMEOUT_SECS must be positive")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be non-negative")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if c.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	return nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o := strings.TrimSpace(origin); o != "" {
			out = append(out, o)
		}
	}
	return out
}
