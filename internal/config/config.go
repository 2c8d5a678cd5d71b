// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreUpstash = "upstash"
	StoreRedis   = "redis"
	StoreMemory  = "memory"
)

// Snapshot backends.
const (
	SnapshotNone   = "none"
	SnapshotMemory = "memory"
	SnapshotLocal  = "local"
	SnapshotGCS    = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Store    StoreConfig    `mapstructure:"store"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// StoreConfig selects the counter store backend.
type StoreConfig struct {
	Backend        string `mapstructure:"backend"`
	UpstashURL     string `mapstructure:"upstash_url"`
	UpstashToken   string `mapstructure:"upstash_token"`
	RedisURL       string `mapstructure:"redis_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// QuotaConfig sets the free-generation allowance.
type QuotaConfig struct {
	Limit      int64  `mapstructure:"limit"`
	WindowDays int    `mapstructure:"window_days"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// CacheConfig controls the page signal cache.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	TTLHours  int    `mapstructure:"ttl_hours"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// FetchConfig shapes outbound landing-page requests.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	AcceptLanguage string `mapstructure:"accept_language"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// LLMConfig points at the generative service.
type LLMConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Version        string `mapstructure:"version"`
	Model          string `mapstructure:"model"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ThrottleConfig configures the optional per-identity ingress limiter.
type ThrottleConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	RPS         float64 `mapstructure:"rps"`
	Burst       int     `mapstructure:"burst"`
	IdleSeconds int     `mapstructure:"idle_seconds"`
}

// SnapshotConfig selects where raw HTML of live acquisitions is kept.
type SnapshotConfig struct {
	Backend string `mapstructure:"backend"`
	Prefix  string `mapstructure:"prefix"`
	Bucket  string `mapstructure:"bucket"`
	BaseDir string `mapstructure:"base_dir"`
}

// AuditConfig controls the Postgres acquisition audit trail.
type AuditConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// legacyEnv maps keys to the environment names older deployments already export.
var legacyEnv = map[string]string{
	"store.upstash_url":   "UPSTASH_REDIS_REST_URL",
	"store.upstash_token": "UPSTASH_REDIS_REST_TOKEN",
	"llm.api_key":         "ANTHROPIC_API_KEY",
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COPYGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, legacy := range legacyEnv {
		prefixed := "COPYGATE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 90)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("store.backend", StoreUpstash)
	v.SetDefault("store.upstash_url", "")
	v.SetDefault("store.upstash_token", "")
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.timeout_seconds", 3)
	v.SetDefault("quota.limit", 10)
	v.SetDefault("quota.window_days", 30)
	v.SetDefault("quota.key_prefix", "rsa:ip:")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("cache.key_prefix", "rsa:scrape:")
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.accept_language", "en-US,en;q=0.5")
	v.SetDefault("fetch.timeout_seconds", 8)
	v.SetDefault("fetch.max_body_bytes", 5<<20)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.anthropic.com")
	v.SetDefault("llm.version", "2023-06-01")
	v.SetDefault("llm.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("throttle.enabled", false)
	v.SetDefault("throttle.rps", 2.0)
	v.SetDefault("throttle.burst", 10)
	v.SetDefault("throttle.idle_seconds", 600)
	v.SetDefault("snapshot.backend", SnapshotNone)
	v.SetDefault("snapshot.prefix", "snapshots")
	v.SetDefault("snapshot.bucket", "")
	v.SetDefault("snapshot.base_dir", "")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.dsn", "")
	v.SetDefault("audit.table", "acquisitions")
	v.SetDefault("audit.max_conns", 4)
	v.SetDefault("audit.min_conns", 0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port < 0 {
		return fmt.Errorf("server.port must be >= 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if !slices.Contains([]string{StoreUpstash, StoreRedis, StoreMemory}, c.Store.Backend) {
		return fmt.Errorf("store.backend %q must be one of upstash, redis, memory", c.Store.Backend)
	}
	if c.Store.Backend == StoreRedis && c.Store.RedisURL == "" {
		return fmt.Errorf("store.redis_url must be set when store.backend is redis")
	}
	if c.Store.TimeoutSeconds <= 0 {
		return fmt.Errorf("store.timeout_seconds must be > 0")
	}
	if c.Quota.Limit <= 0 {
		return fmt.Errorf("quota.limit must be > 0")
	}
	if c.Quota.WindowDays <= 0 {
		return fmt.Errorf("quota.window_days must be > 0")
	}
	if c.Cache.Enabled && c.Cache.TTLHours <= 0 {
		return fmt.Errorf("cache.ttl_hours must be > 0 when the cache is enabled")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be > 0")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("llm.timeout_seconds must be > 0")
	}
	if c.Throttle.Enabled && (c.Throttle.RPS <= 0 || c.Throttle.Burst <= 0) {
		return fmt.Errorf("throttle.rps and throttle.burst must be > 0 when the throttle is enabled")
	}
	switch c.Snapshot.Backend {
	case SnapshotNone, SnapshotMemory:
	case SnapshotLocal:
		if c.Snapshot.BaseDir == "" {
			return fmt.Errorf("snapshot.base_dir must be set when snapshot.backend is local")
		}
	case SnapshotGCS:
		if c.Snapshot.Bucket == "" {
			return fmt.Errorf("snapshot.bucket must be set when snapshot.backend is gcs")
		}
	default:
		return fmt.Errorf("snapshot.backend %q must be one of none, memory, local, gcs", c.Snapshot.Backend)
	}
	if c.Audit.Enabled && c.Audit.DSN == "" {
		return fmt.Errorf("audit.dsn must be set when audit is enabled")
	}
	return nil
}

// RequestTimeout is the outer bound on one HTTP request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// StoreTimeout bounds each counter store call.
func (c Config) StoreTimeout() time.Duration {
	return time.Duration(c.Store.TimeoutSeconds) * time.Second
}

// QuotaWindow is the lifetime of a usage record.
func (c Config) QuotaWindow() time.Duration {
	return time.Duration(c.Quota.WindowDays) * 24 * time.Hour
}

// CacheTTL is the lifetime of a cached page.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// FetchTimeout bounds one landing-page fetch.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// LLMTimeout bounds one generative call.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// ThrottleIdle is how long an identity's limiter survives without traffic.
func (c Config) ThrottleIdle() time.Duration {
	return time.Duration(c.Throttle.IdleSeconds) * time.Second
}
