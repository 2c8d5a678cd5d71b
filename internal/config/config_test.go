package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 30
auth:
  enabled: true
  api_key: secret
logging:
  development: false
  level: debug
store:
  backend: redis
  redis_url: redis://localhost:6379/0
quota:
  limit: 3
  window_days: 7
cache:
  ttl_hours: 1
fetch:
  timeout_seconds: 4
llm:
  model: claude-test
  max_tokens: 512
throttle:
  enabled: true
  rps: 1.5
  burst: 3
snapshot:
  backend: gcs
  bucket: snapshots-bucket
audit:
  enabled: true
  dsn: postgres://localhost/copygate
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "secret", cfg.Auth.APIKey)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.Equal(t, int64(3), cfg.Quota.Limit)
	assert.Equal(t, 7*24*time.Hour, cfg.QuotaWindow())
	assert.Equal(t, "rsa:ip:", cfg.Quota.KeyPrefix)
	assert.Equal(t, time.Hour, cfg.CacheTTL())
	assert.Equal(t, 4*time.Second, cfg.FetchTimeout())
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, 512, cfg.LLM.MaxTokens)
	assert.InDelta(t, 1.5, cfg.Throttle.RPS, 0.0001)
	assert.Equal(t, SnapshotGCS, cfg.Snapshot.Backend)
	assert.Equal(t, "snapshots-bucket", cfg.Snapshot.Bucket)
	assert.Equal(t, "acquisitions", cfg.Audit.Table)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StoreUpstash, cfg.Store.Backend)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout())
	assert.Equal(t, int64(10), cfg.Quota.Limit)
	assert.Equal(t, 30*24*time.Hour, cfg.QuotaWindow())
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL())
	assert.Equal(t, "rsa:scrape:", cfg.Cache.KeyPrefix)
	assert.Equal(t, 8*time.Second, cfg.FetchTimeout())
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.LLM.Model)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout())
	assert.False(t, cfg.Throttle.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.ThrottleIdle())
	assert.Equal(t, SnapshotNone, cfg.Snapshot.Backend)
	assert.False(t, cfg.Audit.Enabled)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("COPYGATE_SERVER_PORT", "7070")
	t.Setenv("COPYGATE_QUOTA_LIMIT", "25")
	t.Setenv("UPSTASH_REDIS_REST_URL", "https://example.upstash.io")
	t.Setenv("UPSTASH_REDIS_REST_TOKEN", "legacy-token")
	t.Setenv("ANTHROPIC_API_KEY", "sk-legacy")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, int64(25), cfg.Quota.Limit)
	assert.Equal(t, "https://example.upstash.io", cfg.Store.UpstashURL)
	assert.Equal(t, "legacy-token", cfg.Store.UpstashToken)
	assert.Equal(t, "sk-legacy", cfg.LLM.APIKey)
}

func TestLoadPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("COPYGATE_LLM_API_KEY", "sk-new")
	t.Setenv("ANTHROPIC_API_KEY", "sk-legacy")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-new", cfg.LLM.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:   ServerConfig{Port: 8080, RequestTimeoutSeconds: 60},
		Store:    StoreConfig{Backend: StoreUpstash, TimeoutSeconds: 3},
		Quota:    QuotaConfig{Limit: 10, WindowDays: 30},
		Cache:    CacheConfig{Enabled: true, TTLHours: 24},
		Fetch:    FetchConfig{TimeoutSeconds: 8},
		LLM:      LLMConfig{MaxTokens: 2000, TimeoutSeconds: 60},
		Snapshot: SnapshotConfig{Backend: SnapshotNone},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = -1 }, want: "server.port"},
		{name: "invalid request timeout", mutate: func(c *Config) { c.Server.RequestTimeoutSeconds = 0 }, want: "server.request_timeout_seconds"},
		{name: "auth missing api key", mutate: func(c *Config) { c.Auth.Enabled = true }, want: "auth.api_key"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Backend = "etcd" }, want: "store.backend"},
		{name: "redis without url", mutate: func(c *Config) { c.Store.Backend = StoreRedis }, want: "store.redis_url"},
		{name: "store timeout", mutate: func(c *Config) { c.Store.TimeoutSeconds = 0 }, want: "store.timeout_seconds"},
		{name: "quota limit", mutate: func(c *Config) { c.Quota.Limit = 0 }, want: "quota.limit"},
		{name: "quota window", mutate: func(c *Config) { c.Quota.WindowDays = 0 }, want: "quota.window_days"},
		{name: "cache ttl", mutate: func(c *Config) { c.Cache.TTLHours = 0 }, want: "cache.ttl_hours"},
		{name: "fetch timeout", mutate: func(c *Config) { c.Fetch.TimeoutSeconds = 0 }, want: "fetch.timeout_seconds"},
		{name: "llm max tokens", mutate: func(c *Config) { c.LLM.MaxTokens = 0 }, want: "llm.max_tokens"},
		{name: "llm timeout", mutate: func(c *Config) { c.LLM.TimeoutSeconds = 0 }, want: "llm.timeout_seconds"},
		{name: "throttle rate", mutate: func(c *Config) { c.Throttle.Enabled = true }, want: "throttle.rps"},
		{name: "local snapshot dir", mutate: func(c *Config) { c.Snapshot.Backend = SnapshotLocal }, want: "snapshot.base_dir"},
		{name: "gcs snapshot bucket", mutate: func(c *Config) { c.Snapshot.Backend = SnapshotGCS }, want: "snapshot.bucket"},
		{name: "unknown snapshot", mutate: func(c *Config) { c.Snapshot.Backend = "s3" }, want: "snapshot.backend"},
		{name: "audit dsn", mutate: func(c *Config) { c.Audit.Enabled = true }, want: "audit.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCacheTTLIgnoredWhenDisabled(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Server:   ServerConfig{Port: 1, RequestTimeoutSeconds: 1},
		Store:    StoreConfig{Backend: StoreMemory, TimeoutSeconds: 1},
		Quota:    QuotaConfig{Limit: 1, WindowDays: 1},
		Cache:    CacheConfig{Enabled: false},
		Fetch:    FetchConfig{TimeoutSeconds: 1},
		LLM:      LLMConfig{MaxTokens: 1, TimeoutSeconds: 1},
		Snapshot: SnapshotConfig{Backend: SnapshotMemory},
	}
	require.NoError(t, cfg.Validate())
}
