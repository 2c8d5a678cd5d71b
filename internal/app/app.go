// Package app initializes and holds long-lived application services, acting as a dependency
// injection container for the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/copygate/internal/acquire"
	"github.com/JakeFAU/copygate/internal/adcopy"
	"github.com/JakeFAU/copygate/internal/api"
	"github.com/JakeFAU/copygate/internal/clock/system"
	"github.com/JakeFAU/copygate/internal/config"
	collyfetcher "github.com/JakeFAU/copygate/internal/fetcher/colly"
	"github.com/JakeFAU/copygate/internal/generate"
	"github.com/JakeFAU/copygate/internal/hash/sha256"
	"github.com/JakeFAU/copygate/internal/id/uuid"
	"github.com/JakeFAU/copygate/internal/kv"
	kvmemory "github.com/JakeFAU/copygate/internal/kv/memory"
	kvredis "github.com/JakeFAU/copygate/internal/kv/redis"
	"github.com/JakeFAU/copygate/internal/kv/upstash"
	"github.com/JakeFAU/copygate/internal/language"
	"github.com/JakeFAU/copygate/internal/llm"
	"github.com/JakeFAU/copygate/internal/pagecache"
	"github.com/JakeFAU/copygate/internal/policy/ratelimit"
	"github.com/JakeFAU/copygate/internal/quota"
	"github.com/JakeFAU/copygate/internal/signals"
	"github.com/JakeFAU/copygate/internal/storage/gcs"
	"github.com/JakeFAU/copygate/internal/storage/local"
	memstorage "github.com/JakeFAU/copygate/internal/storage/memory"
	"github.com/JakeFAU/copygate/internal/storage/postgres"
)

// App holds the shared, long-lived services. It is built once at startup and closed on exit.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	gate     *quota.Gate
	pipeline *acquire.Pipeline
	gateway  *generate.Gateway
	refiner  *generate.Refiner
	throttle *ratelimit.Limiter
	ready    map[string]api.Pinger
	closers  []func() error
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetGate returns the usage gate.
func (a *App) GetGate() *quota.Gate {
	return a.gate
}

// GetPipeline returns the acquisition pipeline.
func (a *App) GetPipeline() *acquire.Pipeline {
	return a.pipeline
}

// Handler builds the HTTP API over the app's services.
func (a *App) Handler() http.Handler {
	deps := api.Dependencies{
		Acquirer:  a.pipeline,
		Generator: a.gateway,
		Refiner:   a.refiner,
		Ready:     a.ready,
	}
	if a.throttle != nil {
		deps.Throttle = a.throttle
	}
	return api.NewServer(deps, a.cfg, a.logger).Handler()
}

// New creates and initializes the App from cfg. It fails fast when an explicitly enabled
// backend cannot be reached; a missing counter store only degrades to fail-open.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, ready: map[string]api.Pinger{}}
	logger.Info("initializing application services")

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	a.gate = quota.New(store, quota.Config{
		Limit:     cfg.Quota.Limit,
		Window:    cfg.QuotaWindow(),
		KeyPrefix: cfg.Quota.KeyPrefix,
	}, logger)

	snapshots, err := a.openSnapshots(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var recorders []adcopy.Recorder
	if cfg.Audit.Enabled {
		audit, err := postgres.NewAuditStore(ctx, postgres.AuditStoreConfig{
			DSN:      cfg.Audit.DSN,
			Table:    cfg.Audit.Table,
			MaxConns: cfg.Audit.MaxConns,
			MinConns: cfg.Audit.MinConns,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init audit store: %w", err)
		}
		a.closers = append(a.closers, func() error { audit.Close(); return nil })
		a.ready["audit"] = audit
		recorders = append(recorders, audit)
		logger.Info("audit trail enabled", zap.String("table", cfg.Audit.Table))
	}

	hasher := sha256.New()
	tables := language.DefaultTables()
	opts := acquire.Options{
		Fetcher: collyfetcher.New(collyfetcher.Config{
			UserAgent:      cfg.Fetch.UserAgent,
			AcceptLanguage: cfg.Fetch.AcceptLanguage,
			Timeout:        cfg.FetchTimeout(),
			MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		}, logger),
		Extractor: signals.New(tables),
		Resolver:  language.NewResolver(tables, logger),
		Recorders: recorders,
		Hasher:    hasher,
		IDs:       uuid.New(),
		Clock:     system.New(),
		Logger:    logger,
	}
	if snapshots != nil {
		opts.Snapshots = snapshots
	}
	if cfg.Cache.Enabled {
		opts.Cache = pagecache.New(store, hasher, pagecache.Config{
			TTL:       cfg.CacheTTL(),
			KeyPrefix: cfg.Cache.KeyPrefix,
		}, logger)
	}
	a.pipeline = acquire.New(opts)

	client := llm.New(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Version:   cfg.LLM.Version,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLMTimeout(),
	}, nil, logger)
	if !client.Configured() {
		logger.Warn("generative service API key not set; generation requests will fail")
	}
	a.gateway = generate.NewGateway(a.gate, client, logger)
	a.refiner = generate.NewRefiner(client, cfg.LLM.Model, logger)

	if cfg.Throttle.Enabled {
		a.throttle = ratelimit.New(ratelimit.Config{
			RPS:   cfg.Throttle.RPS,
			Burst: cfg.Throttle.Burst,
			Idle:  cfg.ThrottleIdle(),
		})
	}

	logger.Info("application services initialized",
		zap.String("store", cfg.Store.Backend),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.String("snapshot", cfg.Snapshot.Backend),
		zap.Bool("audit", cfg.Audit.Enabled),
		zap.Bool("throttle", cfg.Throttle.Enabled),
	)
	return a, nil
}

func (a *App) openStore() (kv.Store, error) {
	cfg := a.cfg.Store
	switch cfg.Backend {
	case config.StoreRedis:
		store, err := kvredis.New(kvredis.Config{URL: cfg.RedisURL, Timeout: a.cfg.StoreTimeout()})
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.ready["redis"] = store
		return store, nil
	case config.StoreMemory:
		a.logger.Info("using in-process counter store; quotas and cache reset on restart")
		return kvmemory.New(system.New()), nil
	default:
		client, err := upstash.New(upstash.Config{
			URL:     cfg.UpstashURL,
			Token:   cfg.UpstashToken,
			Timeout: a.cfg.StoreTimeout(),
		}, nil)
		if errors.Is(err, kv.ErrNotConfigured) {
			a.logger.Warn("counter store not configured; quota and cache fail open")
			return kv.Unconfigured{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("init upstash store: %w", err)
		}
		return client, nil
	}
}

func (a *App) openSnapshots(ctx context.Context) (*acquire.SnapshotRecorder, error) {
	cfg := a.cfg.Snapshot
	var blobs adcopy.BlobStore
	switch cfg.Backend {
	case config.SnapshotMemory:
		blobs = memstorage.NewBlobStore()
	case config.SnapshotLocal:
		store, err := local.New(local.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local snapshots: %w", err)
		}
		blobs = store
	case config.SnapshotGCS:
		store, err := gcs.Open(ctx, gcs.DefaultClientFactory{}, gcs.Config{Bucket: cfg.Bucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs snapshots: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		blobs = store
	default:
		return nil, nil
	}
	a.logger.Info("snapshots enabled", zap.String("backend", cfg.Backend), zap.String("prefix", cfg.Prefix))
	return acquire.NewSnapshotRecorder(blobs, cfg.Prefix), nil
}

// Close releases every opened backend in reverse order.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync on shutdown", zap.Error(err))
	}
}
