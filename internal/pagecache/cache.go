// Package pagecache memoizes page signals in the shared kv store for a day, keyed by the
// normalized landing page URL.
package pagecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/copygate/internal/adcopy"
	"github.com/JakeFAU/copygate/internal/kv"
	"github.com/JakeFAU/copygate/internal/metrics"
)

// Defaults for the cache.
const (
	DefaultTTL       = 24 * time.Hour
	DefaultKeyPrefix = "rsa:scrape:"
)

// ComputeFunc produces page signals on a miss. An error means nothing is cached.
type ComputeFunc func(ctx context.Context) (adcopy.PageSignals, error)

// Config controls key layout and lifetime.
type Config struct {
	TTL       time.Duration
	KeyPrefix string
}

// Cache is a read-through cache over kv.Store.
type Cache struct {
	store  kv.Store
	hasher adcopy.Hasher
	cfg    Config
	logger *zap.Logger
}

// New creates a Cache. A nil store behaves as unconfigured; every lookup is then a miss.
func New(store kv.Store, hasher adcopy.Hasher, cfg Config, logger *zap.Logger) *Cache {
	if store == nil {
		store = kv.Unconfigured{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, hasher: hasher, cfg: cfg, logger: logger.Named("pagecache")}
}

// NormalizeKey returns the store key for rawURL. URLs differing only in case or a single
// trailing slash share a key.
func (c *Cache) NormalizeKey(rawURL string) (string, error) {
	digest, err := c.hasher.Hash([]byte(adcopy.NormalizeURL(rawURL)))
	if err != nil {
		return "", fmt.Errorf("hash cache key: %w", err)
	}
	return c.cfg.KeyPrefix + digest, nil
}

// GetOrCompute returns the cached signals for rawURL, or runs compute and stores its result.
// Store failures never surface; errors from compute are returned unchanged.
func (c *Cache) GetOrCompute(ctx context.Context, rawURL string, compute ComputeFunc) (adcopy.PageSignals, error) {
	key, err := c.NormalizeKey(rawURL)
	if err != nil {
		c.logger.Warn("page cache bypassed", zap.String("url", rawURL), zap.Error(err))
		return compute(ctx)
	}

	if page, ok := c.lookup(ctx, rawURL, key); ok {
		return page, nil
	}

	page, err := compute(ctx)
	if err != nil {
		return page, err
	}
	page.FromCache = false
	c.save(ctx, rawURL, key, page)
	return page, nil
}

func (c *Cache) lookup(ctx context.Context, rawURL, key string) (adcopy.PageSignals, bool) {
	reply := c.store.Get(ctx, key)
	switch reply.Status {
	case kv.StatusAbsent:
		metrics.ObservePageCache("miss")
		c.logger.Info("page cache miss", zap.String("url", rawURL))
		return adcopy.PageSignals{}, false
	case kv.StatusUnavailable:
		metrics.ObservePageCache("unavailable")
		c.logger.Warn("page cache unavailable", zap.String("url", rawURL), zap.Error(reply.Err))
		return adcopy.PageSignals{}, false
	}

	var page adcopy.PageSignals
	if err := json.Unmarshal([]byte(reply.Value), &page); err != nil {
		metrics.ObservePageCache("corrupt")
		c.logger.Warn("page cache entry unreadable", zap.String("url", rawURL), zap.Error(err))
		return adcopy.PageSignals{}, false
	}
	metrics.ObservePageCache("hit")
	c.logger.Info("page cache hit", zap.String("url", rawURL))
	page.FromCache = true
	return page, true
}

func (c *Cache) save(ctx context.Context, rawURL, key string, page adcopy.PageSignals) {
	payload, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("page cache encode failed", zap.String("url", rawURL), zap.Error(err))
		return
	}
	reply := c.store.SetWithExpiry(ctx, key, string(payload), c.cfg.TTL)
	if !reply.Available() {
		c.logger.Warn("page cache write failed", zap.String("url", rawURL), zap.Error(reply.Err))
		return
	}
	c.logger.Debug("page cached", zap.String("url", rawURL), zap.Duration("ttl", c.cfg.TTL))
}
