// Package redis implements kv.Store on a native Redis connection via go-redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JakeFAU/copygate/internal/kv"
)

// Config controls the connection and per-call budget.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Store wraps a go-redis client.
type Store struct {
	client  goredis.UniversalClient
	timeout time.Duration
}

// New parses a redis:// URL and builds a Store.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, kv.ErrNotConfigured
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewWithClient(goredis.NewClient(opts), cfg.Timeout), nil
}

// NewWithClient wraps an existing client (primarily for testing).
func NewWithClient(client goredis.UniversalClient, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Store{client: client, timeout: timeout}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Get implements kv.Store.
func (s *Store) Get(ctx context.Context, key string) kv.Reply {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return kv.Absent()
	}
	if err != nil {
		return kv.Unavailable(kv.TransportError("GET", err))
	}
	return kv.OK(val)
}

// SetWithExpiry implements kv.Store.
func (s *Store) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) kv.Reply {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ttl = time.Duration(kv.TTLSeconds(ttl)) * time.Second
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return kv.Unavailable(kv.TransportError("SET", err))
	}
	return kv.OK("OK")
}

// Increment implements kv.Store.
func (s *Store) Increment(ctx context.Context, key string) kv.Reply {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return kv.Unavailable(kv.TransportError("INCR", err))
	}
	return kv.OK(strconv.FormatInt(n, 10))
}
