// Package postgres provides the Postgres-backed acquisition audit log.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/copygate/internal/adcopy"
)

// DefaultTable receives audit rows when no table is configured.
const DefaultTable = "acquisitions"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// AuditStoreConfig controls the Postgres connection pool used for audit rows.
type AuditStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Ping(context.Context) error
	Close()
}

// AuditStore writes one row per live acquisition.
type AuditStore struct {
	pool  execCloser
	table string
	query string
}

var _ adcopy.Recorder = (*AuditStore)(nil)

// NewAuditStore connects a pool using cfg.
func NewAuditStore(ctx context.Context, cfg AuditStoreConfig) (*AuditStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("audit.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewAuditStoreWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewAuditStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewAuditStoreWithPool(pool execCloser, table string) (*AuditStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &AuditStore{pool: pool, table: table, query: insertQuery(table)}, nil
}

func insertQuery(table string) string {
	return fmt.Sprintf(`
INSERT INTO %s (
	id,
	url,
	normalized_url,
	final_url,
	status_code,
	language,
	detected_code,
	signals,
	content_hash,
	blob_uri,
	fetched_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`, table)
}

// Ping checks connectivity for readiness probes.
func (s *AuditStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *AuditStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Record inserts an audit row for acq.
func (s *AuditStore) Record(ctx context.Context, acq adcopy.Acquisition) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("audit store is not configured")
	}
	if acq.ID == "" {
		return fmt.Errorf("acquisition id is required")
	}
	signalsJSON, err := json.Marshal(signalsOrEmpty(acq.Page.Signals))
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}

	args := []any{
		acq.ID,
		acq.URL,
		acq.NormalizedURL,
		acq.Response.FinalURL,
		acq.Response.StatusCode,
		acq.Page.Language,
		acq.Page.DetectedCode,
		signalsJSON,
		acq.ContentHash,
		acq.BlobURI,
		acq.FetchedAt,
	}
	if _, err := s.pool.Exec(ctx, s.query, args...); err != nil {
		return fmt.Errorf("insert acquisition: %w", err)
	}
	return nil
}

func signalsOrEmpty(m map[string]*string) map[string]*string {
	if m == nil {
		return map[string]*string{}
	}
	return m
}
