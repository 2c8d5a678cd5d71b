// Package quota implements the per-identity usage gate in front of the generative service.
// The gate reads before the call and writes only after the call succeeds, so failed
// generations never consume quota. When the counter store cannot be reached the gate reports
// Unavailable and callers proceed.
package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/copygate/internal/kv"
	"github.com/JakeFAU/copygate/internal/metrics"
)

// Defaults match the free tier.
const (
	DefaultLimit     = 10
	DefaultWindow    = 30 * 24 * time.Hour
	DefaultKeyPrefix = "rsa:ip:"
)

// Outcome is the result of a gate check.
type Outcome int

// Gate outcomes.
const (
	Allowed Outcome = iota
	Denied
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decision is the answer to CheckAndReserve. Count is the pre-increment count.
type Decision struct {
	Outcome Outcome
	Count   int64
	Limit   int64

	exists bool
}

// Permits reports whether the caller may proceed. Unavailable fails open.
func (d Decision) Permits() bool {
	return d.Outcome != Denied
}

// Usage reports the count after a commit. Tracked is false when the store did not answer.
type Usage struct {
	Count   int64
	Limit   int64
	Tracked bool
}

// Config controls the gate.
type Config struct {
	Limit     int64
	Window    time.Duration
	KeyPrefix string
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	return c
}

// Gate reads and advances usage counters in a kv.Store.
type Gate struct {
	store  kv.Store
	cfg    Config
	logger *zap.Logger
}

// New creates a Gate. A nil store behaves as an unconfigured one.
func New(store kv.Store, cfg Config, logger *zap.Logger) *Gate {
	if store == nil {
		store = kv.Unconfigured{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		store:  store,
		cfg:    cfg.withDefaults(),
		logger: logger.Named("quota"),
	}
}

// Limit returns the configured allowance.
func (g *Gate) Limit() int64 {
	return g.cfg.Limit
}

// Key returns the store key for identity.
func (g *Gate) Key(identity string) string {
	return g.cfg.KeyPrefix + identity
}

// CheckAndReserve reads the current count for identity without changing it.
func (g *Gate) CheckAndReserve(ctx context.Context, identity string) Decision {
	decision := g.read(ctx, identity)
	metrics.ObserveQuotaDecision(decision.Outcome.String())
	g.logger.Debug("quota decision",
		zap.String("identity", identity),
		zap.Stringer("outcome", decision.Outcome),
		zap.Int64("count", decision.Count),
		zap.Int64("limit", decision.Limit),
	)
	return decision
}

func (g *Gate) read(ctx context.Context, identity string) Decision {
	decision := Decision{Limit: g.cfg.Limit}
	reply := g.store.Get(ctx, g.Key(identity))
	switch reply.Status {
	case kv.StatusAbsent:
		decision.Outcome = Allowed
		return decision
	case kv.StatusUnavailable:
		g.logger.Warn("quota store unavailable, failing open",
			zap.String("identity", identity), zap.Error(reply.Err))
		decision.Outcome = Unavailable
		return decision
	}

	count, err := reply.Int()
	if err != nil {
		g.logger.Warn("quota count unreadable, failing open",
			zap.String("identity", identity), zap.Error(err))
		decision.Outcome = Unavailable
		return decision
	}
	decision.Count = count
	decision.exists = true
	if count >= g.cfg.Limit {
		decision.Outcome = Denied
		return decision
	}
	decision.Outcome = Allowed
	return decision
}

// Commit records one successful use. The expiry is written only when the record is created,
// so the window stays anchored to first use. Failures are logged and reported as untracked.
func (g *Gate) Commit(ctx context.Context, identity string, decision Decision) Usage {
	if decision.Outcome == Unavailable {
		decision = g.read(ctx, identity)
		if decision.Outcome == Unavailable {
			// Still unreadable: let INCR decide whether the record exists.
			decision.exists = true
		}
	}

	key := g.Key(identity)
	if !decision.exists {
		return g.create(ctx, identity, key)
	}

	reply := g.store.Increment(ctx, key)
	count, ok := g.countFrom(identity, "increment", reply)
	if !ok {
		return Usage{Limit: g.cfg.Limit}
	}
	if count == 1 {
		// The record expired between check and commit; INCR recreated it without a TTL.
		return g.create(ctx, identity, key)
	}
	metrics.ObserveQuotaCommit("incremented")
	return Usage{Count: count, Limit: g.cfg.Limit, Tracked: true}
}

func (g *Gate) create(ctx context.Context, identity, key string) Usage {
	reply := g.store.SetWithExpiry(ctx, key, "1", g.cfg.Window)
	if !reply.Available() {
		metrics.ObserveQuotaCommit("failed")
		g.logger.Warn("quota create failed",
			zap.String("identity", identity), zap.Error(reply.Err))
		return Usage{Limit: g.cfg.Limit}
	}
	metrics.ObserveQuotaCommit("created")
	return Usage{Count: 1, Limit: g.cfg.Limit, Tracked: true}
}

func (g *Gate) countFrom(identity, op string, reply kv.Reply) (int64, bool) {
	if !reply.Available() {
		metrics.ObserveQuotaCommit("failed")
		g.logger.Warn("quota "+op+" failed",
			zap.String("identity", identity), zap.Error(reply.Err))
		return 0, false
	}
	count, err := reply.Int()
	if err != nil {
		metrics.ObserveQuotaCommit("failed")
		g.logger.Warn("quota "+op+" returned a non-integer",
			zap.String("identity", identity), zap.Error(err))
		return 0, false
	}
	return count, true
}
