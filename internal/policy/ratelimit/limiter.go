// Package ratelimit implements a per-identity token bucket used to throttle API ingress.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/copygate/internal/adcopy"
	"github.com/JakeFAU/copygate/internal/clock/system"
)

// DefaultIdle is how long an idle identity keeps its bucket.
const DefaultIdle = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages per-identity rate limits.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      rate.Limit
	burst     int
	idle      time.Duration
	clock     adcopy.Clock
	lastSweep time.Time
}

// Config holds rate limiter configuration.
type Config struct {
	RPS   float64
	Burst int
	Idle  time.Duration
	Clock adcopy.Clock
}

// New creates a new Limiter. A non-positive RPS disables limiting.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	idle := cfg.Idle
	if idle <= 0 {
		idle = DefaultIdle
	}
	clk := cfg.Clock
	if clk == nil {
		clk = system.New()
	}
	return &Limiter{
		buckets:   make(map[string]*bucket),
		rate:      r,
		burst:     burst,
		idle:      idle,
		clock:     clk,
		lastSweep: clk.Now(),
	}
}

// Allow reports whether identity may make a request now, consuming a token if so.
func (l *Limiter) Allow(identity string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	b, ok := l.buckets[identity]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[identity] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Len returns the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep drops idle buckets at most once per idle period. Callers hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idle {
			delete(l.buckets, id)
		}
	}
	l.lastSweep = now
}
