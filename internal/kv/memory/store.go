// Package memory provides an in-process kv.Store for development and tests. It mimics the
// Redis semantics the rate gate relies on: INCR creates missing keys without an expiry and
// keeps the expiry of existing keys.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/JakeFAU/copygate/internal/adcopy"
	"github.com/JakeFAU/copygate/internal/kv"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store is a mutex-guarded map with per-key expiry.
type Store struct {
	mu    sync.Mutex
	data  map[string]entry
	clock adcopy.Clock
}

// New creates an empty Store reading time from clock.
func New(clock adcopy.Clock) *Store {
	return &Store{
		data:  make(map[string]entry),
		clock: clock,
	}
}

// Get implements kv.Store.
func (s *Store) Get(_ context.Context, key string) kv.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return kv.Absent()
	}
	return kv.OK(e.value)
}

// SetWithExpiry implements kv.Store.
func (s *Store) SetWithExpiry(_ context.Context, key, value string, ttl time.Duration) kv.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{
		value:     value,
		expiresAt: s.clock.Now().Add(time.Duration(kv.TTLSeconds(ttl)) * time.Second),
	}
	return kv.OK("OK")
}

// Increment implements kv.Store.
func (s *Store) Increment(_ context.Context, key string) kv.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		e = entry{value: "0"}
	}
	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return kv.Unavailable(fmt.Errorf("INCR %s: value is not an integer", key))
	}
	e.value = strconv.FormatInt(n+1, 10)
	s.data[key] = e
	return kv.OK(e.value)
}

// ExpiresAt reports the expiry of a live key; the zero time means no expiry.
func (s *Store) ExpiresAt(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

func (s *Store) live(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(s.clock.Now()) {
		delete(s.data, key)
		return entry{}, false
	}
	return e, true
}
