// Package kv defines the counter/cache store contract shared by the rate gate and the page
// cache. Backends never panic or return bare errors: every call yields a Reply whose Status
// says whether the store answered, had no value, or could not be reached.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrNotConfigured marks a store that has no endpoint or credential.
	ErrNotConfigured = errors.New("kv store not configured")
	// ErrTransport marks network, timeout, and protocol failures.
	ErrTransport = errors.New("kv transport error")
)

// Status is the outcome of a single store call.
type Status int

// Store call outcomes.
const (
	StatusOK Status = iota
	StatusAbsent
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAbsent:
		return "absent"
	case StatusUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Reply carries the scalar result of a store call.
type Reply struct {
	Value  string
	Status Status
	Err    error
}

// OK builds a successful reply.
func OK(value string) Reply {
	return Reply{Value: value, Status: StatusOK}
}

// Absent builds a reply for a missing key.
func Absent() Reply {
	return Reply{Status: StatusAbsent}
}

// Unavailable builds a reply for a store that could not answer.
func Unavailable(err error) Reply {
	if err == nil {
		err = ErrTransport
	}
	return Reply{Status: StatusUnavailable, Err: err}
}

// Available reports whether the store answered (with or without a value).
func (r Reply) Available() bool {
	return r.Status != StatusUnavailable
}

// Int parses the reply value as a base-10 integer.
func (r Reply) Int() (int64, error) {
	if r.Status != StatusOK {
		return 0, fmt.Errorf("no integer in %s reply", r.Status)
	}
	n, err := strconv.ParseInt(r.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse integer reply %q: %w", r.Value, err)
	}
	return n, nil
}

// Store is a TTL-capable key-value store reachable over the network.
type Store interface {
	Get(ctx context.Context, key string) Reply
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) Reply
	Increment(ctx context.Context, key string) Reply
}

// Unconfigured is the Store used when no backend is configured. Every call is Unavailable.
type Unconfigured struct{}

// Get implements Store.
func (Unconfigured) Get(context.Context, string) Reply {
	return Unavailable(ErrNotConfigured)
}

// SetWithExpiry implements Store.
func (Unconfigured) SetWithExpiry(context.Context, string, string, time.Duration) Reply {
	return Unavailable(ErrNotConfigured)
}

// Increment implements Store.
func (Unconfigured) Increment(context.Context, string) Reply {
	return Unavailable(ErrNotConfigured)
}

// TransportError wraps err so that errors.Is(err, ErrTransport) holds.
func TransportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

// TTLSeconds converts a TTL into whole seconds, rounding up and never below one.
func TTLSeconds(ttl time.Duration) int64 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
