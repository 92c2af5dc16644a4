// Package ratelimit implements a fixed-window request counter over a pluggable
// key-value store.
//
// Counters reset at discrete window boundaries, so a client can issue up to
// twice the limit across a boundary. Every Store increments atomically.
// MemoryStore is process local, so running several instances multiplies the
// effective limit unless a shared store such as RedisStore is used.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidOptions is returned when a check is asked for a non-positive limit or window.
var ErrInvalidOptions = errors.New("ratelimit: limit and window must be positive")

// Options describes one logical limit, e.g. admin login attempts.
type Options struct {
	Key    string
	Limit  int
	Window time.Duration
}

// Result is the outcome of a single check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, rounded up to whole seconds.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return (d + time.Second - 1).Truncate(time.Second)
}

// Limiter applies the fixed-window algorithm against a Store.
type Limiter struct {
	store Store
	now   func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New returns a limiter backed by store.
func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// StoreKey is the key under which the counter for (key, identity) is kept.
func StoreKey(key, identity string) string {
	return key + ":" + identity
}

// Check counts one request from identity against opts and reports whether it
// may proceed. Rejected requests still count, so a blocked client stays
// blocked until the window resets.
func (l *Limiter) Check(ctx context.Context, identity string, opts Options) (Result, error) {
	if opts.Limit <= 0 || opts.Window <= 0 {
		return Result{}, ErrInvalidOptions
	}

	key := StoreKey(opts.Key, identity)
	entry, err := l.store.Incr(ctx, key, l.now(), opts.Window)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}

	if entry.Count > opts.Limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: entry.ResetAt}, nil
	}
	return Result{Allowed: true, Remaining: opts.Limit - entry.Count, ResetAt: entry.ResetAt}, nil
}

// Now exposes the limiter clock so callers can compute Retry-After consistently.
func (l *Limiter) Now() time.Time {
	return l.now()
}
