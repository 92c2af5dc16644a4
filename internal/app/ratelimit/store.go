package ratelimit

import (
	"context"
	"time"
)

// Entry is the counter for one store key after an increment.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Store is the key-value state behind a Limiter.
type Store interface {
	// Incr atomically counts one hit on key and returns the updated entry.
	// A missing window, or one whose ResetAt is not after now, restarts at
	// count 1 with ResetAt now+window.
	Incr(ctx context.Context, key string, now time.Time, window time.Duration) (Entry, error)
}
