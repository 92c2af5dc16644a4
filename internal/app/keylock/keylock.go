// Package keylock serializes work on the same logical key without a mutex per key.
package keylock

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultStripes = 256

// Striped maps keys onto a fixed set of mutexes. Distinct keys may share a
// stripe; the same key always maps to the same one.
type Striped struct {
	stripes []sync.Mutex
}

// New returns a Striped lock with n stripes (256 when n <= 0).
func New(n int) *Striped {
	if n <= 0 {
		n = defaultStripes
	}
	return &Striped{stripes: make([]sync.Mutex, n)}
}

// Lock acquires the stripe for key and returns its unlock func.
func (s *Striped) Lock(key string) func() {
	m := &s.stripes[xxhash.Sum64String(key)%uint64(len(s.stripes))]
	m.Lock()
	return m.Unlock
}
