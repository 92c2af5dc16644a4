package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often MemoryStore drops expired entries.
const DefaultSweepInterval = 5 * time.Minute

// MemoryStore keeps counters in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]Entry
	now   func() time.Time

	logger   *zap.Logger
	interval time.Duration
	stopOnce sync.Once
	stopChan chan struct{}
}

// MemoryStoreOption customizes a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryClock overrides the store's time source.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithSweepInterval overrides DefaultSweepInterval.
func WithSweepInterval(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger attaches a logger for sweep reports.
func WithLogger(logger *zap.Logger) MemoryStoreOption {
	return func(s *MemoryStore) { s.logger = logger }
}

// NewMemoryStore returns an empty in-process store. Call Start to enable the
// background sweep.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		items:    make(map[string]Entry),
		now:      time.Now,
		logger:   zap.NewNop(),
		interval: DefaultSweepInterval,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Incr(_ context.Context, key string, now time.Time, window time.Duration) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok || !now.Before(entry.ResetAt) {
		entry = Entry{ResetAt: now.Add(window)}
	}
	entry.Count++
	s.items[key] = entry
	return entry, nil
}

// Len returns the number of entries currently held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes every entry whose window has already reset and returns how
// many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.items {
		if !now.Before(entry.ResetAt) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

// Start begins the periodic sweep.
func (s *MemoryStore) Start() {
	go s.run()
}

// Stop ends the periodic sweep. Safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *MemoryStore) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.logger.Debug("rate limit sweep removed expired entries", zap.Int("count", removed))
			}
		case <-s.stopChan:
			s.logger.Info("rate limit sweeper stopped")
			return
		}
	}
}
