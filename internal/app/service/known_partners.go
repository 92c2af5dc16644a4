package service

import (
	"context"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/youwow/affiliate/internal/app/repository"
	"go.uber.org/zap"
)

// DefaultPartnerRefreshInterval is how often Start reloads partner ids.
const DefaultPartnerRefreshInterval = time.Minute

// KnownPartners is a Bloom filter over partner ids. It lets the referral
// interceptor skip ids that were never created without touching the database.
// False positives are possible; false negatives are not.
type KnownPartners struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewKnownPartners sizes the filter for expected ids at false-positive rate fp.
func NewKnownPartners(expected uint, fp float64) *KnownPartners {
	if expected == 0 {
		expected = 1000
	}
	return &KnownPartners{
		filter:   bloom.NewWithEstimates(expected, fp),
		stopChan: make(chan struct{}),
	}
}

// Load adds every stored partner id.
func (k *KnownPartners) Load(ctx context.Context, partners repository.PartnerRepository) (int, error) {
	ids, err := partners.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		k.Add(id)
	}
	return len(ids), nil
}

// Add records id as existing.
func (k *KnownPartners) Add(id string) {
	if k == nil {
		return
	}
	k.mu.Lock()
	k.filter.AddString(id)
	k.mu.Unlock()
}

// MayExist reports false only when id was definitely never added.
// A nil filter admits everything.
func (k *KnownPartners) MayExist(id string) bool {
	if k == nil {
		return true
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.filter.TestString(id)
}

// Start reloads partner ids every interval until Stop, so partners created
// through another instance become known here.
func (k *KnownPartners) Start(partners repository.PartnerRepository, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = DefaultPartnerRefreshInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	go k.run(partners, interval, logger)
}

// Stop ends the refresh loop. Safe to call more than once.
func (k *KnownPartners) Stop() {
	k.stopOnce.Do(func() { close(k.stopChan) })
}

func (k *KnownPartners) run(partners repository.PartnerRepository, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			if _, err := k.Load(ctx, partners); err != nil {
				logger.Warn("failed to refresh known partners", zap.Error(err))
			}
			cancel()
		case <-k.stopChan:
			return
		}
	}
}
