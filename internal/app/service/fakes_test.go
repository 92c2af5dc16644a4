package service

import (
	"context"
	"sync"
	"time"

	"github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/repository"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memPartners struct {
	mu   sync.Mutex
	byID map[string]model.Partner
}

func newMemPartners(partners ...model.Partner) *memPartners {
	m := &memPartners{byID: map[string]model.Partner{}}
	for _, p := range partners {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memPartners) Create(_ context.Context, p *model.Partner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; ok {
		return repository.ErrPartnerExists
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *memPartners) GetByID(_ context.Context, id string) (*model.Partner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrPartnerNotFound
	}
	return &p, nil
}

func (m *memPartners) List(_ context.Context, status *model.PartnerStatus) ([]model.Partner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Partner
	for _, p := range m.byID {
		if status == nil || p.Status == *status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPartners) ListIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.byID {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memPartners) UpdateStatus(_ context.Context, id string, status model.PartnerStatus) (*model.Partner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrPartnerNotFound
	}
	p.Status = status
	m.byID[id] = p
	return &p, nil
}

func (m *memPartners) setRate(id string, rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byID[id]
	p.CommissionRate = rate
	m.byID[id] = p
}

type memClicks struct {
	mu     sync.Mutex
	events []model.ClickEvent
}

func (m *memClicks) Create(_ context.Context, e *model.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memClicks) FindRecent(_ context.Context, partnerID, ip string, since, until time.Time) (*model.ClickEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if e.PartnerID == partnerID && e.IPAddress == ip && !e.ClickedAt.Before(since) && !e.ClickedAt.After(until) {
			return &e, nil
		}
	}
	return nil, repository.ErrClickNotFound
}

func (m *memClicks) GetBySessionID(_ context.Context, sessionID string) (*model.ClickEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.SessionID == sessionID {
			return &e, nil
		}
	}
	return nil, repository.ErrClickNotFound
}

func (m *memClicks) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type memConversions struct {
	mu      sync.Mutex
	byOrder map[string]model.ConversionEvent
}

func newMemConversions() *memConversions {
	return &memConversions{byOrder: map[string]model.ConversionEvent{}}
}

func (m *memConversions) Create(_ context.Context, e *model.ConversionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byOrder[e.OrderID]; ok {
		return repository.ErrConversionExists
	}
	m.byOrder[e.OrderID] = *e
	return nil
}

func (m *memConversions) GetByOrderID(_ context.Context, orderID string) (*model.ConversionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byOrder[orderID]
	if !ok {
		return nil, repository.ErrConversionNotFound
	}
	return &e, nil
}

func (m *memConversions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byOrder)
}

func acmePartner() model.Partner {
	return model.Partner{ID: "acme", Name: "Acme", CommissionRate: 200, Status: model.PartnerStatusActive}
}
