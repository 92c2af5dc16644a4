package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/repository"
)

func TestClickRecorder_DeduplicatesWithinWindow(t *testing.T) {
	clock := newTestClock()
	clicks := &memClicks{}
	rec := NewClickRecorder(newMemPartners(acmePartner()), clicks, WithClock(clock.Now))
	ctx := context.Background()
	in := RecordClickInput{PartnerID: "acme", SessionID: "s1", ClientIP: "9.9.9.9", LandingPage: "/songs"}

	first, created, err := rec.RecordClick(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)

	clock.Advance(30 * time.Second)
	in.SessionID = "s2"
	second, created, err := rec.RecordClick(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, clicks.count())

	clock.Advance(31 * time.Second)
	third, created, err := rec.RecordClick(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, 2, clicks.count())
}

func TestClickRecorder_DifferentIPsAreNotDeduplicated(t *testing.T) {
	clicks := &memClicks{}
	rec := NewClickRecorder(newMemPartners(acmePartner()), clicks)
	ctx := context.Background()

	_, _, err := rec.RecordClick(ctx, RecordClickInput{PartnerID: "acme", SessionID: "a", ClientIP: "1.1.1.1"})
	require.NoError(t, err)
	_, created, err := rec.RecordClick(ctx, RecordClickInput{PartnerID: "acme", SessionID: "b", ClientIP: "2.2.2.2"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, clicks.count())
}

func TestClickRecorder_Preconditions(t *testing.T) {
	inactive := model.Partner{ID: "sleepy", Name: "Sleepy", Status: model.PartnerStatusInactive}
	archived := model.Partner{ID: "old", Name: "Old", Status: model.PartnerStatusArchived}
	clicks := &memClicks{}
	rec := NewClickRecorder(newMemPartners(inactive, archived), clicks)
	ctx := context.Background()

	_, _, err := rec.RecordClick(ctx, RecordClickInput{PartnerID: "nobody", SessionID: "s", ClientIP: "ip"})
	assert.ErrorIs(t, err, repository.ErrPartnerNotFound)

	_, _, err = rec.RecordClick(ctx, RecordClickInput{PartnerID: "sleepy", SessionID: "s", ClientIP: "ip"})
	assert.ErrorIs(t, err, ErrPartnerInactive)

	_, _, err = rec.RecordClick(ctx, RecordClickInput{PartnerID: "old", SessionID: "s", ClientIP: "ip"})
	assert.ErrorIs(t, err, ErrPartnerInactive)

	_, _, err = rec.RecordClick(ctx, RecordClickInput{PartnerID: "", SessionID: "s"})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 0, clicks.count())
}

func TestClickRecorder_ConcurrentDuplicatesCollapse(t *testing.T) {
	clicks := &memClicks{}
	rec := NewClickRecorder(newMemPartners(acmePartner()), clicks)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = rec.RecordClick(ctx, RecordClickInput{PartnerID: "acme", SessionID: "s", ClientIP: "9.9.9.9"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, clicks.count())
}

type failingClicks struct{ memClicks }

func (f *failingClicks) Create(context.Context, *model.ClickEvent) error {
	return errors.New("db down")
}

func TestClickRecorder_StoreFailureIsNotPermanent(t *testing.T) {
	rec := NewClickRecorder(newMemPartners(acmePartner()), &failingClicks{})
	_, _, err := rec.RecordClick(context.Background(), RecordClickInput{PartnerID: "acme", SessionID: "s", ClientIP: "ip"})
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestClickRecorder_UsesVisitTime(t *testing.T) {
	clock := newTestClock()
	clicks := &memClicks{}
	rec := NewClickRecorder(newMemPartners(acmePartner()), clicks, WithClock(clock.Now))
	ctx := context.Background()

	visit := clock.Now()
	clock.Advance(2 * time.Minute)

	event, created, err := rec.RecordClick(ctx, RecordClickInput{PartnerID: "acme", SessionID: "s1", ClientIP: "1.1.1.1", ClickedAt: visit})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, event.ClickedAt.Equal(visit))

	// Timestamps ahead of the recorder clock are clamped to now.
	event, _, err = rec.RecordClick(ctx, RecordClickInput{PartnerID: "acme", SessionID: "s2", ClientIP: "2.2.2.2", ClickedAt: clock.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, event.ClickedAt.Equal(clock.Now()))
}
