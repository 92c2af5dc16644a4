package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/repository"
)

type mockPayoutRepository struct {
	settleFn func(ctx context.Context, payout *model.Payout) error
	listFn   func(ctx context.Context, partnerID string) ([]model.Payout, error)
}

func (m *mockPayoutRepository) Settle(ctx context.Context, payout *model.Payout) error {
	return m.settleFn(ctx, payout)
}

func (m *mockPayoutRepository) List(ctx context.Context, partnerID string) ([]model.Payout, error) {
	return m.listFn(ctx, partnerID)
}

func TestPayoutService_CreatePayout(t *testing.T) {
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	payouts := &mockPayoutRepository{
		settleFn: func(ctx context.Context, payout *model.Payout) error {
			assert.Equal(t, "acme", payout.PartnerID)
			assert.True(t, payout.PeriodStart.Equal(from))
			assert.True(t, payout.PeriodEnd.Equal(to))
			payout.Amount = 400
			payout.ConversionCount = 2
			return nil
		},
	}
	svc := NewPayoutService(newMemPartners(acmePartner()), payouts)

	payout, err := svc.CreatePayout(context.Background(), "acme", from, to)
	require.NoError(t, err)
	assert.NotEmpty(t, payout.ID)
	assert.Equal(t, 400.0, payout.Amount)
}

func TestPayoutService_CreatePayout_Errors(t *testing.T) {
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	payouts := &mockPayoutRepository{
		settleFn: func(ctx context.Context, payout *model.Payout) error {
			return repository.ErrNothingToPayOut
		},
	}
	svc := NewPayoutService(newMemPartners(acmePartner()), payouts)
	ctx := context.Background()

	_, err := svc.CreatePayout(ctx, "acme", from, from)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreatePayout(ctx, "ghost", from, from.Add(time.Hour))
	assert.ErrorIs(t, err, repository.ErrPartnerNotFound)

	_, err = svc.CreatePayout(ctx, "acme", from, from.Add(time.Hour))
	assert.ErrorIs(t, err, repository.ErrNothingToPayOut)
}
