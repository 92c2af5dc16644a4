package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/repository"
)

// PayoutService settles partner commissions.
type PayoutService interface {
	CreatePayout(ctx context.Context, partnerID string, from, to time.Time) (*model.Payout, error)
	ListPayouts(ctx context.Context, partnerID string) ([]model.Payout, error)
}

type payoutService struct {
	partners repository.PartnerRepository
	payouts  repository.PayoutRepository
	opts     options
}

// NewPayoutService returns a PayoutService backed by the given repositories.
func NewPayoutService(partners repository.PartnerRepository, payouts repository.PayoutRepository, opts ...Option) PayoutService {
	return &payoutService{partners: partners, payouts: payouts, opts: buildOptions(opts)}
}

func (s *payoutService) CreatePayout(ctx context.Context, partnerID string, from, to time.Time) (*model.Payout, error) {
	if partnerID == "" {
		return nil, fmt.Errorf("%w: partnerId is required", ErrValidation)
	}
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", ErrValidation)
	}
	if _, err := s.partners.GetByID(ctx, partnerID); err != nil {
		return nil, fmt.Errorf("load partner: %w", err)
	}

	payout := &model.Payout{
		ID:          uuid.NewString(),
		PartnerID:   partnerID,
		PeriodStart: from.UTC(),
		PeriodEnd:   to.UTC(),
		CreatedAt:   s.opts.now().UTC(),
	}
	if err := s.payouts.Settle(ctx, payout); err != nil {
		return nil, fmt.Errorf("settle payout: %w", err)
	}
	return payout, nil
}

func (s *payoutService) ListPayouts(ctx context.Context, partnerID string) ([]model.Payout, error) {
	payouts, err := s.payouts.List(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	return payouts, nil
}
