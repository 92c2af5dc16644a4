package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/repository"
)

// PartnerService defines administrative operations on partners.
type PartnerService interface {
	CreatePartner(ctx context.Context, input CreatePartnerInput) (*model.Partner, error)
	GetPartner(ctx context.Context, id string) (*model.Partner, error)
	ListPartners(ctx context.Context, status string) ([]model.Partner, error)
	UpdateStatus(ctx context.Context, id, status string) (*model.Partner, error)
	Stats(ctx context.Context, id string) (*model.PartnerStats, error)
}

type partnerService struct {
	repo    repository.PartnerRepository
	reports repository.ReportRepository
	known   *KnownPartners
}

// NewPartnerService returns a service backed by the given repositories.
// reports and known may be nil.
func NewPartnerService(repo repository.PartnerRepository, reports repository.ReportRepository, known *KnownPartners) PartnerService {
	return &partnerService{repo: repo, reports: reports, known: known}
}

// CreatePartnerInput captures data required to create a partner.
type CreatePartnerInput struct {
	ID             string
	Name           string
	CommissionRate float64
	Status         string
}

func (s *partnerService) CreatePartner(ctx context.Context, input CreatePartnerInput) (*model.Partner, error) {
	partner := &model.Partner{
		ID:             strings.TrimSpace(input.ID),
		Name:           strings.TrimSpace(input.Name),
		CommissionRate: input.CommissionRate,
		Status:         model.PartnerStatus(input.Status),
	}

	if !model.ValidPartnerID(partner.ID) {
		return nil, fmt.Errorf("%w: partner id must match ^[a-z0-9-]+$", ErrValidation)
	}
	if partner.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if partner.CommissionRate < 0 {
		return nil, fmt.Errorf("%w: commission rate must not be negative", ErrValidation)
	}
	if partner.Status == "" {
		partner.Status = model.PartnerStatusActive
	}
	if !partner.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	if err := s.repo.Create(ctx, partner); err != nil {
		return nil, fmt.Errorf("create partner: %w", err)
	}
	s.known.Add(partner.ID)
	return partner, nil
}

func (s *partnerService) GetPartner(ctx context.Context, id string) (*model.Partner, error) {
	partner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get partner: %w", err)
	}
	return partner, nil
}

func (s *partnerService) ListPartners(ctx context.Context, status string) ([]model.Partner, error) {
	var filter *model.PartnerStatus
	if status != "" {
		st := model.PartnerStatus(status)
		if !st.Valid() {
			return nil, ErrInvalidStatus
		}
		filter = &st
	}

	partners, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	return partners, nil
}

func (s *partnerService) UpdateStatus(ctx context.Context, id, status string) (*model.Partner, error) {
	st := model.PartnerStatus(status)
	if !st.Valid() {
		return nil, ErrInvalidStatus
	}

	partner, err := s.repo.UpdateStatus(ctx, id, st)
	if err != nil {
		return nil, fmt.Errorf("update partner status: %w", err)
	}
	return partner, nil
}

func (s *partnerService) Stats(ctx context.Context, id string) (*model.PartnerStats, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("load partner: %w", err)
	}
	if s.reports == nil {
		return &model.PartnerStats{PartnerID: id}, nil
	}

	stats, err := s.reports.PartnerStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("partner stats: %w", err)
	}
	return stats, nil
}
