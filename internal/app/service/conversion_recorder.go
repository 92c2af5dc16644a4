package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/youwow/affiliate/internal/app/keylock"
	"github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/repository"
	infraPrometheus "github.com/youwow/affiliate/internal/infra/prometheus"
	"go.uber.org/zap"
)

// RecordConversionInput captures a paid order credited to a partner.
type RecordConversionInput struct {
	PartnerID   string
	SessionID   string
	OrderID     string
	ServiceType string
	Amount      float64
}

// ConversionRecorder records at most one conversion per order.
type ConversionRecorder interface {
	// RecordConversion stores the conversion for in.OrderID, or returns the one
	// already stored for it unchanged. created reports which.
	RecordConversion(ctx context.Context, in RecordConversionInput) (event *model.ConversionEvent, created bool, err error)
}

type conversionRecorder struct {
	partners    repository.PartnerRepository
	clicks      repository.ClickEventRepository
	conversions repository.ConversionRepository
	locks       *keylock.Striped
	opts        options
}

// NewConversionRecorder returns a ConversionRecorder backed by the given repositories.
func NewConversionRecorder(
	partners repository.PartnerRepository,
	clicks repository.ClickEventRepository,
	conversions repository.ConversionRepository,
	opts ...Option,
) ConversionRecorder {
	return &conversionRecorder{
		partners:    partners,
		clicks:      clicks,
		conversions: conversions,
		locks:       keylock.New(0),
		opts:        buildOptions(opts),
	}
}

func (r *conversionRecorder) RecordConversion(ctx context.Context, in RecordConversionInput) (*model.ConversionEvent, bool, error) {
	in.PartnerID = strings.TrimSpace(in.PartnerID)
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.PartnerID == "" || in.OrderID == "" {
		infraPrometheus.ConversionsRecorded.WithLabelValues("rejected").Inc()
		return nil, false, fmt.Errorf("%w: partnerId and orderId are required", ErrValidation)
	}
	if in.Amount < 0 {
		infraPrometheus.ConversionsRecorded.WithLabelValues("rejected").Inc()
		return nil, false, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}

	partner, err := activePartner(ctx, r.partners, in.PartnerID)
	if err != nil {
		infraPrometheus.ConversionsRecorded.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, false, err
	}

	unlock := r.locks.Lock(in.OrderID)
	defer unlock()

	if existing, err := r.existing(ctx, in.OrderID); err != nil || existing != nil {
		return existing, false, err
	}

	event := &model.ConversionEvent{
		ID:          uuid.NewString(),
		PartnerID:   partner.ID,
		SessionID:   in.SessionID,
		OrderID:     in.OrderID,
		ServiceType: in.ServiceType,
		Amount:      in.Amount,
		Commission:  partner.CommissionRate,
		LandingPage: r.landingPage(ctx, in.SessionID),
		CreatedAt:   r.opts.now().UTC(),
	}

	if err := r.conversions.Create(ctx, event); err != nil {
		if errors.Is(err, repository.ErrConversionExists) {
			// Another instance won the race on the unique order id.
			existing, lookupErr := r.existing(ctx, in.OrderID)
			if lookupErr == nil && existing == nil {
				lookupErr = fmt.Errorf("conversion for order %s vanished after conflict", in.OrderID)
			}
			return existing, false, lookupErr
		}
		infraPrometheus.ConversionsRecorded.WithLabelValues("failed").Inc()
		return nil, false, fmt.Errorf("create conversion: %w", err)
	}

	infraPrometheus.ConversionsRecorded.WithLabelValues("created").Inc()
	return event, true, nil
}

// existing returns the stored conversion for orderID, or nil when none exists.
func (r *conversionRecorder) existing(ctx context.Context, orderID string) (*model.ConversionEvent, error) {
	event, err := r.conversions.GetByOrderID(ctx, orderID)
	if err == nil {
		infraPrometheus.ConversionsRecorded.WithLabelValues("duplicate").Inc()
		return event, nil
	}
	if errors.Is(err, repository.ErrConversionNotFound) {
		return nil, nil
	}
	infraPrometheus.ConversionsRecorded.WithLabelValues("failed").Inc()
	return nil, fmt.Errorf("lookup conversion: %w", err)
}

func (r *conversionRecorder) landingPage(ctx context.Context, sessionID string) *string {
	if sessionID == "" {
		return nil
	}
	click, err := r.clicks.GetBySessionID(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrClickNotFound) {
			r.opts.logger.Warn("click lookup for conversion failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		return nil
	}
	page := click.LandingPage
	return &page
}

// RecordConversionBestEffort records a conversion from a path where tracking
// must never fail the caller. Errors are logged and dropped.
func RecordConversionBestEffort(ctx context.Context, recorder ConversionRecorder, logger *zap.Logger, in RecordConversionInput) {
	event, created, err := recorder.RecordConversion(ctx, in)
	if err != nil {
		logger.Error("failed to record conversion",
			zap.String("partner_id", in.PartnerID),
			zap.String("order_id", in.OrderID),
			zap.Error(err),
		)
		return
	}
	logger.Info("conversion tracked",
		zap.String("partner_id", event.PartnerID),
		zap.String("order_id", event.OrderID),
		zap.Float64("commission", event.Commission),
		zap.Bool("created", created),
	)
}
