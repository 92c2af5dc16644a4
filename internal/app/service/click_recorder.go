package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/youwow/affiliate/internal/app/keylock"
	"github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/repository"
	infraPrometheus "github.com/youwow/affiliate/internal/infra/prometheus"
	"go.uber.org/zap"
)

// ClickDedupWindow is the period during which repeated clicks from the same
// address for the same partner collapse into the first one.
const ClickDedupWindow = 60 * time.Second

// RecordClickInput captures one attributed visit.
type RecordClickInput struct {
	PartnerID   string
	SessionID   string
	LandingPage string
	UTM         model.UTM
	ClientIP    string
	UserAgent   string
	Referrer    string

	// ClickedAt is when the visit happened. Zero, or a time in the future,
	// means now.
	ClickedAt time.Time
}

// ClickRecorder appends clicks to the ledger.
type ClickRecorder interface {
	// RecordClick stores a click, or returns the click already recorded for the
	// same partner and address inside ClickDedupWindow. created reports which.
	RecordClick(ctx context.Context, in RecordClickInput) (event *model.ClickEvent, created bool, err error)
}

type clickRecorder struct {
	partners repository.PartnerRepository
	clicks   repository.ClickEventRepository
	locks    *keylock.Striped
	opts     options
}

// NewClickRecorder returns a ClickRecorder backed by the given repositories.
func NewClickRecorder(partners repository.PartnerRepository, clicks repository.ClickEventRepository, opts ...Option) ClickRecorder {
	return &clickRecorder{
		partners: partners,
		clicks:   clicks,
		locks:    keylock.New(0),
		opts:     buildOptions(opts),
	}
}

func (r *clickRecorder) RecordClick(ctx context.Context, in RecordClickInput) (*model.ClickEvent, bool, error) {
	in.PartnerID = strings.TrimSpace(in.PartnerID)
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.PartnerID == "" || in.SessionID == "" {
		infraPrometheus.ClicksRecorded.WithLabelValues("rejected").Inc()
		return nil, false, fmt.Errorf("%w: partnerId and sessionId are required", ErrValidation)
	}

	if _, err := activePartner(ctx, r.partners, in.PartnerID); err != nil {
		infraPrometheus.ClicksRecorded.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, false, err
	}

	// Serialize lookup+insert for the same partner/address in this process.
	unlock := r.locks.Lock(in.PartnerID + "|" + in.ClientIP)
	defer unlock()

	clickedAt := r.opts.now().UTC()
	if !in.ClickedAt.IsZero() && in.ClickedAt.Before(clickedAt) {
		clickedAt = in.ClickedAt.UTC()
	}
	existing, err := r.clicks.FindRecent(ctx, in.PartnerID, in.ClientIP, clickedAt.Add(-ClickDedupWindow), clickedAt)
	switch {
	case err == nil:
		infraPrometheus.ClicksRecorded.WithLabelValues("deduplicated").Inc()
		r.opts.logger.Debug("click deduplicated",
			zap.String("partner_id", in.PartnerID),
			zap.String("existing_id", existing.ID),
		)
		return existing, false, nil
	case !errors.Is(err, repository.ErrClickNotFound):
		infraPrometheus.ClicksRecorded.WithLabelValues("failed").Inc()
		return nil, false, fmt.Errorf("lookup recent click: %w", err)
	}

	event := &model.ClickEvent{
		ID:          uuid.NewString(),
		PartnerID:   in.PartnerID,
		SessionID:   in.SessionID,
		IPAddress:   in.ClientIP,
		LandingPage: in.LandingPage,
		UserAgent:   in.UserAgent,
		Referrer:    in.Referrer,
		UTM:         in.UTM,
		ClickedAt:   clickedAt,
	}
	if err := r.clicks.Create(ctx, event); err != nil {
		infraPrometheus.ClicksRecorded.WithLabelValues("failed").Inc()
		return nil, false, fmt.Errorf("create click: %w", err)
	}

	infraPrometheus.ClicksRecorded.WithLabelValues("created").Inc()
	return event, true, nil
}

// activePartner loads id and fails with repository.ErrPartnerNotFound or
// ErrPartnerInactive when it may not accrue new events.
func activePartner(ctx context.Context, partners repository.PartnerRepository, id string) (*model.Partner, error) {
	partner, err := partners.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load partner %s: %w", id, err)
	}
	if !partner.IsActive() {
		return nil, fmt.Errorf("partner %s is %s: %w", id, partner.Status, ErrPartnerInactive)
	}
	return partner, nil
}

func outcomeLabel(err error) string {
	if IsPermanent(err) {
		return "rejected"
	}
	return "failed"
}

// IsPermanent reports whether err is a precondition failure that retrying
// cannot fix.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrPartnerInactive) ||
		errors.Is(err, repository.ErrPartnerNotFound)
}
