package repository

import (
	"context"
	"errors"
	"time"

	"github.com/youwow/affiliate/internal/app/model"
	"gorm.io/gorm"
)

// ErrClickNotFound signals that no matching click exists.
var ErrClickNotFound = errors.New("click not found")

// ClickEventRepository defines the data access contract for the click ledger.
// Clicks are append-only.
type ClickEventRepository interface {
	Create(ctx context.Context, event *model.ClickEvent) error
	// FindRecent returns the newest click for (partnerID, ip) clicked within
	// [since, until].
	FindRecent(ctx context.Context, partnerID, ip string, since, until time.Time) (*model.ClickEvent, error)
	// GetBySessionID returns the earliest click recorded for sessionID.
	GetBySessionID(ctx context.Context, sessionID string) (*model.ClickEvent, error)
}

type clickEventRepository struct {
	db *gorm.DB
}

// NewClickEventRepository returns a GORM-backed ClickEventRepository.
func NewClickEventRepository(db *gorm.DB) ClickEventRepository {
	return &clickEventRepository{db: db}
}

func (r *clickEventRepository) Create(ctx context.Context, event *model.ClickEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *clickEventRepository) FindRecent(ctx context.Context, partnerID, ip string, since, until time.Time) (*model.ClickEvent, error) {
	var event model.ClickEvent
	err := r.db.WithContext(ctx).
		Where("partner_id = ? AND ip_address = ? AND clicked_at BETWEEN ? AND ?", partnerID, ip, since, until).
		Order("clicked_at DESC").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClickNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *clickEventRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.ClickEvent, error) {
	var event model.ClickEvent
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("clicked_at ASC").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClickNotFound
		}
		return nil, err
	}
	return &event, nil
}
