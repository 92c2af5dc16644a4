package repository

import (
	"context"
	"errors"

	"github.com/youwow/affiliate/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrPartnerNotFound signals that the requested partner does not exist.
	ErrPartnerNotFound = errors.New("partner not found")
	// ErrPartnerExists signals a create with an id already in use.
	ErrPartnerExists = errors.New("partner already exists")
)

// PartnerRepository defines the data access contract for partners.
// Partners are never deleted; archiving is a status change.
type PartnerRepository interface {
	Create(ctx context.Context, partner *model.Partner) error
	GetByID(ctx context.Context, id string) (*model.Partner, error)
	List(ctx context.Context, status *model.PartnerStatus) ([]model.Partner, error)
	ListIDs(ctx context.Context) ([]string, error)
	UpdateStatus(ctx context.Context, id string, status model.PartnerStatus) (*model.Partner, error)
}

type partnerRepository struct {
	db *gorm.DB
}

// NewPartnerRepository returns a GORM-backed PartnerRepository.
func NewPartnerRepository(db *gorm.DB) PartnerRepository {
	return &partnerRepository{db: db}
}

func (r *partnerRepository) Create(ctx context.Context, partner *model.Partner) error {
	if err := r.db.WithContext(ctx).Create(partner).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPartnerExists
		}
		return err
	}
	return nil
}

func (r *partnerRepository) GetByID(ctx context.Context, id string) (*model.Partner, error) {
	var partner model.Partner
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&partner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPartnerNotFound
		}
		return nil, err
	}
	return &partner, nil
}

func (r *partnerRepository) List(ctx context.Context, status *model.PartnerStatus) ([]model.Partner, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var result []model.Partner
	if err := q.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *partnerRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.Partner{}).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *partnerRepository) UpdateStatus(ctx context.Context, id string, status model.PartnerStatus) (*model.Partner, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Partner{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrPartnerNotFound
	}
	return r.GetByID(ctx, id)
}
