package repository

import (
	"context"
	"errors"

	"github.com/youwow/affiliate/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrConversionNotFound signals that no conversion exists for the order.
	ErrConversionNotFound = errors.New("conversion not found")
	// ErrConversionExists signals an insert racing another for the same order.
	ErrConversionExists = errors.New("conversion already recorded for order")
)

// ConversionRepository defines the data access contract for conversions.
type ConversionRepository interface {
	Create(ctx context.Context, event *model.ConversionEvent) error
	GetByOrderID(ctx context.Context, orderID string) (*model.ConversionEvent, error)
}

type conversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository returns a GORM-backed ConversionRepository.
func NewConversionRepository(db *gorm.DB) ConversionRepository {
	return &conversionRepository{db: db}
}

func (r *conversionRepository) Create(ctx context.Context, event *model.ConversionEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConversionExists
		}
		return err
	}
	return nil
}

func (r *conversionRepository) GetByOrderID(ctx context.Context, orderID string) (*model.ConversionEvent, error) {
	var event model.ConversionEvent
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversionNotFound
		}
		return nil, err
	}
	return &event, nil
}
