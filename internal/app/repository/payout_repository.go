package repository

import (
	"context"
	"errors"
	"time"

	"github.com/youwow/affiliate/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNothingToPayOut signals that the period holds no unpaid conversions.
var ErrNothingToPayOut = errors.New("no unpaid conversions in period")

// PayoutRepository defines the data access contract for payouts.
type PayoutRepository interface {
	// Settle creates payout from the partner's unpaid conversions created in
	// [from, to) and flags them paid, atomically.
	Settle(ctx context.Context, payout *model.Payout) error
	List(ctx context.Context, partnerID string) ([]model.Payout, error)
}

type payoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository returns a GORM-backed PayoutRepository.
func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) Settle(ctx context.Context, payout *model.Payout) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conversions []model.ConversionEvent
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("partner_id = ? AND is_paid_out = ? AND created_at >= ? AND created_at < ?",
				payout.PartnerID, false, payout.PeriodStart, payout.PeriodEnd).
			Find(&conversions).Error; err != nil {
			return err
		}
		if len(conversions) == 0 {
			return ErrNothingToPayOut
		}

		ids := make([]string, len(conversions))
		var total float64
		for i, c := range conversions {
			ids[i] = c.ID
			total += c.Commission
		}
		payout.Amount = total
		payout.ConversionCount = len(conversions)
		if payout.CreatedAt.IsZero() {
			payout.CreatedAt = time.Now().UTC()
		}

		if err := tx.Create(payout).Error; err != nil {
			return err
		}

		return tx.Model(&model.ConversionEvent{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"is_paid_out": true,
				"payout_id":   payout.ID,
			}).Error
	})
}

func (r *payoutRepository) List(ctx context.Context, partnerID string) ([]model.Payout, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if partnerID != "" {
		q = q.Where("partner_id = ?", partnerID)
	}

	var result []model.Payout
	if err := q.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}
