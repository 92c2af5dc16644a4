package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/youwow/affiliate/internal/app/model"
)

// ReportRepository runs read-only aggregate queries directly on the pgx pool.
type ReportRepository interface {
	PartnerStats(ctx context.Context, partnerID string) (*model.PartnerStats, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository returns a pgx-backed ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

const partnerStatsQuery = `
SELECT
	(SELECT COUNT(*) FROM click_events WHERE partner_id = @partner_id),
	COUNT(c.id),
	COALESCE(SUM(c.amount), 0)::float8,
	COALESCE(SUM(c.commission), 0)::float8,
	COALESCE(SUM(c.commission) FILTER (WHERE NOT c.is_paid_out), 0)::float8
FROM conversion_events c
WHERE c.partner_id = @partner_id`

func (r *reportRepository) PartnerStats(ctx context.Context, partnerID string) (*model.PartnerStats, error) {
	stats := model.PartnerStats{PartnerID: partnerID}
	err := r.pool.QueryRow(ctx, partnerStatsQuery, pgx.NamedArgs{"partner_id": partnerID}).Scan(
		&stats.Clicks,
		&stats.Conversions,
		&stats.Revenue,
		&stats.CommissionEarned,
		&stats.CommissionUnpaid,
	)
	if err != nil {
		return nil, err
	}

	if stats.Clicks > 0 {
		stats.ConversionRatePct = float64(stats.Conversions) / float64(stats.Clicks) * 100
	}
	return &stats, nil
}
