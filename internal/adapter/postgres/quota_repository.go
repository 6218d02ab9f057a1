package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailrun/internal/core/port"
)

// QuotaRepository implements port.QuotaRepository on PostgreSQL. The
// consume path is one conditional upsert, so the counter can never pass
// the limit no matter how many dispatch workers race on a sender.
type QuotaRepository struct {
	pool *pgxpool.Pool
}

// NewQuotaRepository returns a new repository instance.
func NewQuotaRepository(pool *pgxpool.Pool) *QuotaRepository {
	return &QuotaRepository{pool: pool}
}

// TryConsume claims one send slot for (sender, campaign, day). The upsert
// only fires below the limit; a conflicting row at the limit produces no
// returned row and no mutation.
func (r *QuotaRepository) TryConsume(ctx context.Context, sender string, campaignID uuid.UUID, day string, limit int) (bool, error) {
	if limit < 1 {
		return false, nil
	}
	var count int
	err := r.pool.QueryRow(ctx, `
        INSERT INTO quota_counters (sender_email, campaign_id, day, count)
        VALUES ($1, $2, $3, 1)
        ON CONFLICT (sender_email, campaign_id, day)
        DO UPDATE SET count = quota_counters.count + 1
        WHERE quota_counters.count < $4
        RETURNING count`,
		sender, campaignID, day, limit).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Remaining reports how many sends are left today for a sender. A missing
// counter row means the full limit is available.
func (r *QuotaRepository) Remaining(ctx context.Context, sender string, campaignID uuid.UUID, day string, limit int) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
        SELECT count FROM quota_counters
        WHERE sender_email = $1 AND campaign_id = $2 AND day = $3`,
		sender, campaignID, day).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return limit, nil
	}
	if err != nil {
		return 0, err
	}
	if count >= limit {
		return 0, nil
	}
	return limit - count, nil
}

// UsageForDay returns today's per-sender counts for one campaign.
func (r *QuotaRepository) UsageForDay(ctx context.Context, campaignID uuid.UUID, day string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT sender_email, count FROM quota_counters
        WHERE campaign_id = $1 AND day = $2`,
		campaignID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := make(map[string]int)
	for rows.Next() {
		var (
			sender string
			count  int
		)
		if err := rows.Scan(&sender, &count); err != nil {
			return nil, err
		}
		usage[sender] = count
	}
	return usage, rows.Err()
}

var _ port.QuotaRepository = (*QuotaRepository)(nil)
