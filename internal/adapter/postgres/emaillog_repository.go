package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailrun/internal/core/domain"
)

// EmailLogRepository reads the append-only email log; writes happen
// inside the ledger commit transaction.
type EmailLogRepository struct {
	pool *pgxpool.Pool
}

// NewEmailLogRepository returns a new repository instance.
func NewEmailLogRepository(pool *pgxpool.Pool) *EmailLogRepository {
	return &EmailLogRepository{pool: pool}
}

// Recent returns the newest entries first, capped at limit.
func (r *EmailLogRepository) Recent(ctx context.Context, limit int) ([]domain.EmailLogEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	rows, err := r.pool.Query(ctx, `
        SELECT id, campaign_id, ts, sender, recipient, subject, success, error
        FROM email_log
        ORDER BY ts DESC
        LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.EmailLogEntry, error) {
		var e domain.EmailLogEntry
		err := row.Scan(&e.ID, &e.CampaignID, &e.Timestamp, &e.Sender,
			&e.Recipient, &e.Subject, &e.Success, &e.Error)
		return e, err
	})
}
