package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

// SenderRepository implements port.SenderRepository on PostgreSQL.
type SenderRepository struct {
	pool *pgxpool.Pool
}

// NewSenderRepository returns a new repository instance.
func NewSenderRepository(pool *pgxpool.Pool) *SenderRepository {
	return &SenderRepository{pool: pool}
}

func (r *SenderRepository) Add(ctx context.Context, s *domain.Sender) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO senders (email, password, created_at)
        VALUES ($1, $2, now())
        ON CONFLICT (email) DO UPDATE SET password = EXCLUDED.password`,
		domain.NormalizeEmail(s.Email), s.Password)
	return err
}

func (r *SenderRepository) GetByEmail(ctx context.Context, email string) (*domain.Sender, error) {
	var s domain.Sender
	err := r.pool.QueryRow(ctx,
		`SELECT email, password, created_at FROM senders WHERE email = $1`,
		domain.NormalizeEmail(email)).Scan(&s.Email, &s.Password, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrSenderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SenderRepository) List(ctx context.Context) ([]domain.Sender, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT email, password, created_at FROM senders ORDER BY email`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Sender, error) {
		var s domain.Sender
		err := row.Scan(&s.Email, &s.Password, &s.CreatedAt)
		return s, err
	})
}

func (r *SenderRepository) Delete(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM senders WHERE email = $1`,
		domain.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return port.ErrSenderNotFound
	}
	return nil
}

// AssignPool replaces a campaign's ordered sender pool in one transaction.
func (r *SenderRepository) AssignPool(ctx context.Context, campaignID uuid.UUID, emails []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx,
		`DELETE FROM campaign_senders WHERE campaign_id = $1`, campaignID); err != nil {
		return err
	}
	for i, email := range emails {
		if _, err = tx.Exec(ctx, `
            INSERT INTO campaign_senders (campaign_id, sender_email, position)
            VALUES ($1, $2, $3)`,
			campaignID, domain.NormalizeEmail(email), i); err != nil {
			return err
		}
	}
	return nil
}

// PoolForCampaign returns the assigned senders in rotation order.
func (r *SenderRepository) PoolForCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Sender, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT s.email, s.password, s.created_at
        FROM campaign_senders cs
        JOIN senders s ON s.email = cs.sender_email
        WHERE cs.campaign_id = $1
        ORDER BY cs.position`,
		campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Sender, error) {
		var s domain.Sender
		err := row.Scan(&s.Email, &s.Password, &s.CreatedAt)
		return s, err
	})
}
