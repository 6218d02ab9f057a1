package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

// LedgerRepository implements port.LedgerRepository on PostgreSQL. The
// reserve and commit paths are single conditional UPDATEs keyed by the
// (campaign_id, email) primary key, which gives the compare-and-set
// atomicity the dispatch invariants rely on.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository returns a new repository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Reserve claims a recipient for sending. Only one of any number of
// concurrent callers observes rows-affected == 1; a record already in
// flight or sent is left untouched.
func (r *LedgerRepository) Reserve(ctx context.Context, campaignID uuid.UUID, email string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
        UPDATE recipients
        SET state = 'in_flight', reserved_at = now(), updated_at = now()
        WHERE campaign_id = $1 AND email = $2 AND state IN ('unseen', 'failed')`,
		campaignID, domain.NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Commit finalizes an in-flight record and appends the email log entry in
// one transaction. A record not in flight fails with port.ErrNotInFlight
// and nothing is written.
func (r *LedgerRepository) Commit(ctx context.Context, outcome port.SendOutcome) error {
	email := domain.NormalizeEmail(outcome.Email)
	state := domain.RecipientFailed
	if outcome.Success {
		state = domain.RecipientSent
	}

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

	var tag pgconn.CommandTag
	tag, err = tx.Exec(ctx, `
        UPDATE recipients
        SET state = $3, reserved_at = NULL, attempts = attempts + 1, last_error = $4, updated_at = now()
        WHERE campaign_id = $1 AND email = $2 AND state = 'in_flight'`,
		outcome.CampaignID, email, state, outcome.Error)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = port.ErrNotInFlight
		return err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO email_log (campaign_id, ts, sender, recipient, subject, success, error)
        VALUES ($1, now(), $2, $3, $4, $5, $6)`,
		outcome.CampaignID, outcome.Sender, email, outcome.Subject, outcome.Success, outcome.Error)
	return err
}

// NextCandidate returns the next retriable recipient in source order.
func (r *LedgerRepository) NextCandidate(ctx context.Context, campaignID uuid.UUID, afterPosition int) (*domain.RecipientRecord, error) {
	var (
		rec    domain.RecipientRecord
		fields []byte
	)
	err := r.pool.QueryRow(ctx, `
        SELECT campaign_id, email, position, fields, state, reserved_at, attempts, last_error, updated_at
        FROM recipients
        WHERE campaign_id = $1 AND position > $2 AND state IN ('unseen', 'failed')
        ORDER BY position
        LIMIT 1`,
		campaignID, afterPosition).
		Scan(&rec.CampaignID, &rec.Email, &rec.Position, &fields, &rec.State,
			&rec.ReservedAt, &rec.Attempts, &rec.LastError, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(fields, &rec.Fields); err != nil {
		// malformed fields still allow plain sends
		rec.Fields = map[string]string{}
	}
	return &rec, nil
}

// ReleaseStale converts crashed reservations back to failed so a fresh
// reserve is required before any re-send.
func (r *LedgerRepository) ReleaseStale(ctx context.Context, olderThan time.Time) ([]port.StaleRecipient, error) {
	rows, err := r.pool.Query(ctx, `
        UPDATE recipients
        SET state = 'failed', reserved_at = NULL, last_error = 'recovered from crash', updated_at = now()
        WHERE state = 'in_flight' AND reserved_at < $1
        RETURNING campaign_id, email, updated_at`,
		olderThan)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (port.StaleRecipient, error) {
		var s port.StaleRecipient
		err := row.Scan(&s.CampaignID, &s.Email, &s.ReleasedAt)
		return s, err
	})
}

// InsertRecipients bulk-loads ledger entries. Pairs already present are
// skipped, which makes re-uploads of the same lead list idempotent.
func (r *LedgerRepository) InsertRecipients(ctx context.Context, records []domain.RecipientRecord) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	inserted := 0
	for _, rec := range records {
		fields, merr := json.Marshal(rec.Fields)
		if merr != nil {
			fields = []byte(`{}`)
		}
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx, `
            INSERT INTO recipients (campaign_id, email, position, fields, state, updated_at)
            VALUES ($1, $2, $3, $4, 'unseen', now())
            ON CONFLICT (campaign_id, email) DO NOTHING`,
			rec.CampaignID, domain.NormalizeEmail(rec.Email), rec.Position, fields)
		if err != nil {
			return 0, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// Progress aggregates ledger state counts for one campaign.
func (r *LedgerRepository) Progress(ctx context.Context, campaignID uuid.UUID) (port.CampaignProgress, error) {
	var p port.CampaignProgress
	err := r.pool.QueryRow(ctx, `
        SELECT count(*),
               count(*) FILTER (WHERE state = 'sent'),
               count(*) FILTER (WHERE state = 'failed'),
               count(*) FILTER (WHERE state = 'in_flight'),
               count(*) FILTER (WHERE state = 'unseen')
        FROM recipients
        WHERE campaign_id = $1`,
		campaignID).Scan(&p.Total, &p.Sent, &p.Failed, &p.InFlight, &p.Unseen)
	return p, err
}
