package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

// CampaignRepository implements port.CampaignRepository on PostgreSQL.
type CampaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository returns a new repository instance.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

const campaignColumns = `id, name, subject, html_template, status, daily_limit,
    send_delay_seconds, schedule_enabled, schedule_time, scheduled_date,
    sender_cursor, created_at, updated_at`

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		c            domain.Campaign
		delaySeconds int
	)
	err := row.Scan(&c.ID, &c.Name, &c.Subject, &c.HTMLTemplate, &c.Status,
		&c.DailyLimit, &delaySeconds, &c.ScheduleEnabled, &c.ScheduleTime,
		&c.ScheduledDate, &c.SenderCursor, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.SendDelay = time.Duration(delaySeconds) * time.Second
	return &c, nil
}

func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO campaigns
            (id, name, subject, html_template, status, daily_limit, send_delay_seconds,
             schedule_enabled, schedule_time, scheduled_date, sender_cursor, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())`,
		c.ID, c.Name, c.Subject, c.HTMLTemplate, c.Status, c.DailyLimit,
		int(c.SendDelay.Seconds()), c.ScheduleEnabled, c.ScheduleTime,
		c.ScheduledDate, c.SenderCursor)
	return err
}

func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrCampaignNotFound
	}
	return c, err
}

func (r *CampaignRepository) List(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return collectCampaigns(rows)
}

func (r *CampaignRepository) ListByStatus(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	return collectCampaigns(rows)
}

func collectCampaigns(rows pgx.Rows) ([]domain.Campaign, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Campaign, error) {
		c, err := scanCampaign(row)
		if err != nil {
			return domain.Campaign{}, err
		}
		return *c, nil
	})
}

func (r *CampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE campaigns
        SET name = $2, subject = $3, html_template = $4, status = $5, daily_limit = $6,
            send_delay_seconds = $7, schedule_enabled = $8, schedule_time = $9,
            scheduled_date = $10, updated_at = now()
        WHERE id = $1`,
		c.ID, c.Name, c.Subject, c.HTMLTemplate, c.Status, c.DailyLimit,
		int(c.SendDelay.Seconds()), c.ScheduleEnabled, c.ScheduleTime, c.ScheduledDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return port.ErrCampaignNotFound
	}
	return nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return port.ErrCampaignNotFound
	}
	return nil
}

func (r *CampaignRepository) ClearScheduledDate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET scheduled_date = NULL, updated_at = now() WHERE id = $1`, id)
	return err
}

func (r *CampaignRepository) UpdateSenderCursor(ctx context.Context, id uuid.UUID, cursor int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET sender_cursor = $2 WHERE id = $1`, id, cursor)
	return err
}

func (r *CampaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return port.ErrCampaignNotFound
	}
	return nil
}
