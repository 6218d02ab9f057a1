package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed inserts demo data: three sender accounts, one draft campaign with a
// sender pool, and a handful of recipients. Useful for exercising the API
// and the dispatch loop against a local relay such as MailHog.
func Seed(ctx context.Context, db *pgxpool.Pool) error {
	senders := []string{
		"outreach1@example.com",
		"outreach2@example.com",
		"outreach3@example.com",
	}
	for _, email := range senders {
		_, err := db.Exec(ctx, `INSERT INTO senders (email, password, created_at)
VALUES ($1, $2, now()) ON CONFLICT DO NOTHING`, email, "app-password")
		if err != nil {
			return err
		}
	}

	campaignID := uuid.New()
	_, err := db.Exec(ctx, `INSERT INTO campaigns
    (id, name, subject, html_template, status, daily_limit, send_delay_seconds,
     schedule_enabled, schedule_time, sender_cursor, created_at, updated_at)
VALUES ($1,$2,$3,$4,'draft',120,30,false,'10:00',0,now(),now())
ON CONFLICT DO NOTHING`,
		campaignID, "Demo outreach",
		"Your Subject Here",
		"<p>Hi {{first_name}},</p><p>We thought {{company}} might like this.</p>")
	if err != nil {
		return err
	}

	for i, email := range senders {
		_, err = db.Exec(ctx, `INSERT INTO campaign_senders (campaign_id, sender_email, position)
VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, campaignID, email, i)
		if err != nil {
			return err
		}
	}

	for i := 1; i <= 20; i++ {
		fields, _ := json.Marshal(map[string]string{
			"first_name": fmt.Sprintf("Lead %d", i),
			"company":    fmt.Sprintf("Acme %d", i),
		})
		_, err = db.Exec(ctx, `INSERT INTO recipients
    (campaign_id, email, position, fields, state, attempts)
VALUES ($1, $2, $3, $4, 'unseen', 0) ON CONFLICT DO NOTHING`,
			campaignID, fmt.Sprintf("lead%d@example.com", i), i-1, fields)
		if err != nil {
			return err
		}
	}
	return nil
}
