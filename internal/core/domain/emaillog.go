package domain

import (
	"time"

	"github.com/google/uuid"
)

// EmailLogEntry records one attempted send. Entries are append-only and
// used only for observability; they are never read back by dispatch.
type EmailLogEntry struct {
	ID         int64
	CampaignID uuid.UUID
	Timestamp  time.Time
	Sender     string
	Recipient  string
	Subject    string
	Success    bool
	Error      string
}
