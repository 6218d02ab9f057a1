package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecipientState tracks delivery progress for one (campaign, email) pair.
// A record moves unseen → in_flight → {sent, failed}; failed is retriable
// and may re-enter in_flight, sent is terminal and never re-entered.
type RecipientState string

const (
	RecipientUnseen   RecipientState = "unseen"
	RecipientInFlight RecipientState = "in_flight"
	RecipientSent     RecipientState = "sent"
	RecipientFailed   RecipientState = "failed"
)

// RecipientRecord is one ledger entry. Position preserves source order
// from the uploaded lead list; Fields holds the raw CSV row used for
// template personalization.
type RecipientRecord struct {
	CampaignID uuid.UUID
	Email      string
	Position   int
	Fields     map[string]string
	State      RecipientState
	ReservedAt *time.Time
	Attempts   int
	LastError  string
	UpdatedAt  time.Time
}

// NormalizeEmail lowercases and trims an address so visually distinct but
// equal addresses collide on the same ledger entry. Applied before every
// ledger lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
