package port

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"mailrun/internal/core/domain"
)

var (
	// ErrNotInFlight is the ledger's defensive state check: a commit was
	// attempted on a record that was not reserved first.
	ErrNotInFlight = errors.New("recipient record is not in flight")

	ErrCampaignNotFound = errors.New("campaign not found")
	ErrSenderNotFound   = errors.New("sender not found")
)

// SendOutcome is the result of one transport attempt, recorded by the
// ledger together with an append-only email log entry.
type SendOutcome struct {
	CampaignID uuid.UUID
	Email      string
	Sender     string
	Subject    string
	Success    bool
	Error      string
}

// StaleRecipient identifies an in-flight record released by the recovery
// procedure.
type StaleRecipient struct {
	CampaignID uuid.UUID
	Email      string
	ReleasedAt time.Time
}

// CampaignProgress aggregates ledger state counts for dashboards and the
// completion check.
type CampaignProgress struct {
	Total    int
	Sent     int
	Failed   int
	InFlight int
	Unseen   int
}

// Pending is the number of recipients not yet in a terminal state.
func (p CampaignProgress) Pending() int {
	return p.Unseen + p.Failed + p.InFlight
}

// LedgerRepository owns every recipient state transition. Reserve is the
// sole mechanism preventing duplicate delivery and must be atomic with
// respect to concurrent callers on the same (campaign, email) pair.
// Implementations normalize the email before every lookup.
type LedgerRepository interface {
	// Reserve atomically moves a record from {unseen, failed} to in_flight
	// with the current timestamp. Returns false without mutation when the
	// record is already in flight or sent.
	Reserve(ctx context.Context, campaignID uuid.UUID, email string) (bool, error)

	// Commit moves an in-flight record to sent or failed and appends the
	// email log entry in the same transaction. Returns ErrNotInFlight when
	// the record was not reserved.
	Commit(ctx context.Context, outcome SendOutcome) error

	// NextCandidate returns the first record in source order with state
	// unseen or failed and position greater than afterPosition, or nil
	// when none remain.
	NextCandidate(ctx context.Context, campaignID uuid.UUID, afterPosition int) (*domain.RecipientRecord, error)

	// ReleaseStale moves in-flight records reserved before olderThan back
	// to failed so they become retriable again. Used only by the recovery
	// procedure at process start.
	ReleaseStale(ctx context.Context, olderThan time.Time) ([]StaleRecipient, error)

	// InsertRecipients adds deduplicated, normalized records. Existing
	// (campaign, email) pairs are left untouched. Returns how many rows
	// were actually inserted.
	InsertRecipients(ctx context.Context, records []domain.RecipientRecord) (int, error)

	Progress(ctx context.Context, campaignID uuid.UUID) (CampaignProgress, error)
}

// QuotaRepository enforces per-sender daily send caps. TryConsume must be
// atomic: the counter never exceeds the limit even under concurrent
// dispatch across campaigns sharing a sender. Day keys come from
// domain.DayKey, so rollover is implicit.
type QuotaRepository interface {
	// TryConsume increments the (sender, campaign, day) counter when it is
	// below limit and reports whether a send slot was claimed.
	TryConsume(ctx context.Context, sender string, campaignID uuid.UUID, day string, limit int) (bool, error)

	// Remaining is a read-only view for rotation and analytics.
	Remaining(ctx context.Context, sender string, campaignID uuid.UUID, day string, limit int) (int, error)

	// UsageForDay returns per-sender counts for one campaign and day.
	UsageForDay(ctx context.Context, campaignID uuid.UUID, day string) (map[string]int, error)
}

// CampaignRepository persists campaign documents. Status writes from the
// UI are picked up by the dispatch loop on its next cycle; there is no
// push channel between the two.
type CampaignRepository interface {
	Create(ctx context.Context, c *domain.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	List(ctx context.Context) ([]domain.Campaign, error)
	ListByStatus(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error)
	Update(ctx context.Context, c *domain.Campaign) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error
	ClearScheduledDate(ctx context.Context, id uuid.UUID) error
	// UpdateSenderCursor persists the round-robin position so rotation is
	// stable across restarts and concurrent workers.
	UpdateSenderCursor(ctx context.Context, id uuid.UUID, cursor int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SenderRepository persists sender accounts and per-campaign pools.
type SenderRepository interface {
	Add(ctx context.Context, s *domain.Sender) error
	GetByEmail(ctx context.Context, email string) (*domain.Sender, error)
	List(ctx context.Context) ([]domain.Sender, error)
	Delete(ctx context.Context, email string) error
	// AssignPool replaces a campaign's ordered sender pool.
	AssignPool(ctx context.Context, campaignID uuid.UUID, emails []string) error
	// PoolForCampaign returns the assigned pool in rotation order.
	PoolForCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Sender, error)
}

// LogRepository reads the append-only email log for observability.
type LogRepository interface {
	Recent(ctx context.Context, limit int) ([]domain.EmailLogEntry, error)
}
