package port

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"mailrun/internal/core/domain"
)

// CreateCampaignInput carries the UI-provided fields for a new draft
// campaign. Zero values fall back to the documented defaults (daily limit
// 120, 30s delay, "10:00" schedule time).
type CreateCampaignInput struct {
	Name            string
	Subject         string
	HTMLTemplate    string
	DailyLimit      int
	SendDelay       time.Duration
	ScheduleEnabled bool
	ScheduleTime    string
	ScheduledDate   *time.Time
}

// IngestResult summarizes one lead upload.
type IngestResult struct {
	Rows      int // data rows in the CSV
	Unique    int // rows surviving in-upload deduplication
	Inserted  int // new ledger entries (existing pairs untouched)
	Emailless int // rows skipped for missing address
}

// CampaignStats is the dashboard view of one campaign.
type CampaignStats struct {
	Campaign   domain.Campaign
	Progress   CampaignProgress
	QuotaToday map[string]int // sends per sender today
}

// CampaignUseCase is the primary port for the control API. All campaign
// and sender management flows through here; the dispatch loop itself only
// observes the store.
type CampaignUseCase interface {
	CreateCampaign(ctx context.Context, in CreateCampaignInput) (*domain.Campaign, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)
	UpdateCampaign(ctx context.Context, c *domain.Campaign) error
	DeleteCampaign(ctx context.Context, id uuid.UUID) error

	StartCampaign(ctx context.Context, id uuid.UUID) error
	PauseCampaign(ctx context.Context, id uuid.UUID) error
	ResumeCampaign(ctx context.Context, id uuid.UUID) error

	// UploadLeads ingests a CSV of recipients: the email column is
	// detected, addresses are normalized and duplicates within the upload
	// collapse to their first occurrence.
	UploadLeads(ctx context.Context, campaignID uuid.UUID, csv io.Reader) (*IngestResult, error)

	AssignSenders(ctx context.Context, campaignID uuid.UUID, emails []string) error
	AddSender(ctx context.Context, s *domain.Sender) error
	ListSenders(ctx context.Context) ([]domain.Sender, error)
	DeleteSender(ctx context.Context, email string) error
	// CheckSenderHealth probes the credential against the transport. The
	// result is advisory and never gates dispatch.
	CheckSenderHealth(ctx context.Context, email string) error

	Stats(ctx context.Context, campaignID uuid.UUID) (*CampaignStats, error)
	RecentLogs(ctx context.Context, limit int) ([]domain.EmailLogEntry, error)
}
