package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

// Defaults applied to new campaigns when the UI omits a value.
const (
	DefaultDailyLimit   = 120
	DefaultSendDelay    = 30 * time.Second
	DefaultScheduleTime = "10:00"
	DefaultSubject      = "Your Subject Here"
)

// CampaignUseCase implements port.CampaignUseCase. It owns all campaign
// and sender management; the dispatch loop never goes through here, the
// two sides meet only in the store.
type CampaignUseCase struct {
	campaigns port.CampaignRepository
	senders   port.SenderRepository
	ledger    port.LedgerRepository
	quota     port.QuotaRepository
	logs      port.LogRepository
	health    port.TransportHealth
}

// New creates the usecase. health may be nil when no transport probe is
// available; CheckSenderHealth then reports it unsupported.
func New(
	campaigns port.CampaignRepository,
	senders port.SenderRepository,
	ledger port.LedgerRepository,
	quota port.QuotaRepository,
	logs port.LogRepository,
	health port.TransportHealth,
) *CampaignUseCase {
	return &CampaignUseCase{
		campaigns: campaigns,
		senders:   senders,
		ledger:    ledger,
		quota:     quota,
		logs:      logs,
		health:    health,
	}
}

func (u *CampaignUseCase) CreateCampaign(ctx context.Context, in port.CreateCampaignInput) (*domain.Campaign, error) {
	if in.Name == "" {
		return nil, errors.New("campaign name is required")
	}
	c := &domain.Campaign{
		ID:              uuid.New(),
		Name:            in.Name,
		Subject:         in.Subject,
		HTMLTemplate:    in.HTMLTemplate,
		Status:          domain.StatusDraft,
		DailyLimit:      in.DailyLimit,
		SendDelay:       in.SendDelay,
		ScheduleEnabled: in.ScheduleEnabled,
		ScheduleTime:    in.ScheduleTime,
		ScheduledDate:   in.ScheduledDate,
	}
	if c.Subject == "" {
		c.Subject = DefaultSubject
	}
	if c.DailyLimit <= 0 {
		c.DailyLimit = DefaultDailyLimit
	}
	if c.SendDelay <= 0 {
		c.SendDelay = DefaultSendDelay
	}
	if c.ScheduleTime == "" {
		c.ScheduleTime = DefaultScheduleTime
	}
	if err := u.campaigns.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *CampaignUseCase) GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	return u.campaigns.GetByID(ctx, id)
}

func (u *CampaignUseCase) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return u.campaigns.List(ctx)
}

func (u *CampaignUseCase) UpdateCampaign(ctx context.Context, c *domain.Campaign) error {
	return u.campaigns.Update(ctx, c)
}

func (u *CampaignUseCase) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	return u.campaigns.Delete(ctx, id)
}

// StartCampaign validates the draft and moves it to running. The dispatch
// loop picks it up on its next cycle.
func (u *CampaignUseCase) StartCampaign(ctx context.Context, id uuid.UUID) error {
	c, err := u.campaigns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	pool, err := u.senders.PoolForCampaign(ctx, id)
	if err != nil {
		return err
	}
	prog, err := u.ledger.Progress(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Start(len(pool), prog.Total); err != nil {
		return err
	}
	return u.campaigns.UpdateStatus(ctx, id, c.Status)
}

// PauseCampaign requests a pause; it takes effect at the dispatch loop's
// next iteration boundary, an in-flight send always completes first.
func (u *CampaignUseCase) PauseCampaign(ctx context.Context, id uuid.UUID) error {
	c, err := u.campaigns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Pause(); err != nil {
		return err
	}
	return u.campaigns.UpdateStatus(ctx, id, c.Status)
}

// ResumeCampaign returns a paused campaign to running. Ledger and quota
// state are untouched: already-sent recipients stay sent and today's
// counters keep counting.
func (u *CampaignUseCase) ResumeCampaign(ctx context.Context, id uuid.UUID) error {
	c, err := u.campaigns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Resume(); err != nil {
		return err
	}
	return u.campaigns.UpdateStatus(ctx, id, c.Status)
}

func (u *CampaignUseCase) AssignSenders(ctx context.Context, campaignID uuid.UUID, emails []string) error {
	if _, err := u.campaigns.GetByID(ctx, campaignID); err != nil {
		return err
	}
	for _, email := range emails {
		if _, err := u.senders.GetByEmail(ctx, email); err != nil {
			return fmt.Errorf("sender %s: %w", email, err)
		}
	}
	return u.senders.AssignPool(ctx, campaignID, emails)
}

func (u *CampaignUseCase) AddSender(ctx context.Context, s *domain.Sender) error {
	s.Email = domain.NormalizeEmail(s.Email)
	if s.Email == "" {
		return errors.New("sender email is required")
	}
	if s.Password == "" {
		return errors.New("sender password is required")
	}
	return u.senders.Add(ctx, s)
}

func (u *CampaignUseCase) ListSenders(ctx context.Context) ([]domain.Sender, error) {
	return u.senders.List(ctx)
}

func (u *CampaignUseCase) DeleteSender(ctx context.Context, email string) error {
	return u.senders.Delete(ctx, email)
}

func (u *CampaignUseCase) CheckSenderHealth(ctx context.Context, email string) error {
	if u.health == nil {
		return errors.New("health probe not configured")
	}
	s, err := u.senders.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return u.health.CheckSender(ctx, *s)
}

// Stats aggregates the ledger progress and today's quota usage for the
// dashboard.
func (u *CampaignUseCase) Stats(ctx context.Context, campaignID uuid.UUID) (*port.CampaignStats, error) {
	c, err := u.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	prog, err := u.ledger.Progress(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	usage, err := u.quota.UsageForDay(ctx, campaignID, domain.DayKey(time.Now()))
	if err != nil {
		return nil, err
	}
	return &port.CampaignStats{Campaign: *c, Progress: prog, QuotaToday: usage}, nil
}

func (u *CampaignUseCase) RecentLogs(ctx context.Context, limit int) ([]domain.EmailLogEntry, error) {
	return u.logs.Recent(ctx, limit)
}

var _ port.CampaignUseCase = (*CampaignUseCase)(nil)
