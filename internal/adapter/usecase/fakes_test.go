package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

// Small in-memory stores covering what the usecase touches. Dispatch
// concurrency is exercised in the runner package; here single-goroutine
// maps are enough.

type stubCampaigns struct {
	campaigns map[uuid.UUID]*domain.Campaign
}

func newStubCampaigns(cs ...*domain.Campaign) *stubCampaigns {
	m := &stubCampaigns{campaigns: make(map[uuid.UUID]*domain.Campaign)}
	for _, c := range cs {
		m.campaigns[c.ID] = c
	}
	return m
}

func (m *stubCampaigns) Create(_ context.Context, c *domain.Campaign) error {
	m.campaigns[c.ID] = c
	return nil
}

func (m *stubCampaigns) GetByID(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, port.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *stubCampaigns) List(context.Context) ([]domain.Campaign, error) { return nil, nil }

func (m *stubCampaigns) ListByStatus(context.Context, domain.CampaignStatus) ([]domain.Campaign, error) {
	return nil, nil
}

func (m *stubCampaigns) Update(_ context.Context, c *domain.Campaign) error {
	m.campaigns[c.ID] = c
	return nil
}

func (m *stubCampaigns) UpdateStatus(_ context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	c, ok := m.campaigns[id]
	if !ok {
		return port.ErrCampaignNotFound
	}
	c.Status = status
	return nil
}

func (m *stubCampaigns) ClearScheduledDate(_ context.Context, id uuid.UUID) error {
	if c, ok := m.campaigns[id]; ok {
		c.ScheduledDate = nil
	}
	return nil
}

func (m *stubCampaigns) UpdateSenderCursor(_ context.Context, id uuid.UUID, cursor int) error {
	if c, ok := m.campaigns[id]; ok {
		c.SenderCursor = cursor
	}
	return nil
}

func (m *stubCampaigns) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.campaigns, id)
	return nil
}

type stubSenders struct {
	senders map[string]*domain.Sender
	pools   map[uuid.UUID][]string
}

func newStubSenders(emails ...string) *stubSenders {
	m := &stubSenders{senders: make(map[string]*domain.Sender), pools: make(map[uuid.UUID][]string)}
	for _, e := range emails {
		m.senders[e] = &domain.Sender{Email: e, Password: "pw"}
	}
	return m
}

func (m *stubSenders) Add(_ context.Context, s *domain.Sender) error {
	m.senders[s.Email] = s
	return nil
}

func (m *stubSenders) GetByEmail(_ context.Context, email string) (*domain.Sender, error) {
	s, ok := m.senders[email]
	if !ok {
		return nil, port.ErrSenderNotFound
	}
	return s, nil
}

func (m *stubSenders) List(context.Context) ([]domain.Sender, error) {
	var out []domain.Sender
	for _, s := range m.senders {
		out = append(out, *s)
	}
	return out, nil
}

func (m *stubSenders) Delete(_ context.Context, email string) error {
	delete(m.senders, email)
	return nil
}

func (m *stubSenders) AssignPool(_ context.Context, campaignID uuid.UUID, emails []string) error {
	m.pools[campaignID] = emails
	return nil
}

func (m *stubSenders) PoolForCampaign(_ context.Context, campaignID uuid.UUID) ([]domain.Sender, error) {
	var out []domain.Sender
	for _, e := range m.pools[campaignID] {
		out = append(out, domain.Sender{Email: e})
	}
	return out, nil
}

type stubLedger struct {
	records map[uuid.UUID]map[string]domain.RecipientRecord
}

func newStubLedger() *stubLedger {
	return &stubLedger{records: make(map[uuid.UUID]map[string]domain.RecipientRecord)}
}

func (l *stubLedger) Reserve(context.Context, uuid.UUID, string) (bool, error) { return false, nil }

func (l *stubLedger) Commit(context.Context, port.SendOutcome) error { return nil }

func (l *stubLedger) NextCandidate(context.Context, uuid.UUID, int) (*domain.RecipientRecord, error) {
	return nil, nil
}

func (l *stubLedger) ReleaseStale(context.Context, time.Time) ([]port.StaleRecipient, error) {
	return nil, nil
}

func (l *stubLedger) InsertRecipients(_ context.Context, records []domain.RecipientRecord) (int, error) {
	inserted := 0
	for _, r := range records {
		if l.records[r.CampaignID] == nil {
			l.records[r.CampaignID] = make(map[string]domain.RecipientRecord)
		}
		if _, exists := l.records[r.CampaignID][r.Email]; exists {
			continue
		}
		l.records[r.CampaignID][r.Email] = r
		inserted++
	}
	return inserted, nil
}

func (l *stubLedger) Progress(_ context.Context, campaignID uuid.UUID) (port.CampaignProgress, error) {
	var p port.CampaignProgress
	for _, r := range l.records[campaignID] {
		p.Total++
		switch r.State {
		case domain.RecipientSent:
			p.Sent++
		case domain.RecipientFailed:
			p.Failed++
		case domain.RecipientInFlight:
			p.InFlight++
		default:
			p.Unseen++
		}
	}
	return p, nil
}

type stubQuota struct {
	usage map[string]int
}

func (q *stubQuota) TryConsume(context.Context, string, uuid.UUID, string, int) (bool, error) {
	return true, nil
}

func (q *stubQuota) Remaining(_ context.Context, _ string, _ uuid.UUID, _ string, limit int) (int, error) {
	return limit, nil
}

func (q *stubQuota) UsageForDay(context.Context, uuid.UUID, string) (map[string]int, error) {
	return q.usage, nil
}

type stubLogs struct{ entries []domain.EmailLogEntry }

func (s *stubLogs) Recent(_ context.Context, limit int) ([]domain.EmailLogEntry, error) {
	if limit > 0 && limit < len(s.entries) {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}
