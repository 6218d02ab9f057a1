package runner

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

// In-memory repositories used across the runner tests. All of them are
// safe for concurrent use so multi-worker scenarios exercise the same
// atomicity contracts the Postgres implementations provide.

type memLedger struct {
	mu      sync.Mutex
	records map[uuid.UUID]map[string]*domain.RecipientRecord
	log     []port.SendOutcome
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[uuid.UUID]map[string]*domain.RecipientRecord)}
}

func (l *memLedger) add(campaignID uuid.UUID, recs ...domain.RecipientRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.records[campaignID] == nil {
		l.records[campaignID] = make(map[string]*domain.RecipientRecord)
	}
	for i := range recs {
		r := recs[i]
		r.CampaignID = campaignID
		if r.State == "" {
			r.State = domain.RecipientUnseen
		}
		l.records[campaignID][r.Email] = &r
	}
}

func (l *memLedger) state(campaignID uuid.UUID, email string) domain.RecipientState {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[campaignID][email]
	if !ok {
		return ""
	}
	return r.State
}

func (l *memLedger) Reserve(_ context.Context, campaignID uuid.UUID, email string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[campaignID][domain.NormalizeEmail(email)]
	if !ok {
		return false, nil
	}
	if r.State != domain.RecipientUnseen && r.State != domain.RecipientFailed {
		return false, nil
	}
	now := time.Now()
	r.State = domain.RecipientInFlight
	r.ReservedAt = &now
	return true, nil
}

func (l *memLedger) Commit(_ context.Context, outcome port.SendOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[outcome.CampaignID][domain.NormalizeEmail(outcome.Email)]
	if !ok || r.State != domain.RecipientInFlight {
		return port.ErrNotInFlight
	}
	r.Attempts++
	r.ReservedAt = nil
	if outcome.Success {
		r.State = domain.RecipientSent
		r.LastError = ""
	} else {
		r.State = domain.RecipientFailed
		r.LastError = outcome.Error
	}
	l.log = append(l.log, outcome)
	return nil
}

func (l *memLedger) NextCandidate(_ context.Context, campaignID uuid.UUID, afterPosition int) (*domain.RecipientRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var best *domain.RecipientRecord
	for _, r := range l.records[campaignID] {
		if r.State != domain.RecipientUnseen && r.State != domain.RecipientFailed {
			continue
		}
		if r.Position <= afterPosition {
			continue
		}
		if best == nil || r.Position < best.Position {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (l *memLedger) ReleaseStale(_ context.Context, olderThan time.Time) ([]port.StaleRecipient, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []port.StaleRecipient
	for cid, recs := range l.records {
		for _, r := range recs {
			if r.State != domain.RecipientInFlight || r.ReservedAt == nil || !r.ReservedAt.Before(olderThan) {
				continue
			}
			r.State = domain.RecipientFailed
			r.LastError = "recovered from crash"
			r.ReservedAt = nil
			out = append(out, port.StaleRecipient{CampaignID: cid, Email: r.Email, ReleasedAt: time.Now()})
		}
	}
	return out, nil
}

func (l *memLedger) InsertRecipients(_ context.Context, records []domain.RecipientRecord) (int, error) {
	inserted := 0
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range records {
		r := records[i]
		if l.records[r.CampaignID] == nil {
			l.records[r.CampaignID] = make(map[string]*domain.RecipientRecord)
		}
		if _, exists := l.records[r.CampaignID][r.Email]; exists {
			continue
		}
		l.records[r.CampaignID][r.Email] = &r
		inserted++
	}
	return inserted, nil
}

func (l *memLedger) Progress(_ context.Context, campaignID uuid.UUID) (port.CampaignProgress, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
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

type memQuota struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemQuota() *memQuota { return &memQuota{counts: make(map[string]int)} }

func quotaKey(sender string, campaignID uuid.UUID, day string) string {
	return sender + "|" + campaignID.String() + "|" + day
}

func (q *memQuota) TryConsume(_ context.Context, sender string, campaignID uuid.UUID, day string, limit int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	k := quotaKey(sender, campaignID, day)
	if limit < 1 || q.counts[k] >= limit {
		return false, nil
	}
	q.counts[k]++
	return true, nil
}

func (q *memQuota) total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	sum := 0
	for _, v := range q.counts {
		sum += v
	}
	return sum
}

func (q *memQuota) Remaining(_ context.Context, sender string, campaignID uuid.UUID, day string, limit int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	left := limit - q.counts[quotaKey(sender, campaignID, day)]
	if left < 0 {
		left = 0
	}
	return left, nil
}

func (q *memQuota) UsageForDay(_ context.Context, campaignID uuid.UUID, day string) (map[string]int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]int)
	suffix := "|" + campaignID.String() + "|" + day
	for k, v := range q.counts {
		if idx := len(k) - len(suffix); idx > 0 && k[idx:] == suffix {
			out[k[:idx]] = v
		}
	}
	return out, nil
}

type memCampaigns struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*domain.Campaign
}

func newMemCampaigns(cs ...*domain.Campaign) *memCampaigns {
	m := &memCampaigns{campaigns: make(map[uuid.UUID]*domain.Campaign)}
	for _, c := range cs {
		cp := *c
		m.campaigns[c.ID] = &cp
	}
	return m
}

func (m *memCampaigns) Create(_ context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memCampaigns) GetByID(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, port.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaigns) List(_ context.Context) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memCampaigns) ListByStatus(_ context.Context, status domain.CampaignStatus) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *memCampaigns) Update(_ context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[c.ID]; !ok {
		return port.ErrCampaignNotFound
	}
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memCampaigns) UpdateStatus(_ context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return port.ErrCampaignNotFound
	}
	c.Status = status
	return nil
}

func (m *memCampaigns) ClearScheduledDate(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return port.ErrCampaignNotFound
	}
	c.ScheduledDate = nil
	return nil
}

func (m *memCampaigns) UpdateSenderCursor(_ context.Context, id uuid.UUID, cursor int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return port.ErrCampaignNotFound
	}
	c.SenderCursor = cursor
	return nil
}

func (m *memCampaigns) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.campaigns, id)
	return nil
}

type memSenders struct {
	mu    sync.Mutex
	pools map[uuid.UUID][]domain.Sender
}

func newMemSenders() *memSenders { return &memSenders{pools: make(map[uuid.UUID][]domain.Sender)} }

func (m *memSenders) setPool(campaignID uuid.UUID, emails ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pool := make([]domain.Sender, 0, len(emails))
	for _, e := range emails {
		pool = append(pool, domain.Sender{Email: e, Password: "pw"})
	}
	m.pools[campaignID] = pool
}

func (m *memSenders) Add(context.Context, *domain.Sender) error { return nil }

func (m *memSenders) GetByEmail(_ context.Context, email string) (*domain.Sender, error) {
	return nil, port.ErrSenderNotFound
}

func (m *memSenders) List(context.Context) ([]domain.Sender, error) { return nil, nil }

func (m *memSenders) Delete(context.Context, string) error { return nil }

func (m *memSenders) AssignPool(_ context.Context, campaignID uuid.UUID, emails []string) error {
	m.setPool(campaignID, emails...)
	return nil
}

func (m *memSenders) PoolForCampaign(_ context.Context, campaignID uuid.UUID) ([]domain.Sender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Sender(nil), m.pools[campaignID]...), nil
}

type sentMail struct {
	Sender    string
	Recipient string
	Body      string
}

// fakeTransport records sends and lets a test inject per-call failures.
type fakeTransport struct {
	mu   sync.Mutex
	sent []sentMail
	fail func(sender domain.Sender, recipient string) error
}

func (t *fakeTransport) Send(_ context.Context, sender domain.Sender, recipient, _ string, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		if err := t.fail(sender, recipient); err != nil {
			return err
		}
	}
	t.sent = append(t.sent, sentMail{Sender: sender.Email, Recipient: recipient, Body: body})
	return nil
}

func (t *fakeTransport) bySender() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int)
	for _, s := range t.sent {
		out[s.Sender]++
	}
	return out
}

func (t *fakeTransport) byRecipient() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int)
	for _, s := range t.sent {
		out[s.Recipient]++
	}
	return out
}
