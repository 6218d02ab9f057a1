package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

// Config holds the dispatch loop tuning knobs. Zero values are replaced
// with the documented defaults by New.
type Config struct {
	// PollInterval is the pause between dispatch cycles.
	PollInterval time.Duration
	// StaleThreshold is the age past which an in-flight reservation is
	// presumed crashed. Generous on purpose so a genuinely slow send is
	// not raced by recovery.
	StaleThreshold time.Duration
	// SendTimeout bounds one transport attempt.
	SendTimeout time.Duration
	// CycleBackoff is the wait after a cycle aborted on a store error.
	CycleBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 15 * time.Second
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = 30 * time.Minute
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	if c.CycleBackoff <= 0 {
		c.CycleBackoff = time.Minute
	}
	return c
}

// Runner is the background campaign engine: it polls the store for
// runnable campaigns and drives them to completion one send at a time,
// holding no lock across the blocking transport call. Several Runner
// processes may share one store; every correctness guarantee lives in the
// ledger's reserve and the quota's consume, not in this process.
type Runner struct {
	campaigns port.CampaignRepository
	senders   port.SenderRepository
	ledger    port.LedgerRepository
	quota     port.QuotaRepository
	transport port.Transport
	logger    *slog.Logger
	cfg       Config

	now func() time.Time
}

// New wires a Runner. The logger must not be nil.
func New(
	campaigns port.CampaignRepository,
	senders port.SenderRepository,
	ledger port.LedgerRepository,
	quota port.QuotaRepository,
	transport port.Transport,
	logger *slog.Logger,
	cfg Config,
) *Runner {
	return &Runner{
		campaigns: campaigns,
		senders:   senders,
		ledger:    ledger,
		quota:     quota,
		transport: transport,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

// Run executes the recovery procedure once and then loops dispatch cycles
// until the context is canceled. No error class stops the loop; store
// failures only delay the next cycle.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := r.Recover(ctx); err == nil {
			break
		} else {
			r.logger.Error("recovery failed, retrying", slog.Any("error", err))
		}
		if !sleep(ctx, r.cfg.CycleBackoff) {
			return ctx.Err()
		}
	}

	r.logger.Info("dispatch loop started",
		slog.Duration("poll_interval", r.cfg.PollInterval))
	for {
		wait := r.cfg.PollInterval
		if err := r.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("dispatch cycle aborted", slog.Any("error", err))
			wait = r.cfg.CycleBackoff
		}
		if !sleep(ctx, wait) {
			return ctx.Err()
		}
	}
}

// cycle makes one pass over all runnable campaigns.
func (r *Runner) cycle(ctx context.Context) error {
	campaigns, err := r.campaigns.ListByStatus(ctx, domain.StatusRunning)
	if err != nil {
		return err
	}
	for i := range campaigns {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.dispatchCampaign(ctx, &campaigns[i])
	}
	return nil
}

// dispatchCampaign sends for one campaign until it pauses, completes,
// exhausts today's quota, or hits a store error. A candidate is selected
// first, then the quota token, then the ledger reservation: the token
// always precedes the reserve so no recipient is reserved without send
// capacity behind it, and no token is claimed when nothing is left to
// send. When a reserve is lost to a concurrent worker the token carries
// to the next candidate.
func (r *Runner) dispatchCampaign(ctx context.Context, c *domain.Campaign) {
	log := r.logger.With(slog.String("campaign", c.ID.String()))

	open, clearDate := c.WindowOpen(r.now())
	if clearDate {
		if err := r.campaigns.ClearScheduledDate(ctx, c.ID); err != nil {
			log.Warn("clear scheduled date", slog.Any("error", err))
		}
	}
	if !open {
		return
	}

	pool, err := r.senders.PoolForCampaign(ctx, c.ID)
	if err != nil {
		log.Error("load sender pool", slog.Any("error", err))
		return
	}
	if len(pool) == 0 {
		log.Warn("campaign has no sender pool, skipping")
		return
	}

	rot := newRotator(pool, c.SenderCursor)
	var token *domain.Sender
	lastPos := -1

	for {
		if ctx.Err() != nil {
			return
		}

		// Re-read the campaign so a pause or edit from the UI takes
		// effect at the iteration boundary, never mid-send.
		cur, err := r.campaigns.GetByID(ctx, c.ID)
		if err != nil {
			log.Error("reload campaign", slog.Any("error", err))
			return
		}
		if cur.Status != domain.StatusRunning {
			log.Info("campaign no longer running", slog.String("status", string(cur.Status)))
			return
		}
		c = cur

		cand, err := r.ledger.NextCandidate(ctx, c.ID, lastPos)
		if err != nil {
			log.Error("select candidate", slog.Any("error", err))
			return
		}
		if cand == nil {
			r.maybeComplete(ctx, c, log)
			return
		}
		lastPos = cand.Position

		if token == nil {
			token, err = r.acquire(ctx, rot, c)
			if err != nil {
				log.Error("acquire sender", slog.Any("error", err))
				return
			}
			if token == nil {
				log.Info("daily quota exhausted for all senders")
				return
			}
		}

		reserved, err := r.ledger.Reserve(ctx, c.ID, cand.Email)
		if err != nil {
			log.Error("reserve recipient", slog.Any("error", err))
			return
		}
		if !reserved {
			// claimed by a concurrent worker; try the next candidate
			continue
		}

		body := Render(c.HTMLTemplate, cand.Fields)
		sendCtx, cancel := context.WithTimeout(ctx, r.cfg.SendTimeout)
		sendErr := r.transport.Send(sendCtx, *token, cand.Email, c.Subject, body)
		cancel()

		outcome := port.SendOutcome{
			CampaignID: c.ID,
			Email:      cand.Email,
			Sender:     token.Email,
			Subject:    c.Subject,
			Success:    sendErr == nil,
		}
		if sendErr != nil {
			outcome.Error = sendErr.Error()
		}
		if err := r.ledger.Commit(ctx, outcome); err != nil {
			if errors.Is(err, port.ErrNotInFlight) {
				log.Error("ledger state conflict, recipient skipped",
					slog.String("recipient", cand.Email))
			} else {
				log.Error("commit outcome", slog.Any("error", err))
				return
			}
		}

		var authErr *port.AuthError
		if errors.As(sendErr, &authErr) {
			rot.Exclude(authErr.Sender)
			// retry this recipient with the next eligible sender instead
			// of starving it behind the broken account
			lastPos = cand.Position - 1
			log.Error("sender credential rejected, excluded for this cycle",
				slog.String("sender", authErr.Sender), slog.Any("error", authErr))
		}

		success := sendErr == nil
		token = nil

		if success {
			log.Info("email sent",
				slog.String("recipient", cand.Email),
				slog.String("sender", outcome.Sender))
			if !sleep(ctx, c.SendDelay) {
				return
			}
		} else {
			log.Warn("send failed",
				slog.String("recipient", cand.Email),
				slog.String("sender", outcome.Sender),
				slog.Any("error", sendErr))
		}
	}
}

// acquire claims a quota token from the next rotation-eligible sender.
// Returns nil when every sender is exhausted for the day.
func (r *Runner) acquire(ctx context.Context, rot *rotator, c *domain.Campaign) (*domain.Sender, error) {
	day := domain.DayKey(r.now())
	for {
		s, err := rot.NextSender(ctx, r.quota, c.ID, day, c.DailyLimit)
		if err != nil || s == nil {
			return nil, err
		}
		ok, err := r.quota.TryConsume(ctx, s.Email, c.ID, day, c.DailyLimit)
		if err != nil {
			return nil, err
		}
		if !ok {
			// raced to the limit by another worker between the remaining
			// read and the consume; drop it for the rest of this cycle
			rot.Exclude(s.Email)
			continue
		}
		rot.Advance(s.Email)
		if err := r.campaigns.UpdateSenderCursor(ctx, c.ID, rot.Cursor()); err != nil {
			// rotation hint only; the next cycle re-reads it
			r.logger.Warn("persist sender cursor", slog.Any("error", err))
		}
		return s, nil
	}
}

// maybeComplete transitions a fully-drained campaign to completed. A
// record still in flight with another worker keeps the campaign open.
func (r *Runner) maybeComplete(ctx context.Context, c *domain.Campaign, log *slog.Logger) {
	prog, err := r.ledger.Progress(ctx, c.ID)
	if err != nil {
		log.Error("read progress", slog.Any("error", err))
		return
	}
	if prog.Total == 0 || prog.Pending() > 0 {
		return
	}
	if err := r.campaigns.UpdateStatus(ctx, c.ID, domain.StatusCompleted); err != nil {
		log.Error("mark completed", slog.Any("error", err))
		return
	}
	log.Info("campaign completed",
		slog.Int("sent", prog.Sent), slog.Int("failed", prog.Failed))
}

// sleep waits for d or the context, whichever ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
