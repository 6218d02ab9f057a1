package runner

import (
	"context"
	"log/slog"
)

// Recover reconciles reservations left in flight by a crashed process.
// It runs once before the dispatch loop starts and is never invoked
// mid-cycle. Released records become failed, so they must pass a fresh
// reserve before any re-send; a record younger than the stale threshold
// is assumed to belong to a live worker and is left alone.
func (r *Runner) Recover(ctx context.Context) error {
	cutoff := r.now().Add(-r.cfg.StaleThreshold)
	released, err := r.ledger.ReleaseStale(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, s := range released {
		r.logger.Warn("recovered from crash",
			slog.String("campaign", s.CampaignID.String()),
			slog.String("recipient", s.Email))
	}
	if len(released) > 0 {
		r.logger.Info("recovery released stale reservations",
			slog.Int("count", len(released)))
	}
	return nil
}
