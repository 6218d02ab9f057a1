package runner

import (
	"context"

	"github.com/google/uuid"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

// rotator walks a campaign's sender pool in deterministic round-robin
// order starting from the persisted cursor. The exclusion set is scoped
// to one dispatch cycle: senders land in it after a credential rejection
// or after losing a quota race, and it is never persisted.
type rotator struct {
	pool   []domain.Sender
	cursor int
	skip   map[string]struct{}
}

func newRotator(pool []domain.Sender, cursor int) *rotator {
	if len(pool) > 0 {
		cursor %= len(pool)
	}
	return &rotator{pool: pool, cursor: cursor, skip: make(map[string]struct{})}
}

// NextSender returns the first sender in rotation order with quota
// remaining today, or nil when every sender is exhausted or excluded.
// The cursor does not move; Advance does that once a slot is claimed.
func (ro *rotator) NextSender(ctx context.Context, quota port.QuotaRepository, campaignID uuid.UUID, day string, limit int) (*domain.Sender, error) {
	for i := 0; i < len(ro.pool); i++ {
		idx := (ro.cursor + i) % len(ro.pool)
		s := ro.pool[idx]
		if _, excluded := ro.skip[s.Email]; excluded {
			continue
		}
		left, err := quota.Remaining(ctx, s.Email, campaignID, day, limit)
		if err != nil {
			return nil, err
		}
		if left > 0 {
			return &ro.pool[idx], nil
		}
	}
	return nil, nil
}

// Advance moves the cursor just past the given sender so consecutive
// sends spread across the pool instead of pinning the first eligible
// account.
func (ro *rotator) Advance(email string) {
	for i, s := range ro.pool {
		if s.Email == email {
			ro.cursor = (i + 1) % len(ro.pool)
			return
		}
	}
}

// Exclude removes a sender from rotation for the rest of this cycle.
func (ro *rotator) Exclude(email string) {
	ro.skip[email] = struct{}{}
}

// Cursor exposes the position to persist.
func (ro *rotator) Cursor() int { return ro.cursor }
