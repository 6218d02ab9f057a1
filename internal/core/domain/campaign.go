package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus is the lifecycle state of a campaign. Once a campaign
// leaves draft it can never return to it.
type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "draft"
	StatusRunning   CampaignStatus = "running"
	StatusPaused    CampaignStatus = "paused"
	StatusCompleted CampaignStatus = "completed"
)

var ErrInvalidTransition = errors.New("invalid campaign transition")

// Campaign represents one configured bulk-send job with its own recipient
// list, sender pool and schedule. DailyLimit applies per sender per day.
type Campaign struct {
	ID              uuid.UUID
	Name            string
	Subject         string
	HTMLTemplate    string
	Status          CampaignStatus
	DailyLimit      int
	SendDelay       time.Duration
	ScheduleEnabled bool
	ScheduleTime    string // "HH:MM", local time
	ScheduledDate   *time.Time
	SenderCursor    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Start moves a draft campaign to running. The caller supplies the current
// sender pool and recipient counts; a campaign cannot start without at
// least one of each and a non-empty template. A paused campaign is not
// startable, it resumes.
func (c *Campaign) Start(senderCount, recipientCount int) error {
	if c.Status != StatusDraft {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, c.Status)
	}
	if senderCount < 1 {
		return errors.New("campaign has no assigned senders")
	}
	if recipientCount < 1 {
		return errors.New("campaign has no recipients")
	}
	if c.HTMLTemplate == "" {
		return errors.New("campaign has no template")
	}
	c.Status = StatusRunning
	return nil
}

// Pause stops dispatch at the next cycle boundary. Only a running campaign
// can be paused.
func (c *Campaign) Pause() error {
	if c.Status != StatusRunning {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, c.Status)
	}
	c.Status = StatusPaused
	return nil
}

// Resume returns a paused campaign to running. Resuming never resets the
// recipient ledger or quota counters; dispatch continues where it left off.
func (c *Campaign) Resume() error {
	if c.Status != StatusPaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, c.Status)
	}
	c.Status = StatusRunning
	return nil
}

// Complete marks a running campaign as finished. Happens automatically
// when every recipient has reached a terminal state.
func (c *Campaign) Complete() error {
	if c.Status != StatusRunning {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, c.Status)
	}
	c.Status = StatusCompleted
	return nil
}

// WindowOpen reports whether the schedule gate admits dispatch at now.
// A closed gate is not a status change: the campaign stays running and is
// simply skipped until the window opens. The second result is true when a
// one-shot scheduled date has been consumed and should be cleared in the
// store so subsequent days are not gated by it.
func (c *Campaign) WindowOpen(now time.Time) (open bool, clearDate bool) {
	at := c.scheduleTimeOfDay()
	if c.ScheduleEnabled {
		gate := time.Date(now.Year(), now.Month(), now.Day(), at.h, at.m, 0, 0, now.Location())
		return !now.Before(gate), false
	}
	if c.ScheduledDate != nil {
		d := *c.ScheduledDate
		gate := time.Date(d.Year(), d.Month(), d.Day(), at.h, at.m, 0, 0, now.Location())
		if now.Before(gate) {
			return false, false
		}
		return true, true
	}
	return true, false
}

type hourMinute struct{ h, m int }

func (c *Campaign) scheduleTimeOfDay() hourMinute {
	var h, m int
	if _, err := fmt.Sscanf(c.ScheduleTime, "%d:%d", &h, &m); err != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		// fall back to the default window opening
		return hourMinute{10, 0}
	}
	return hourMinute{h, m}
}

// DayKey returns the calendar-day quota key for t. The day boundary uses
// the timezone of t itself; callers pass process-local time by default, so
// a send exactly at midnight belongs to the new day.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
