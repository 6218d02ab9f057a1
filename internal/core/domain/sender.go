package domain

import "time"

// Sender is one mail account in a campaign's pool. Password is the SMTP
// app credential. Health is advisory only and never persisted as a
// dispatch-eligibility flag.
type Sender struct {
	Email     string
	Password  string
	CreatedAt time.Time
}
