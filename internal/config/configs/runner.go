package configs

import "time"

// Runner configures the background dispatch loop. PollInterval sets how
// often campaigns are scanned for work. StaleThreshold controls how old an
// in-flight reservation must be before startup recovery releases it.
// CycleBackoff is the pause after a cycle that failed with a storage error.
type Runner struct {
	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"15s"`
	StaleThreshold time.Duration `env:"STALE_THRESHOLD" envDefault:"30m"`
	CycleBackoff   time.Duration `env:"CYCLE_BACKOFF" envDefault:"60s"`
}
