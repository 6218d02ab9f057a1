package configs

import "time"

// SMTP holds configuration for the outgoing mail relay. Every sender
// authenticates against the same relay with its own credentials, so only
// the host and port are configured globally.
type SMTP struct {
	// Host is the hostname of the SMTP relay.
	Host string `env:"HOST" envDefault:"smtp.gmail.com"`
	// Port is the TCP port of the SMTP relay.
	Port uint16 `env:"PORT" envDefault:"587"`
	// SendTimeout bounds a single SMTP delivery attempt.
	SendTimeout time.Duration `env:"SEND_TIMEOUT" envDefault:"30s"`
}
