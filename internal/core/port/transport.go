package port

import (
	"context"
	"fmt"

	"mailrun/internal/core/domain"
)

// Transport attempts exactly one delivery with the given sender credential.
// Retries, TLS and protocol details are the transport's concern; the
// dispatch loop only distinguishes success, failure and rejected
// credentials.
type Transport interface {
	Send(ctx context.Context, sender domain.Sender, recipient, subject, body string) error
}

// TransportHealth is an advisory credential probe exposed on the control
// API. It is never consulted for dispatch eligibility.
type TransportHealth interface {
	CheckSender(ctx context.Context, sender domain.Sender) error
}

// AuthError marks a send failure caused by a rejected sender credential.
// The rotator excludes the sender for the remainder of the current cycle
// to avoid hammering a broken account; the exclusion is not persisted.
type AuthError struct {
	Sender string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("sender %s rejected: %v", e.Sender, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
