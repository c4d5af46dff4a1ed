// Package audit emits structured events for credential lifecycle actions.
// Publishing is fail-open: issuance and verification never block on the audit
// pipe, so sink errors are logged and dropped by the caller.
package audit

import (
	"context"
	"time"
)

// Actions emitted by the credential services.
const (
	ActionIssued   = "credential.issued"
	ActionVerified = "credential.verified"
)

// Event captures one credential lifecycle action. Keep it transport-agnostic
// so sinks can fan out.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	CredentialID string    `json:"credentialId"`
	HolderDID    string    `json:"holderDid,omitempty"`
	Verified     *bool     `json:"verified,omitempty"`
}

// Publisher delivers events to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close()
}

// Nop discards events. Used when no brokers are configured.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }
func (Nop) Close()                            {}
