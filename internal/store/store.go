// Package store persists issuer identity, credentials and their derived
// indexes (alias, holder set), and the verification-result cache.
package store

import (
	"context"
	"time"

	"github.com/crdbl/crdbl/internal/domain"
)

// Store is the credential persistence contract. Implementations return
// sentinel.ErrNotFound (optionally wrapped) on misses so services can
// translate them into domain errors.
//
// SetCredential performs three logically grouped writes (record, alias
// binding, holder-set membership) with no atomicity guarantee; a reader racing
// a writer may observe the record before the holder index or vice versa.
// Readers must tolerate this transient partial visibility.
type Store interface {
	// GetIssuer / SetIssuer manage the deployment-wide issuer singleton.
	GetIssuer(ctx context.Context) (domain.IssuerIdentity, error)
	SetIssuer(ctx context.Context, issuer domain.IssuerIdentity) error

	// GetCredential looks up by id first, then through the alias index.
	GetCredential(ctx context.Context, idOrAlias string) (domain.Credential, error)

	// SetCredential writes the credential record, binds its alias when the
	// subject attributes carry one, and adds the id to the holder's set.
	SetCredential(ctx context.Context, id string, cred domain.Credential, holderDID string) error

	// GetCredentialsByHolder resolves the holder's index. Index entries whose
	// record is missing or corrupt are dropped, not raised: the index can
	// outlive the record it references.
	GetCredentialsByHolder(ctx context.Context, holderDID string) ([]domain.Credential, error)

	// GetVerification / SetVerification manage the TTL-bounded verification
	// cache.
	GetVerification(ctx context.Context, id string) (domain.VerificationResult, error)
	SetVerification(ctx context.Context, id string, v domain.VerificationResult, ttl time.Duration) error

	// Health probes the underlying key/value service.
	Health(ctx context.Context) error
}
