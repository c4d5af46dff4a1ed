package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crdbl/crdbl/internal/domain"
	"github.com/crdbl/crdbl/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for unit tests and local development.
// Mirrors the redis layout: id records, alias bindings, holder sets, and an
// expiring verification cache.
type MemoryStore struct {
	mu sync.RWMutex

	issuer    *domain.IssuerIdentity
	records   map[string]domain.Credential
	aliases   map[string]string
	holders   map[string]map[string]struct{}
	verdicts  map[string]cachedVerification
	corrupted map[string]struct{}

	now func() time.Time
}

type cachedVerification struct {
	result    domain.VerificationResult
	expiresAt time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock injects a time source so cache-expiry behavior is testable.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemory constructs an empty MemoryStore.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records:   make(map[string]domain.Credential),
		aliases:   make(map[string]string),
		holders:   make(map[string]map[string]struct{}),
		verdicts:  make(map[string]cachedVerification),
		corrupted: make(map[string]struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) GetIssuer(_ context.Context) (domain.IssuerIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.issuer == nil {
		return domain.IssuerIdentity{}, fmt.Errorf("issuer: %w", sentinel.ErrNotFound)
	}
	return *s.issuer, nil
}

func (s *MemoryStore) SetIssuer(_ context.Context, issuer domain.IssuerIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issuer = &issuer
	return nil
}

func (s *MemoryStore) GetCredential(_ context.Context, idOrAlias string) (domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cred, ok := s.records[idOrAlias]; ok {
		return cred, nil
	}
	if id, ok := s.aliases[idOrAlias]; ok {
		if cred, ok := s.records[id]; ok {
			return cred, nil
		}
	}
	return domain.Credential{}, fmt.Errorf("credential %q: %w", idOrAlias, sentinel.ErrNotFound)
}

func (s *MemoryStore) SetCredential(_ context.Context, id string, cred domain.Credential, holderDID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = cred
	if alias := cred.CredentialSubject.Alias; alias != "" {
		s.aliases[alias] = id
	}
	if s.holders[holderDID] == nil {
		s.holders[holderDID] = make(map[string]struct{})
	}
	s.holders[holderDID][id] = struct{}{}
	return nil
}

func (s *MemoryStore) GetCredentialsByHolder(_ context.Context, holderDID string) ([]domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.holders[holderDID]
	creds := make([]domain.Credential, 0, len(ids))
	for id := range ids {
		if _, bad := s.corrupted[id]; bad {
			continue
		}
		if cred, ok := s.records[id]; ok {
			creds = append(creds, cred)
		}
	}
	return creds, nil
}

func (s *MemoryStore) GetVerification(_ context.Context, id string) (domain.VerificationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cached, ok := s.verdicts[id]
	if !ok || s.now().After(cached.expiresAt) {
		return domain.VerificationResult{}, fmt.Errorf("verification %q: %w", id, sentinel.ErrNotFound)
	}
	return cached.result, nil
}

func (s *MemoryStore) SetVerification(_ context.Context, id string, v domain.VerificationResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts[id] = cachedVerification{result: v, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Health(_ context.Context) error {
	return nil
}

// DropRecord removes a credential record while leaving its holder-index entry
// in place, simulating the index-outlives-record edge case.
func (s *MemoryStore) DropRecord(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// CorruptRecord marks a record as undecodable so holder listings drop it.
func (s *MemoryStore) CorruptRecord(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrupted[id] = struct{}{}
}
