package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/crdbl/crdbl/internal/domain"
	"github.com/crdbl/crdbl/pkg/platform/sentinel"
)

// Redis key layout. Aliases and holder sets are derived indexes over the
// credential records; id keys are authoritative.
const (
	issuerKey             = "issuer"
	credentialKeyPrefix   = "credential:"
	aliasKeyPrefix        = "alias:"
	holderKeyPrefix       = "holder:"
	verificationKeyPrefix = "verification:"
)

// holderFetchConcurrency bounds parallel record fetches when resolving a
// holder's index.
const holderFetchConcurrency = 8

// RedisStore is the production Store backed by a shared Redis instance. The
// client lifecycle is managed by the caller.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Store over an established go-redis client.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) GetIssuer(ctx context.Context) (domain.IssuerIdentity, error) {
	raw, err := s.client.Get(ctx, issuerKey).Result()
	if errors.Is(err, redis.Nil) {
		return domain.IssuerIdentity{}, fmt.Errorf("issuer: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return domain.IssuerIdentity{}, fmt.Errorf("get issuer: %w", err)
	}
	var issuer domain.IssuerIdentity
	if err := json.Unmarshal([]byte(raw), &issuer); err != nil {
		return domain.IssuerIdentity{}, fmt.Errorf("decode issuer: %w", err)
	}
	return issuer, nil
}

func (s *RedisStore) SetIssuer(ctx context.Context, issuer domain.IssuerIdentity) error {
	b, err := json.Marshal(issuer)
	if err != nil {
		return fmt.Errorf("encode issuer: %w", err)
	}
	if err := s.client.Set(ctx, issuerKey, b, 0).Err(); err != nil {
		return fmt.Errorf("set issuer: %w", err)
	}
	return nil
}

func (s *RedisStore) GetCredential(ctx context.Context, idOrAlias string) (domain.Credential, error) {
	cred, err := s.getCredentialByID(ctx, idOrAlias)
	if err == nil {
		return cred, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return domain.Credential{}, err
	}

	// Direct miss: try the alias index, then retry the direct lookup.
	id, err := s.client.Get(ctx, aliasKeyPrefix+idOrAlias).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Credential{}, fmt.Errorf("credential %q: %w", idOrAlias, sentinel.ErrNotFound)
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("resolve alias %q: %w", idOrAlias, err)
	}
	return s.getCredentialByID(ctx, id)
}

func (s *RedisStore) getCredentialByID(ctx context.Context, id string) (domain.Credential, error) {
	raw, err := s.client.Get(ctx, credentialKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Credential{}, fmt.Errorf("credential %q: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("get credential %q: %w", id, err)
	}
	var cred domain.Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return domain.Credential{}, fmt.Errorf("decode credential %q: %w", id, err)
	}
	return cred, nil
}

func (s *RedisStore) SetCredential(ctx context.Context, id string, cred domain.Credential, holderDID string) error {
	b, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential %q: %w", id, err)
	}

	// Three writes, sequential, not transactional. Readers tolerate the
	// partial-visibility window; last writer wins on alias collisions.
	if err := s.client.Set(ctx, credentialKeyPrefix+id, b, 0).Err(); err != nil {
		return fmt.Errorf("set credential %q: %w", id, err)
	}
	if alias := cred.CredentialSubject.Alias; alias != "" {
		if err := s.client.Set(ctx, aliasKeyPrefix+alias, id, 0).Err(); err != nil {
			return fmt.Errorf("bind alias %q: %w", alias, err)
		}
	}
	if err := s.client.SAdd(ctx, holderKeyPrefix+holderDID, id).Err(); err != nil {
		return fmt.Errorf("index holder %q: %w", holderDID, err)
	}
	return nil
}

func (s *RedisStore) GetCredentialsByHolder(ctx context.Context, holderDID string) ([]domain.Credential, error) {
	ids, err := s.client.SMembers(ctx, holderKeyPrefix+holderDID).Result()
	if err != nil {
		return nil, fmt.Errorf("holder index %q: %w", holderDID, err)
	}

	results := make([]*domain.Credential, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(holderFetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			raw, err := s.client.Get(gctx, credentialKeyPrefix+id).Result()
			if errors.Is(err, redis.Nil) {
				return nil // index entry outlived the record
			}
			if err != nil {
				return fmt.Errorf("get credential %q: %w", id, err)
			}
			var cred domain.Credential
			if err := json.Unmarshal([]byte(raw), &cred); err != nil {
				return nil // corrupt record, drop it
			}
			results[i] = &cred
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	creds := make([]domain.Credential, 0, len(results))
	for _, c := range results {
		if c != nil {
			creds = append(creds, *c)
		}
	}
	return creds, nil
}

func (s *RedisStore) GetVerification(ctx context.Context, id string) (domain.VerificationResult, error) {
	raw, err := s.client.Get(ctx, verificationKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return domain.VerificationResult{}, fmt.Errorf("verification %q: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return domain.VerificationResult{}, fmt.Errorf("get verification %q: %w", id, err)
	}
	var v domain.VerificationResult
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return domain.VerificationResult{}, fmt.Errorf("decode verification %q: %w", id, err)
	}
	return v, nil
}

func (s *RedisStore) SetVerification(ctx context.Context, id string, v domain.VerificationResult, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode verification %q: %w", id, err)
	}
	if err := s.client.Set(ctx, verificationKeyPrefix+id, b, ttl).Err(); err != nil {
		return fmt.Errorf("cache verification %q: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", sentinel.ErrUnavailable)
	}
	return nil
}
