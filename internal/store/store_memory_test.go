package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/crdbl/crdbl/internal/domain"
	"github.com/crdbl/crdbl/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	clock time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.clock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.store = NewMemory(WithClock(func() time.Time { return s.clock }))
}

func testCredential(id, holderDID, alias string) domain.Credential {
	return domain.Credential{
		ID:   id,
		Type: []string{"VerifiableCredential"},
		CredentialSubject: domain.CredentialSubject{
			ID: holderDID,
			CredentialAttributes: domain.CredentialAttributes{
				Content: "bafy-content-id",
				Alias:   alias,
			},
		},
		Proof: domain.Proof{JWT: "header.payload.sig", Type: "JwtProof2020"},
	}
}

func (s *MemoryStoreSuite) TestIssuerSingleton() {
	ctx := context.Background()

	_, err := s.store.GetIssuer(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)

	issuer := domain.IssuerIdentity{DID: "did:cheqd:testnet:abc", ControllerKeyID: "key-1"}
	s.Require().NoError(s.store.SetIssuer(ctx, issuer))

	got, err := s.store.GetIssuer(ctx)
	s.Require().NoError(err)
	s.Equal(issuer, got)
}

func (s *MemoryStoreSuite) TestGetCredentialByIDAndAlias() {
	ctx := context.Background()
	cred := testCredential("urn:uuid:1111", "did:key:zHolder", "sunny1")
	s.Require().NoError(s.store.SetCredential(ctx, cred.ID, cred, cred.HolderDID()))

	byID, err := s.store.GetCredential(ctx, "urn:uuid:1111")
	s.Require().NoError(err)
	s.Equal(cred, byID)

	byAlias, err := s.store.GetCredential(ctx, "sunny1")
	s.Require().NoError(err)
	s.Equal(cred, byAlias)

	_, err = s.store.GetCredential(ctx, "urn:uuid:absent")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestAliasLastWriterWins() {
	ctx := context.Background()
	first := testCredential("urn:uuid:1111", "did:key:zHolder", "shared")
	second := testCredential("urn:uuid:2222", "did:key:zHolder", "shared")
	s.Require().NoError(s.store.SetCredential(ctx, first.ID, first, first.HolderDID()))
	s.Require().NoError(s.store.SetCredential(ctx, second.ID, second, second.HolderDID()))

	got, err := s.store.GetCredential(ctx, "shared")
	s.Require().NoError(err)
	s.Equal("urn:uuid:2222", got.ID)
}

func (s *MemoryStoreSuite) TestGetCredentialsByHolder() {
	ctx := context.Background()
	holder := "did:key:zHolder"
	a := testCredential("urn:uuid:aaaa", holder, "")
	b := testCredential("urn:uuid:bbbb", holder, "")
	other := testCredential("urn:uuid:cccc", "did:key:zOther", "")
	s.Require().NoError(s.store.SetCredential(ctx, a.ID, a, holder))
	s.Require().NoError(s.store.SetCredential(ctx, b.ID, b, holder))
	s.Require().NoError(s.store.SetCredential(ctx, other.ID, other, other.HolderDID()))

	creds, err := s.store.GetCredentialsByHolder(ctx, holder)
	s.Require().NoError(err)
	s.Len(creds, 2)
	ids := []string{creds[0].ID, creds[1].ID}
	s.ElementsMatch([]string{"urn:uuid:aaaa", "urn:uuid:bbbb"}, ids)

	s.Empty(mustHolder(s, "did:key:zUnknown"))
}

func mustHolder(s *MemoryStoreSuite, did string) []domain.Credential {
	creds, err := s.store.GetCredentialsByHolder(context.Background(), did)
	s.Require().NoError(err)
	return creds
}

func (s *MemoryStoreSuite) TestHolderIndexDropsMissingAndCorruptRecords() {
	ctx := context.Background()
	holder := "did:key:zHolder"
	kept := testCredential("urn:uuid:kept", holder, "")
	gone := testCredential("urn:uuid:gone", holder, "")
	bad := testCredential("urn:uuid:bad", holder, "")
	for _, c := range []domain.Credential{kept, gone, bad} {
		s.Require().NoError(s.store.SetCredential(ctx, c.ID, c, holder))
	}

	s.store.DropRecord("urn:uuid:gone")
	s.store.CorruptRecord("urn:uuid:bad")

	creds, err := s.store.GetCredentialsByHolder(ctx, holder)
	s.Require().NoError(err)
	s.Len(creds, 1)
	s.Equal("urn:uuid:kept", creds[0].ID)
}

func (s *MemoryStoreSuite) TestVerificationCacheExpiry() {
	ctx := context.Background()
	v := domain.VerificationResult{Verified: true, Issuer: "did:cheqd:testnet:abc"}
	s.Require().NoError(s.store.SetVerification(ctx, "urn:uuid:1111", v, 10*time.Minute))

	got, err := s.store.GetVerification(ctx, "urn:uuid:1111")
	s.Require().NoError(err)
	s.True(got.Verified)

	// Advance past the TTL: the cached verdict must disappear.
	s.clock = s.clock.Add(11 * time.Minute)
	_, err = s.store.GetVerification(ctx, "urn:uuid:1111")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestHealth() {
	s.NoError(s.store.Health(context.Background()))
}
