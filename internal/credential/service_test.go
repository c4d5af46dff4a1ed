package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/crdbl/crdbl/internal/audit"
	"github.com/crdbl/crdbl/internal/contentstore"
	"github.com/crdbl/crdbl/internal/domain"
	"github.com/crdbl/crdbl/internal/issuer"
	"github.com/crdbl/crdbl/internal/oracle"
	"github.com/crdbl/crdbl/internal/store"
	"github.com/crdbl/crdbl/pkg/apperr"
	"github.com/crdbl/crdbl/pkg/identity"
)

// fakeIssuer stands in for the external credential issuer. Issue echoes the
// requested attributes back inside a signed-looking artifact; Verify counts
// calls so caching behavior is observable.
type fakeIssuer struct {
	verifyCalls  int
	verifyResult domain.VerificationResult
	issueErr     error
	issued       []issuer.IssueRequest
}

func newFakeIssuer() *fakeIssuer {
	f := &fakeIssuer{}
	f.verifyResult.Verified = true
	f.verifyResult.Issuer = "did:cheqd:testnet:issuer"
	return f
}

func (f *fakeIssuer) CreateIdentity(context.Context) (domain.IssuerIdentity, error) {
	return domain.IssuerIdentity{DID: "did:cheqd:testnet:issuer", ControllerKeyID: "key-1"}, nil
}

func (f *fakeIssuer) Issue(_ context.Context, req issuer.IssueRequest) (domain.Credential, error) {
	if f.issueErr != nil {
		return domain.Credential{}, f.issueErr
	}
	f.issued = append(f.issued, req)
	return domain.Credential{
		Context: []string{"https://www.w3.org/2018/credentials/v1"},
		ID:      req.ID,
		Type:    []string{"VerifiableCredential"},
		Issuer:  domain.Issuer{ID: req.IssuerDID},
		CredentialSubject: domain.CredentialSubject{
			ID:                   req.SubjectDID,
			CredentialAttributes: req.Attributes,
		},
		IssuanceDate: "2026-01-01T00:00:00Z",
		Proof:        domain.Proof{JWT: "jwt-for-" + req.ID, Type: "JwtProof2020"},
	}, nil
}

func (f *fakeIssuer) Verify(context.Context, string) (domain.VerificationResult, error) {
	f.verifyCalls++
	return f.verifyResult, nil
}

// fakeOracle returns a canned verdict and records what it was asked.
type fakeOracle struct {
	verdict oracle.Verdict
	calls   int
	claim   string
	texts   []string
}

func (f *fakeOracle) Evaluate(_ context.Context, claim string, texts []string) (oracle.Verdict, error) {
	f.calls++
	f.claim = claim
	f.texts = texts
	return f.verdict, nil
}

type ServiceSuite struct {
	suite.Suite
	clock   time.Time
	store   *store.MemoryStore
	issuer  *fakeIssuer
	content *contentstore.Memory
	oracle  *fakeOracle
	auditor *audit.MemoryPublisher
	service *Service
	holder  identity.Identity
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.store = store.NewMemory(store.WithClock(func() time.Time { return s.clock }))
	s.issuer = newFakeIssuer()
	s.content = contentstore.NewMemory()
	s.oracle = &fakeOracle{verdict: oracle.Consistent}
	s.auditor = audit.NewMemory()

	var err error
	s.holder, err = identity.Generate()
	s.Require().NoError(err)

	s.Require().NoError(s.store.SetIssuer(context.Background(),
		domain.IssuerIdentity{DID: "did:cheqd:testnet:issuer", ControllerKeyID: "key-1"}))

	s.service = New(s.store, s.issuer, s.content, s.oracle, 10*time.Minute,
		WithAuditor(s.auditor))
}

// issue signs and submits a claim for the suite's holder.
func (s *ServiceSuite) issue(content string, contextIDs []string, genAlias bool) (domain.Credential, error) {
	sig, err := identity.Sign(s.holder.PrivateKey, content, contextIDs)
	s.Require().NoError(err)
	return s.service.Issue(context.Background(), IssueRequest{
		SubjectDID: s.holder.DID,
		Attributes: domain.CredentialAttributes{
			Content: content,
			Context: contextIDs,
		},
		Signature:     sig,
		GenerateAlias: genAlias,
	})
}

func (s *ServiceSuite) mustIssue(content string, contextIDs []string, genAlias bool) domain.Credential {
	cred, err := s.issue(content, contextIDs, genAlias)
	s.Require().NoError(err)
	return cred
}

func (s *ServiceSuite) TestIssueNoContext() {
	cred := s.mustIssue("Solar costs decreased 90% since 2010", nil, false)

	s.NotEmpty(cred.ID)
	s.Equal(s.holder.DID, cred.HolderDID())

	// Content is replaced by a content-store id before the issuer sees it.
	s.Require().Len(s.issuer.issued, 1)
	cid := s.issuer.issued[0].Attributes.Content
	s.NotEqual("Solar costs decreased 90% since 2010", cid)
	text, err := s.content.Get(context.Background(), cid)
	s.Require().NoError(err)
	s.Equal("Solar costs decreased 90% since 2010", text)

	// No context means the oracle is never consulted.
	s.Zero(s.oracle.calls)

	// Persisted and indexed by holder.
	got, err := s.service.Get(context.Background(), cred.ID)
	s.Require().NoError(err)
	s.Equal(cred.ID, got.ID)

	listed, err := s.service.ListByHolder(context.Background(), s.holder.DID)
	s.Require().NoError(err)
	s.Len(listed, 1)
}

func (s *ServiceSuite) TestIssueGeneratedAliasResolves() {
	cred := s.mustIssue("aliased claim", nil, true)

	alias := cred.CredentialSubject.Alias
	s.Require().NotEmpty(alias)

	byAlias, err := s.service.Get(context.Background(), alias)
	s.Require().NoError(err)
	byID, err := s.service.Get(context.Background(), cred.ID)
	s.Require().NoError(err)
	s.Equal(byID, byAlias)
}

func (s *ServiceSuite) TestIssueNoAliasUnlessRequested() {
	cred := s.mustIssue("plain claim", nil, false)
	s.Empty(cred.CredentialSubject.Alias)
}

func (s *ServiceSuite) TestIssueValidation() {
	ctx := context.Background()
	cases := []struct {
		name string
		req  IssueRequest
	}{
		{"missing subject", IssueRequest{Attributes: domain.CredentialAttributes{Content: "x"}, Signature: "ab"}},
		{"missing content", IssueRequest{SubjectDID: s.holder.DID, Signature: "ab"}},
		{"missing signature", IssueRequest{SubjectDID: s.holder.DID, Attributes: domain.CredentialAttributes{Content: "x"}}},
		{"empty context id", IssueRequest{
			SubjectDID: s.holder.DID,
			Attributes: domain.CredentialAttributes{Content: "x", Context: []string{""}},
			Signature:  "ab",
		}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Issue(ctx, tc.req)
			s.Equal(apperr.CodeInvalidInput, apperr.CodeOf(err))
		})
	}
	s.Empty(mustList(s, s.holder.DID), "no credential may be persisted on validation failure")
}

func mustList(s *ServiceSuite, did string) []domain.Credential {
	creds, err := s.service.ListByHolder(context.Background(), did)
	s.Require().NoError(err)
	return creds
}

func (s *ServiceSuite) TestIssueWithoutBootstrappedIssuer() {
	fresh := store.NewMemory()
	svc := New(fresh, s.issuer, s.content, s.oracle, 10*time.Minute)

	sig, err := identity.Sign(s.holder.PrivateKey, "claim", nil)
	s.Require().NoError(err)
	_, err = svc.Issue(context.Background(), IssueRequest{
		SubjectDID: s.holder.DID,
		Attributes: domain.CredentialAttributes{Content: "claim"},
		Signature:  sig,
	})
	s.Equal(apperr.CodeConfig, apperr.CodeOf(err))
}

func (s *ServiceSuite) TestIssueInvalidSignature() {
	sig, err := identity.Sign(s.holder.PrivateKey, "original claim", nil)
	s.Require().NoError(err)

	_, err = s.service.Issue(context.Background(), IssueRequest{
		SubjectDID: s.holder.DID,
		Attributes: domain.CredentialAttributes{Content: "tampered claim"},
		Signature:  sig,
	})
	s.Equal(apperr.CodeInvalidSignature, apperr.CodeOf(err))
	s.Empty(mustList(s, s.holder.DID))
}

func (s *ServiceSuite) TestIssueSignatureOverContextListMatters() {
	ctxCred := s.mustIssue("context fact", nil, false)

	// Signature omits the context list the request carries.
	sig, err := identity.Sign(s.holder.PrivateKey, "dependent claim", nil)
	s.Require().NoError(err)
	_, err = s.service.Issue(context.Background(), IssueRequest{
		SubjectDID: s.holder.DID,
		Attributes: domain.CredentialAttributes{
			Content: "dependent claim",
			Context: []string{ctxCred.ID},
		},
		Signature: sig,
	})
	s.Equal(apperr.CodeInvalidSignature, apperr.CodeOf(err))
}

func (s *ServiceSuite) TestIssueContextNotFound() {
	_, err := s.issue("dependent claim", []string{"urn:uuid:nonexistent"}, false)
	s.Equal(apperr.CodeContextNotFound, apperr.CodeOf(err))
	s.Contains(err.Error(), "urn:uuid:nonexistent")
	s.Empty(mustList(s, s.holder.DID))
}

func (s *ServiceSuite) TestIssueContextNotVerified() {
	ctxCred := s.mustIssue("context fact", nil, false)

	// Fresh verification of the context credential comes back negative.
	s.issuer.verifyResult.Verified = false

	_, err := s.issue("dependent claim", []string{ctxCred.ID}, false)
	s.Equal(apperr.CodeContextNotVerified, apperr.CodeOf(err))
	s.Contains(err.Error(), ctxCred.ID)
	s.Len(mustList(s, s.holder.DID), 1, "only the context credential exists")
}

func (s *ServiceSuite) TestIssueContextContentMissing() {
	ctxCred := s.mustIssue("context fact", nil, false)
	s.content.Drop(ctxCred.CredentialSubject.Content)

	_, err := s.issue("dependent claim", []string{ctxCred.ID}, false)
	s.Equal(apperr.CodeContextContentMissing, apperr.CodeOf(err))
	s.Contains(err.Error(), ctxCred.ID)
}

func (s *ServiceSuite) TestIssueContradictionBlocks() {
	ctxCred := s.mustIssue("Solar costs decreased 90%", nil, false)
	s.oracle.verdict = oracle.Contradictory

	_, err := s.issue("Solar costs doubled", []string{ctxCred.ID}, false)
	s.Equal(apperr.CodeContentNotCredible, apperr.CodeOf(err))

	// The oracle saw the claim and the resolved context text.
	s.Equal(1, s.oracle.calls)
	s.Equal("Solar costs doubled", s.oracle.claim)
	s.Equal([]string{"Solar costs decreased 90%"}, s.oracle.texts)

	s.Len(mustList(s, s.holder.DID), 1, "the contradictory claim must not be persisted")
}

func (s *ServiceSuite) TestIssueAmbiguousProceeds() {
	ctxCred := s.mustIssue("Solar costs decreased 90%", nil, false)
	s.oracle.verdict = oracle.Ambiguous

	cred, err := s.issue("Wind adoption is rising", []string{ctxCred.ID}, false)
	s.Require().NoError(err, "ambiguous verdicts are non-blocking")
	s.NotEmpty(cred.ID)
	s.Equal(1, s.oracle.calls)
}

func (s *ServiceSuite) TestIssueMultipleContextsResolvedInOrder() {
	first := s.mustIssue("fact one", nil, false)
	second := s.mustIssue("fact two", nil, false)

	s.mustIssue("synthesis", []string{first.ID, second.ID}, false)
	s.Equal([]string{"fact one", "fact two"}, s.oracle.texts)
}

func (s *ServiceSuite) TestGetOrVerifyCaches() {
	cred := s.mustIssue("claim", nil, false)

	for range 2 {
		result, err := s.service.GetOrVerify(context.Background(), cred.ID)
		s.Require().NoError(err)
		s.True(result.Verified)
	}
	s.Equal(1, s.issuer.verifyCalls, "second call within the TTL must hit the cache")

	// After TTL expiry the external verifier is consulted again.
	s.clock = s.clock.Add(11 * time.Minute)
	_, err := s.service.GetOrVerify(context.Background(), cred.ID)
	s.Require().NoError(err)
	s.Equal(2, s.issuer.verifyCalls)
}

func (s *ServiceSuite) TestGateSharesVerificationCache() {
	ctxCred := s.mustIssue("context fact", nil, false)

	_, err := s.service.GetOrVerify(context.Background(), ctxCred.ID)
	s.Require().NoError(err)
	s.Equal(1, s.issuer.verifyCalls)

	// The gate's per-context verification reuses the cached verdict.
	s.mustIssue("dependent claim", []string{ctxCred.ID}, false)
	s.Equal(1, s.issuer.verifyCalls)
}

func (s *ServiceSuite) TestGetOrVerifyNotFound() {
	_, err := s.service.GetOrVerify(context.Background(), "urn:uuid:absent")
	s.Equal(apperr.CodeNotFound, apperr.CodeOf(err))
}

func (s *ServiceSuite) TestIssueUpstreamFailureLeavesNoRecord() {
	s.issuer.issueErr = apperr.New(apperr.CodeUpstream, "credential issuer 502 Bad Gateway: boom")

	_, err := s.issue("claim", nil, false)
	s.Equal(apperr.CodeUpstream, apperr.CodeOf(err))
	s.Empty(mustList(s, s.holder.DID))
}

func (s *ServiceSuite) TestHolderIndexCompleteness() {
	want := make([]string, 0, 5)
	for _, content := range []string{"a", "b", "c", "d", "e"} {
		want = append(want, s.mustIssue(content, nil, false).ID)
	}

	listed, err := s.service.ListByHolder(context.Background(), s.holder.DID)
	s.Require().NoError(err)
	got := make([]string, 0, len(listed))
	for _, c := range listed {
		got = append(got, c.ID)
	}
	s.ElementsMatch(want, got)
}

func (s *ServiceSuite) TestBootstrapIssuerIdempotent() {
	fresh := store.NewMemory()
	svc := New(fresh, s.issuer, s.content, s.oracle, 10*time.Minute)

	created, wasCreated, err := svc.BootstrapIssuer(context.Background())
	s.Require().NoError(err)
	s.True(wasCreated)
	s.Equal("did:cheqd:testnet:issuer", created.DID)

	again, wasCreated, err := svc.BootstrapIssuer(context.Background())
	s.Require().NoError(err)
	s.False(wasCreated)
	s.Equal(created, again)
}

func (s *ServiceSuite) TestAuditEvents() {
	cred := s.mustIssue("claim", nil, false)
	_, err := s.service.GetOrVerify(context.Background(), cred.ID)
	s.Require().NoError(err)

	events := s.auditor.Events()
	s.Require().Len(events, 2)
	s.Equal(audit.ActionIssued, events[0].Action)
	s.Equal(cred.ID, events[0].CredentialID)
	s.Equal(audit.ActionVerified, events[1].Action)
	s.Require().NotNil(events[1].Verified)
	s.True(*events[1].Verified)
}

func TestNewAlias(t *testing.T) {
	seen := map[string]bool{}
	for range 32 {
		alias, err := NewAlias()
		if err != nil {
			t.Fatalf("NewAlias: %v", err)
		}
		if len(alias) != aliasLength {
			t.Fatalf("alias %q has length %d, want %d", alias, len(alias), aliasLength)
		}
		for _, r := range alias {
			if r == '0' || r == 'o' || r == '1' || r == 'l' || r == 'i' {
				t.Fatalf("alias %q contains ambiguous character %q", alias, r)
			}
		}
		seen[alias] = true
	}
	if len(seen) < 2 {
		t.Fatal("aliases are not random")
	}
}
