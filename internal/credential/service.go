// Package credential implements the issuance orchestrator and the
// verification service: the write path that gates new credentials on holder
// signatures and context consistency, and the read path that verifies issued
// credentials with a TTL-bounded cache.
package credential

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crdbl/crdbl/internal/audit"
	"github.com/crdbl/crdbl/internal/credential/metrics"
	"github.com/crdbl/crdbl/internal/domain"
	"github.com/crdbl/crdbl/internal/issuer"
	"github.com/crdbl/crdbl/internal/oracle"
	"github.com/crdbl/crdbl/internal/store"
	"github.com/crdbl/crdbl/pkg/apperr"
	"github.com/crdbl/crdbl/pkg/identity"
	"github.com/crdbl/crdbl/pkg/platform/sentinel"
)

// Issuer is the external credential issuer contract consumed by the service.
// Satisfied by *issuer.Client.
type Issuer interface {
	CreateIdentity(ctx context.Context) (domain.IssuerIdentity, error)
	Issue(ctx context.Context, req issuer.IssueRequest) (domain.Credential, error)
	Verify(ctx context.Context, jwt string) (domain.VerificationResult, error)
}

// ContentStore is the content-addressed blob store contract.
type ContentStore interface {
	Put(ctx context.Context, content string) (string, error)
	Get(ctx context.Context, cid string) (string, error)
}

// Oracle is the semantic consistency judge contract.
type Oracle interface {
	Evaluate(ctx context.Context, claim string, contextTexts []string) (oracle.Verdict, error)
}

// Service wires the issuance and verification flows. Construct once at
// startup; it is safe for concurrent use.
type Service struct {
	store   store.Store
	issuer  Issuer
	content ContentStore
	oracle  Oracle

	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor audit.Publisher
	tracer  trace.Tracer

	newID    func() string
	newAlias func() (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the Prometheus instruments. Nil metrics are skipped so
// tests can construct services freely.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditor sets the audit publisher.
func WithAuditor(p audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

// WithIDGenerator overrides credential id generation, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithAliasGenerator overrides alias generation, for tests.
func WithAliasGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newAlias = gen }
}

// New constructs the credential service. ttl bounds the verification cache.
func New(st store.Store, iss Issuer, content ContentStore, orc Oracle, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		store:    st,
		issuer:   iss,
		content:  content,
		oracle:   orc,
		ttl:      ttl,
		logger:   slog.Default(),
		auditor:  audit.Nop{},
		tracer:   otel.Tracer("crdbl/credential"),
		newID:    func() string { return "urn:uuid:" + uuid.NewString() },
		newAlias: NewAlias,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueRequest is the holder's issuance claim.
type IssueRequest struct {
	SubjectDID    string
	Attributes    domain.CredentialAttributes
	Signature     string
	GenerateAlias bool
}

// Issue runs the full issuance pipeline. Each step is a hard gate; a failure
// at any step aborts with no credential written. A failure after the content
// upload leaves an orphaned blob, which is accepted garbage.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (domain.Credential, error) {
	ctx, span := s.tracer.Start(ctx, "credential.issue",
		trace.WithAttributes(attribute.Int("context.count", len(req.Attributes.Context))))
	defer span.End()

	start := time.Now()
	cred, err := s.issue(ctx, req)
	if err != nil {
		span.RecordError(err)
		if s.metrics != nil {
			s.metrics.IssuanceFailures.WithLabelValues(string(apperr.CodeOf(err))).Inc()
		}
		return domain.Credential{}, err
	}

	if s.metrics != nil {
		s.metrics.IssuedTotal.Inc()
		s.metrics.IssuanceDuration.Observe(time.Since(start).Seconds())
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionIssued,
		CredentialID: cred.ID,
		HolderDID:    req.SubjectDID,
	}); err != nil {
		s.logger.Warn("audit emit failed", "action", audit.ActionIssued, "error", err)
	}
	return cred, nil
}

func (s *Service) issue(ctx context.Context, req IssueRequest) (domain.Credential, error) {
	if err := validateIssueRequest(req); err != nil {
		return domain.Credential{}, err
	}

	iss, err := s.store.GetIssuer(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return domain.Credential{}, apperr.New(apperr.CodeConfig, "issuer identity not bootstrapped")
	}
	if err != nil {
		return domain.Credential{}, apperr.Wrap(apperr.CodeUpstream, err, "load issuer identity")
	}

	// The holder signature covers the plaintext content plus the context
	// list, before the content is replaced by its content-store id.
	ok, err := identity.Verify(req.SubjectDID, req.Attributes.Content, req.Attributes.Context, req.Signature)
	if err != nil {
		return domain.Credential{}, apperr.Wrap(apperr.CodeInvalidInput, err, "malformed signature input")
	}
	if !ok {
		return domain.Credential{}, apperr.New(apperr.CodeInvalidSignature, "invalid signature")
	}

	if len(req.Attributes.Context) > 0 {
		if err := s.resolveAndGate(ctx, req.Attributes.Content, req.Attributes.Context); err != nil {
			return domain.Credential{}, err
		}
	}

	// Ids are assigned only after every context check has passed; this
	// ordering is what keeps context chains acyclic.
	id := s.newID()
	alias := ""
	if req.GenerateAlias {
		alias, err = s.newAlias()
		if err != nil {
			return domain.Credential{}, apperr.Wrap(apperr.CodeInternal, err, "generate alias")
		}
	}

	// Content must exist in the content store before the credential claims
	// it; the credential's content field becomes the CID.
	cid, err := s.content.Put(ctx, req.Attributes.Content)
	if err != nil {
		return domain.Credential{}, apperr.Wrap(apperr.CodeUpstream, err, "upload content")
	}

	cred, err := s.issuer.Issue(ctx, issuer.IssueRequest{
		ID:         id,
		IssuerDID:  iss.DID,
		SubjectDID: req.SubjectDID,
		Attributes: domain.CredentialAttributes{
			Content: cid,
			Context: req.Attributes.Context,
			Alias:   alias,
		},
		Format: "jwt",
	})
	if err != nil {
		return domain.Credential{}, err
	}
	if cred.ID == "" {
		cred.ID = id
	}

	if err := s.store.SetCredential(ctx, cred.ID, cred, req.SubjectDID); err != nil {
		return domain.Credential{}, apperr.Wrap(apperr.CodeUpstream, err, "persist credential")
	}
	return cred, nil
}

func validateIssueRequest(req IssueRequest) error {
	if req.SubjectDID == "" {
		return apperr.New(apperr.CodeInvalidInput, "subjectDid is required")
	}
	if req.Attributes.Content == "" {
		return apperr.New(apperr.CodeInvalidInput, "attributes.content is required")
	}
	if req.Signature == "" {
		return apperr.New(apperr.CodeInvalidInput, "signature is required")
	}
	for _, id := range req.Attributes.Context {
		if id == "" {
			return apperr.New(apperr.CodeInvalidInput, "context ids must be non-empty strings")
		}
	}
	return nil
}

// Get resolves a credential by id or alias.
func (s *Service) Get(ctx context.Context, idOrAlias string) (domain.Credential, error) {
	cred, err := s.store.GetCredential(ctx, idOrAlias)
	if errors.Is(err, sentinel.ErrNotFound) {
		return domain.Credential{}, apperr.New(apperr.CodeNotFound, "credential not found: %s", idOrAlias)
	}
	if err != nil {
		return domain.Credential{}, apperr.Wrap(apperr.CodeUpstream, err, "load credential")
	}
	return cred, nil
}

// ListByHolder returns every credential indexed for a holder DID. Dangling
// index entries are dropped by the store.
func (s *Service) ListByHolder(ctx context.Context, holderDID string) ([]domain.Credential, error) {
	creds, err := s.store.GetCredentialsByHolder(ctx, holderDID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUpstream, err, "list credentials")
	}
	return creds, nil
}

// GetOrVerify resolves a credential and returns its verification result,
// served from cache within the TTL window. This is the single verification
// choke point: the verify endpoint and the context gate both go through it.
func (s *Service) GetOrVerify(ctx context.Context, idOrAlias string) (domain.VerificationResult, error) {
	cred, err := s.Get(ctx, idOrAlias)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	result, err := s.verify(ctx, cred)
	if err != nil {
		return domain.VerificationResult{}, err
	}

	verified := result.Verified
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionVerified,
		CredentialID: cred.ID,
		HolderDID:    cred.HolderDID(),
		Verified:     &verified,
	}); err != nil {
		s.logger.Warn("audit emit failed", "action", audit.ActionVerified, "error", err)
	}
	return result, nil
}

// verify returns the cached verdict for cred, or consults the external
// verifier and caches the result for the configured TTL.
func (s *Service) verify(ctx context.Context, cred domain.Credential) (domain.VerificationResult, error) {
	cached, err := s.store.GetVerification(ctx, cred.ID)
	if err == nil {
		if s.metrics != nil {
			s.metrics.VerifierCacheHits.Inc()
		}
		return cached, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return domain.VerificationResult{}, apperr.Wrap(apperr.CodeUpstream, err, "read verification cache")
	}

	if s.metrics != nil {
		s.metrics.VerifierCalls.Inc()
	}
	result, err := s.issuer.Verify(ctx, cred.Proof.JWT)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	if err := s.store.SetVerification(ctx, cred.ID, result, s.ttl); err != nil {
		return domain.VerificationResult{}, apperr.Wrap(apperr.CodeUpstream, err, "cache verification")
	}
	return result, nil
}

// BootstrapIssuer provisions the deployment's issuer identity once. Calling
// it again returns the existing identity without touching the external
// issuer.
func (s *Service) BootstrapIssuer(ctx context.Context) (domain.IssuerIdentity, bool, error) {
	existing, err := s.store.GetIssuer(ctx)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return domain.IssuerIdentity{}, false, apperr.Wrap(apperr.CodeUpstream, err, "load issuer identity")
	}

	created, err := s.issuer.CreateIdentity(ctx)
	if err != nil {
		return domain.IssuerIdentity{}, false, err
	}
	if err := s.store.SetIssuer(ctx, created); err != nil {
		return domain.IssuerIdentity{}, false, apperr.Wrap(apperr.CodeUpstream, err, "persist issuer identity")
	}
	return created, true, nil
}

// Health probes the credential store.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}
