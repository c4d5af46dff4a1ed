package credential

import (
	"context"
	"errors"

	"github.com/crdbl/crdbl/internal/oracle"
	"github.com/crdbl/crdbl/pkg/apperr"
	"github.com/crdbl/crdbl/pkg/platform/sentinel"
)

// resolveAndGate resolves each context credential in order, confirms it
// verifies, fetches its content body, and submits the claim plus the
// assembled context texts to the consistency oracle. Every failure names the
// context id that broke so callers can report it precisely.
//
// Only an explicit contradiction blocks issuance. An ambiguous verdict is
// deliberately non-blocking: absence of evidence is not contradiction.
func (s *Service) resolveAndGate(ctx context.Context, claim string, contextIDs []string) error {
	texts := make([]string, 0, len(contextIDs))
	for _, id := range contextIDs {
		cred, err := s.store.GetCredential(ctx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			return apperr.New(apperr.CodeContextNotFound, "context credential not found: %s", id)
		}
		if err != nil {
			return apperr.Wrap(apperr.CodeUpstream, err, "load context credential %s", id)
		}

		// Same cached verification path as the verify endpoint, so a
		// context credential is verified at most once per TTL window.
		result, err := s.verify(ctx, cred)
		if err != nil {
			return err
		}
		if !result.Verified {
			return apperr.New(apperr.CodeContextNotVerified, "context credential not verified: %s", id)
		}

		text, err := s.content.Get(ctx, cred.CredentialSubject.Content)
		if errors.Is(err, sentinel.ErrNotFound) {
			return apperr.New(apperr.CodeContextContentMissing, "context content missing: %s", id)
		}
		if err != nil {
			return apperr.Wrap(apperr.CodeUpstream, err, "fetch context content %s", id)
		}
		texts = append(texts, text)
	}

	verdict, err := s.oracle.Evaluate(ctx, claim, texts)
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.OracleVerdicts.WithLabelValues(verdict.String()).Inc()
	}
	if verdict == oracle.Contradictory {
		return apperr.New(apperr.CodeContentNotCredible, "claim contradicts its context")
	}
	return nil
}
