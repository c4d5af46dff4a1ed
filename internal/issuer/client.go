// Package issuer is the HTTP client for the external credential issuer
// (cheqd studio). It creates issuer identities, issues signed credentials,
// and verifies credential proofs. Failures are surfaced as upstream errors
// with the provider's message; nothing is retried here.
package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crdbl/crdbl/internal/domain"
	"github.com/crdbl/crdbl/internal/platform/config"
	"github.com/crdbl/crdbl/pkg/apperr"
)

// Client talks to the issuer's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	network    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New constructs a Client from configuration.
func New(cfg config.IssuerConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		network:    cfg.Network,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateIdentity provisions a new issuer DID on the configured network. Run
// once per deployment by the bootstrap step.
func (c *Client) CreateIdentity(ctx context.Context) (domain.IssuerIdentity, error) {
	body := map[string]any{
		"network":                c.network,
		"identifierFormatType":   "uuid",
		"assertionMethod":        true,
		"verificationMethodType": "Ed25519VerificationKey2020",
	}
	var identity domain.IssuerIdentity
	if err := c.post(ctx, "/did/create", body, &identity); err != nil {
		return domain.IssuerIdentity{}, err
	}
	return identity, nil
}

// IssueRequest is the issuance payload. ID is the pre-assigned credential id;
// Attributes carry the content-store id, never plaintext.
type IssueRequest struct {
	ID         string                      `json:"id,omitempty"`
	IssuerDID  string                      `json:"issuerDid"`
	SubjectDID string                      `json:"subjectDid"`
	Attributes domain.CredentialAttributes `json:"attributes"`
	Format     string                      `json:"format"`
}

// Issue requests a signed credential artifact.
func (c *Client) Issue(ctx context.Context, req IssueRequest) (domain.Credential, error) {
	if req.Format == "" {
		req.Format = "jwt"
	}
	var cred domain.Credential
	if err := c.post(ctx, "/credential/issue", req, &cred); err != nil {
		return domain.Credential{}, err
	}
	return cred, nil
}

// Verify submits a credential proof JWT and returns the provider's verdict.
func (c *Client) Verify(ctx context.Context, jwt string) (domain.VerificationResult, error) {
	body := map[string]any{"credential": jwt}
	var result domain.VerificationResult
	if err := c.post(ctx, "/credential/verify", body, &result); err != nil {
		return domain.VerificationResult{}, err
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.CodeUpstream, err, "credential issuer unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.Wrap(apperr.CodeUpstream, err, "read credential issuer response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.New(apperr.CodeUpstream, "credential issuer %s: %s", resp.Status, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Wrap(apperr.CodeUpstream, err, "decode credential issuer response")
	}
	return nil
}
