package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crdbl/crdbl/internal/credential"
	"github.com/crdbl/crdbl/internal/domain"
	"github.com/crdbl/crdbl/pkg/apperr"
)

// Service is the credential service surface the handlers need.
type Service interface {
	Issue(ctx context.Context, req credential.IssueRequest) (domain.Credential, error)
	Get(ctx context.Context, idOrAlias string) (domain.Credential, error)
	ListByHolder(ctx context.Context, holderDID string) ([]domain.Credential, error)
	GetOrVerify(ctx context.Context, idOrAlias string) (domain.VerificationResult, error)
	Health(ctx context.Context) error
}

// CredentialHandler wires credential endpoints to the credential service.
type CredentialHandler struct {
	service Service
	logger  *slog.Logger
}

// NewCredentialHandler constructs the handler with its dependencies.
func NewCredentialHandler(service Service, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{service: service, logger: logger}
}

// Register mounts credential endpoints on the router.
func (h *CredentialHandler) Register(r chi.Router) {
	r.Post("/credential/issue", h.handleIssue)
	r.Get("/credential/list/{did}", h.handleList)
	r.Get("/credential/verify/{id}", h.handleVerify)
	r.Get("/credential/{id}", h.handleGet)
	r.Get("/health", h.handleHealth)
}

// issueRequest is the POST /credential/issue body. Unknown fields are
// rejected so shape drift fails loudly instead of passing through.
type issueRequest struct {
	SubjectDID    string           `json:"subjectDid"`
	Attributes    *issueAttributes `json:"attributes"`
	Signature     string           `json:"signature"`
	GenerateAlias bool             `json:"generateAlias"`
}

type issueAttributes struct {
	Content string   `json:"content"`
	Context []string `json:"context"`
}

func (h *CredentialHandler) handleIssue(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req issueRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, h.logger, apperr.New(apperr.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.Attributes == nil {
		writeError(w, h.logger, apperr.New(apperr.CodeInvalidInput, "attributes is required"))
		return
	}

	cred, err := h.service.Issue(r.Context(), credential.IssueRequest{
		SubjectDID: req.SubjectDID,
		Attributes: domain.CredentialAttributes{
			Content: req.Attributes.Content,
			Context: req.Attributes.Context,
		},
		Signature:     req.Signature,
		GenerateAlias: req.GenerateAlias,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

func (h *CredentialHandler) handleList(w http.ResponseWriter, r *http.Request) {
	did := chi.URLParam(r, "did")
	creds, err := h.service.ListByHolder(r.Context(), did)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if creds == nil {
		creds = []domain.Credential{}
	}
	writeJSON(w, http.StatusOK, creds)
}

// credentialResponse pairs the stored artifact with the decoded (unverified)
// proof claims for display.
type credentialResponse struct {
	domain.Credential
	DecodedClaims map[string]any `json:"decodedClaims,omitempty"`
}

func (h *CredentialHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cred, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := credentialResponse{Credential: cred}
	if claims, err := credential.DecodeProofClaims(cred); err == nil {
		resp.DecodedClaims = claims
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CredentialHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.service.GetOrVerify(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CredentialHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		writeError(w, h.logger, apperr.Wrap(apperr.CodeUpstream, err, "store unhealthy"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
