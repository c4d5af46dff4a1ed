// Package httptransport is the thin HTTP layer. Handlers parse and validate
// requests, delegate to the credential service, and translate coded errors
// into JSON envelopes; no business logic lives here.
package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crdbl/crdbl/pkg/apperr"
)

// NewRouter wires all public endpoints.
func NewRouter(h *CredentialHandler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// writeJSON writes a success payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError centralizes coded-error translation to HTTP responses so every
// endpoint shares the same {"error": ...} envelope.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := apperr.CodeOf(err)
	status := apperr.ToHTTPStatus(code)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "code", code, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": apperr.MessageOf(err),
		"code":  string(code),
	})
}
