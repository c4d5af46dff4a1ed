package credential

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/crdbl/crdbl/internal/domain"
	"github.com/crdbl/crdbl/pkg/apperr"
)

// DecodeProofClaims decodes the credential's proof JWT payload without
// verifying it, for display alongside the stored artifact. Trust comes from
// the verify endpoint; this is presentation only.
func DecodeProofClaims(cred domain.Credential) (map[string]any, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(cred.Proof.JWT, claims); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "decode proof jwt")
	}
	return claims, nil
}
