// Package domain holds the core crdbl data model. Types here mirror the wire
// shapes of the external credential issuer so stored artifacts round-trip
// through JSON without translation layers.
package domain

// CredentialAttributes is the versioned claim payload bound to a credential
// subject. Content holds plaintext up to the moment the holder signature is
// checked and a content-store id afterwards; the signature always covers the
// plaintext form.
type CredentialAttributes struct {
	// Content is the claimed text, replaced by a content-store id at
	// persistence time.
	Content string `json:"content"`

	// Context lists ids of previously issued credentials this claim depends
	// on. Order is caller-supplied and preserved; it is significant for the
	// signature but not for gating.
	Context []string `json:"context,omitempty"`

	// Alias is an optional short human-friendly token resolving to the
	// credential id. Immutable once bound.
	Alias string `json:"alias,omitempty"`
}

// CredentialSubject is the subject block of an issued credential: the holder
// DID plus the attributes the issuer attested.
type CredentialSubject struct {
	CredentialAttributes
	ID string `json:"id"` // holder did:key
}

// Proof is the issuer's signature artifact. The JWT is what the external
// verifier consumes.
type Proof struct {
	JWT  string `json:"jwt"`
	Type string `json:"type"`
}

// Issuer is the issuer block of a credential.
type Issuer struct {
	ID string `json:"id"`
}

// Credential is the signed artifact returned by the external issuer.
// Immutable once issued; identified primarily by ID, secondarily by the
// optional alias inside the subject attributes.
type Credential struct {
	Context           []string          `json:"@context"`
	ID                string            `json:"id"`
	Type              []string          `json:"type"`
	Issuer            Issuer            `json:"issuer"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	CredentialStatus  map[string]any    `json:"credentialStatus,omitempty"`
	IssuanceDate      string            `json:"issuanceDate"`
	Proof             Proof             `json:"proof"`
}

// HolderDID returns the subject DID the credential is bound to.
func (c Credential) HolderDID() string {
	return c.CredentialSubject.ID
}

// IssuerIdentity is the deployment-wide issuer singleton created once by the
// bootstrap step and read by every issuance.
type IssuerIdentity struct {
	DID             string `json:"did"`
	ControllerKeyID string `json:"controllerKeyId"`
}

// Signer identifies the key that produced a verified proof.
type Signer struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
}

// VerificationResult is the external verifier's verdict over a credential
// proof. It is a memoization of an expensive call, cached with a bounded TTL,
// not authoritative state: revocation after caching is acceptably stale
// within the TTL window.
type VerificationResult struct {
	Verified bool `json:"verified"`
	Policies struct {
		CredentialStatus bool `json:"credentialStatus"`
	} `json:"policies"`
	Issuer string `json:"issuer"`
	Signer Signer `json:"signer"`
}
