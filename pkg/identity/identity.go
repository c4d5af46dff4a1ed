// Package identity implements holder-side did:key material: key generation,
// DID derivation, and signing/verification of content+context bundles.
//
// The DID format follows the did:key method: multicodec Ed25519-pub tag
// (0xED 0x01) prepended to the raw public key, base58btc encoded with the
// multibase 'z' prefix. See https://w3c-ccg.github.io/did-method-key/#format.
package identity

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const didKeyPrefix = "did:key:z"

// multicodec tag for an Ed25519 public key.
var ed25519PubCodec = []byte{0xed, 0x01}

// Validation errors. Verify fails closed on malformed input with one of these
// (wrapped with detail) so callers can distinguish bad input from a bad
// signature, which is reported as a clean false.
var (
	ErrMalformedDID     = errors.New("malformed did:key")
	ErrPublicKeySize    = errors.New("public key must be 32 bytes")
	ErrSignatureSize    = errors.New("signature must be 64 bytes")
	ErrInvalidEncoding  = errors.New("invalid hex encoding")
	ErrPrivateKeySize   = errors.New("private key must be 32 bytes")
	ErrUnsupportedCodec = errors.New("unsupported key type")
)

// Identity is a holder keypair plus its derived DID. The private key never
// leaves the holder's custody; the server only ever sees the DID string.
type Identity struct {
	DID        string `json:"did"`
	PrivateKey string `json:"privateKey"` // hex-encoded 32-byte seed
	PublicKey  string `json:"publicKey"`  // hex-encoded 32-byte key
}

// Generate creates a fresh Ed25519 keypair and derives its did:key. Pure
// computation; the caller owns persistence.
func Generate() (Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, fmt.Errorf("generate keypair: %w", err)
	}
	return Identity{
		DID:        DIDFromPublicKey(pub),
		PrivateKey: hex.EncodeToString(priv.Seed()),
		PublicKey:  hex.EncodeToString(pub),
	}, nil
}

// DIDFromPublicKey derives the did:key for a raw Ed25519 public key.
func DIDFromPublicKey(pub ed25519.PublicKey) string {
	prefixed := make([]byte, 0, len(ed25519PubCodec)+len(pub))
	prefixed = append(prefixed, ed25519PubCodec...)
	prefixed = append(prefixed, pub...)
	return didKeyPrefix + base58.Encode(prefixed)
}

// PublicKeyFromDID reverses DIDFromPublicKey. It rejects a missing prefix, a
// wrong multicodec tag, and any decoded key that is not exactly 32 bytes.
func PublicKeyFromDID(did string) (ed25519.PublicKey, error) {
	if !strings.HasPrefix(did, didKeyPrefix) {
		return nil, fmt.Errorf("%w: %q lacks %q prefix", ErrMalformedDID, did, didKeyPrefix)
	}
	decoded, err := base58.Decode(strings.TrimPrefix(did, didKeyPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDID, err)
	}
	if len(decoded) < len(ed25519PubCodec) || !bytes.Equal(decoded[:len(ed25519PubCodec)], ed25519PubCodec) {
		return nil, fmt.Errorf("%w: want multicodec 0xed01", ErrUnsupportedCodec)
	}
	pub := decoded[len(ed25519PubCodec):]
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d", ErrPublicKeySize, len(pub))
	}
	return ed25519.PublicKey(pub), nil
}

// Sign signs a content+context bundle with the holder's private key (hex seed)
// and returns the hex-encoded signature. The message covers the plaintext
// content, never a content-store id.
func Sign(privateKeyHex, content string, context []string) (string, error) {
	seed, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(seed) != ed25519.SeedSize {
		return "", fmt.Errorf("%w: got %d", ErrPrivateKeySize, len(seed))
	}
	msg, err := message(content, context)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(ed25519.NewKeyFromSeed(seed), msg)
	return hex.EncodeToString(sig), nil
}

// Verify checks a hex signature over a content+context bundle against the
// public key embedded in the DID. A mismatched signature over well-formed
// inputs returns (false, nil); malformed inputs return an error.
func Verify(did, content string, context []string, signatureHex string) (bool, error) {
	pub, err := PublicKeyFromDID(did)
	if err != nil {
		return false, err
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(sig) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: got %d", ErrSignatureSize, len(sig))
	}
	msg, err := message(content, context)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, msg, sig), nil
}

// message builds the canonical signing input: content, a newline, then the
// JSON array serialization of context. A nil context serializes as [] so the
// bytes are identical whether the caller omitted the field or sent an empty
// list. Element order inside context is significant.
func message(content string, context []string) ([]byte, error) {
	if context == nil {
		context = []string{}
	}
	ctxJSON, err := json.Marshal(context)
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}
	var b bytes.Buffer
	b.WriteString(content)
	b.WriteByte('\n')
	b.Write(ctxJSON)
	return b.Bytes(), nil
}
