package credential

import (
	"crypto/rand"
	"fmt"
)

// aliasAlphabet avoids characters that read ambiguously when shared by hand
// (0/o, 1/l/i).
const aliasAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

const aliasLength = 8

// NewAlias generates a short human-safe token. Aliases are a convenience
// index, not an identity guarantee: collisions are not deduplicated and last
// writer wins on the binding.
func NewAlias() (string, error) {
	buf := make([]byte, aliasLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = aliasAlphabet[int(b)%len(aliasAlphabet)]
	}
	return string(buf), nil
}
