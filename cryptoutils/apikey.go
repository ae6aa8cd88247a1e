package cryptoutils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"golang.org/x/crypto/blake2b"
)

const (
	// SecretLength is the number of hex symbols in a generated API secret.
	SecretLength = 64

	// HashLength is the number of hex symbols in an API key hash (2 * blake2b.Size256).
	HashLength = 2 * blake2b.Size256
)

// GenerateAPISecret returns a fresh API secret of SecretLength lowercase hex symbols.
// Every symbol is drawn uniformly from 0-9a-f using crypto/rand, giving 256 bits of entropy.
func GenerateAPISecret() (string, error) {
	raw := make([]byte, SecretLength/2)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// HashAPISecret computes the BLAKE2b-256 digest of the secret's raw bytes,
// rendered as lowercase hex. This is the value an Ergo node expects in apiKeyHash.
func HashAPISecret(secret []byte) string {
	sum := blake2b.Sum256(secret)
	return hex.EncodeToString(sum[:])
}

// CheckSecret validates that a secret can be written to a key file as-is.
// Key files are hashed byte for byte, so leading or trailing whitespace is rejected
// instead of being silently stripped.
func CheckSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is empty", interfaces.ErrInvalidSecret)
	}
	if strings.TrimFunc(secret, unicode.IsSpace) != secret {
		return fmt.Errorf("%w: secret has leading or trailing whitespace", interfaces.ErrInvalidSecret)
	}
	return nil
}

// IsHexDigest reports whether s looks like an API key hash.
func IsHexDigest(s string) bool {
	if len(s) != HashLength {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
