package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrEmptyKey is returned when the identity key is blank.
var ErrEmptyKey = errors.New("public key is required")

// Generate derives the agent fingerprint from its public identity key:
// lowercase hex SHA-256 of the key bytes. Deterministic, so the fingerprint
// can serve as a stable secondary key and never changes for a given key.
func Generate(publicKey string) (string, error) {
	if publicKey == "" {
		return "", ErrEmptyKey
	}
	sum := sha256.Sum256([]byte(publicKey))
	return hex.EncodeToString(sum[:]), nil
}
