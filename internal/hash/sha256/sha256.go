// Package sha256 provides the SHA-256 digests used for cache keys and snapshot paths.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements adcopy.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the lowercase hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	return h.HashString(string(data)), nil
}

// HashString returns the lowercase hex digest of s.
func (h *Hasher) HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
