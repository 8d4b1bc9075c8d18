// Package sha256 derives short URL keys from SHA-256.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"
)

// KeyLength is the number of base-36 symbols in a URL key.
const KeyLength = 12

// Hasher implements audit.KeyDeriver using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Key returns the URL key for url.
func (h *Hasher) Key(url string) string {
	return DeriveKey(url)
}

// DeriveKey reads the SHA-256 hex digest of url as an integer, re-encodes it
// in base 36 and keeps the first KeyLength symbols, left-padding with '0'.
// The key carries about 62 bits, which is fine for scanning a sheet by eye
// but offers no resistance to deliberate collisions.
func DeriveKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	n, _ := new(big.Int).SetString(hex.EncodeToString(sum[:]), 16)
	encoded := n.Text(36)
	if len(encoded) >= KeyLength {
		return encoded[:KeyLength]
	}
	return strings.Repeat("0", KeyLength-len(encoded)) + encoded
}
