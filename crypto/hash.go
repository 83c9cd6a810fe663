package crypto

import "crypto/sha256"

// Sha256 hashes the concatenation of parts without an intermediate copy.
func Sha256(parts ...[]byte) []byte {
	hasher := sha256.New()
	for _, p := range parts {
		hasher.Write(p)
	}
	return hasher.Sum(nil)
}
