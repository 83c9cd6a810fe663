package crypto

import (
	"crypto/sha256"

	"github.com/tonlight/tonlight/libs/bytes"
)

const (
	// HashSize is the size in bytes of a node id or a block hash.
	HashSize = sha256.Size
)

// NodeID is the 32-byte identity a validator signs under. It is hex-encoded
// in JSON.
type NodeID = bytes.HexBytes

type PubKey interface {
	NodeID() NodeID
	Bytes() []byte
	VerifySignature(msg []byte, sig []byte) bool
	Equals(PubKey) bool
	Type() string
}

type PrivKey interface {
	Bytes() []byte
	Sign(msg []byte) ([]byte, error)
	PubKey() PubKey
	Equals(PrivKey) bool
	Type() string
}

// BatchVerifier verifies many signatures at once. The per-entry results let
// callers pinpoint the offending signature when the batch as a whole fails.
type BatchVerifier interface {
	// Add appends an entry into the BatchVerifier.
	Add(key PubKey, message, signature []byte) error
	// Verify verifies all the entries in the BatchVerifier, and returns
	// if every signature in the batch is valid, and a vector of bools
	// indicating the verification status of each signature (in the order
	// that signatures were added to the batch).
	Verify() (bool, []bool)
}
