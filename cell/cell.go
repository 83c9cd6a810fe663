// Package cell models the decoded form of a TVM cell as handed over by a BOC
// decoder, and computes its level-0 representation hash. Only ordinary cells
// and pruned-branch leaves are represented; that is enough to recompute the
// root hash of a block header carried inside a Merkle proof.
package cell

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tonlight/tonlight/libs/bytes"
)

const (
	// MaxBits is the data capacity of a single cell.
	MaxBits = 1023
	// MaxRefs is the number of child references a cell can hold.
	MaxRefs = 4
	// HashSize is the size of a representation hash.
	HashSize = sha256.Size
)

// Cell is a node of a cell tree. Data holds Bits bits, most significant bit
// first; bits past Bits in the last byte are ignored.
//
// A cell with Pruned set stands for a subtree that was cut out of a Merkle
// proof; only its stored hash and depth are known.
type Cell struct {
	Bits   int            `json:"bits"`
	Data   bytes.HexBytes `json:"data"`
	Refs   []*Cell        `json:"refs,omitempty"`
	Pruned *PrunedBranch  `json:"pruned,omitempty"`
}

// PrunedBranch carries the level-0 hash and depth of a removed subtree.
type PrunedBranch struct {
	Hash  bytes.HexBytes `json:"hash"`
	Depth uint16         `json:"depth"`
}

// New returns an ordinary cell holding the whole of data (8 bits per byte).
func New(data []byte, refs ...*Cell) *Cell {
	return &Cell{Bits: len(data) * 8, Data: append([]byte(nil), data...), Refs: refs}
}

// NewPruned returns a pruned-branch placeholder.
func NewPruned(hash []byte, depth uint16) *Cell {
	return &Cell{Pruned: &PrunedBranch{Hash: append([]byte(nil), hash...), Depth: depth}}
}

// Validate checks the structural limits of the whole tree.
func (c *Cell) Validate() error {
	if c == nil {
		return errors.New("nil cell")
	}
	if c.Pruned != nil {
		if len(c.Pruned.Hash) != HashSize {
			return fmt.Errorf("pruned branch hash must be %d bytes, got %d", HashSize, len(c.Pruned.Hash))
		}
		if len(c.Refs) != 0 || c.Bits != 0 {
			return errors.New("pruned branch cannot carry data or refs")
		}
		return nil
	}
	if c.Bits < 0 || c.Bits > MaxBits {
		return fmt.Errorf("cell holds %d bits, max %d", c.Bits, MaxBits)
	}
	if need := (c.Bits + 7) / 8; len(c.Data) < need {
		return fmt.Errorf("cell declares %d bits but carries %d bytes", c.Bits, len(c.Data))
	}
	if len(c.Refs) > MaxRefs {
		return fmt.Errorf("cell has %d refs, max %d", len(c.Refs), MaxRefs)
	}
	for i, r := range c.Refs {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("ref #%d: %w", i, err)
		}
	}
	return nil
}

// Ref returns the i-th child or an error when it does not exist.
func (c *Cell) Ref(i int) (*Cell, error) {
	if c == nil || i < 0 || i >= len(c.Refs) {
		return nil, fmt.Errorf("cell has no ref #%d", i)
	}
	return c.Refs[i], nil
}

// Depth is 0 for a leaf, otherwise one more than the deepest child.
func (c *Cell) Depth() uint16 {
	if c.Pruned != nil {
		return c.Pruned.Depth
	}
	var d uint16
	for _, r := range c.Refs {
		if rd := r.Depth() + 1; rd > d {
			d = rd
		}
	}
	return d
}

// Hash returns the level-0 representation hash:
//
//	SHA256(d1 || d2 || padded data || depth(ref_i)... || hash(ref_i)...)
//
// with d1 = number of refs and d2 = floor(bits/8) + ceil(bits/8). Depths are
// two bytes big-endian. The caller must have validated the tree.
func (c *Cell) Hash() []byte {
	if c.Pruned != nil {
		return append([]byte(nil), c.Pruned.Hash...)
	}

	h := sha256.New()
	h.Write(c.descriptors())
	h.Write(c.paddedData())

	var depth [2]byte
	for _, r := range c.Refs {
		binary.BigEndian.PutUint16(depth[:], r.Depth())
		h.Write(depth[:])
	}
	for _, r := range c.Refs {
		h.Write(r.Hash())
	}
	return h.Sum(nil)
}

func (c *Cell) descriptors() []byte {
	d1 := byte(len(c.Refs))
	d2 := byte(c.Bits/8 + (c.Bits+7)/8)
	return []byte{d1, d2}
}

// paddedData appends a single 1 bit after the payload and zero-fills the rest
// of the byte when Bits is not a multiple of 8.
func (c *Cell) paddedData() []byte {
	n := (c.Bits + 7) / 8
	out := make([]byte, n)
	copy(out, c.Data[:n])
	if rem := c.Bits % 8; rem != 0 {
		mask := byte(0xff) << (8 - rem)
		out[n-1] = out[n-1]&mask | 1<<(7-rem)
	}
	return out
}
