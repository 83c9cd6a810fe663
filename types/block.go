package types

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/tonlight/tonlight/cell"
	"github.com/tonlight/tonlight/crypto"
	tlbytes "github.com/tonlight/tonlight/libs/bytes"
)

const (
	// MasterchainID is the workchain id of the masterchain.
	MasterchainID int32 = -1
	// ShardAll is the shard prefix covering the whole workchain.
	ShardAll int64 = math.MinInt64

	// SigningPayloadMagic prefixes every signed block id.
	SigningPayloadMagic uint32 = 0x706E0BC5
	// SigningPayloadSize is magic + root hash + file hash.
	SigningPayloadSize = 4 + 2*crypto.HashSize
)

// BlockID identifies a block.
type BlockID struct {
	Workchain int32            `json:"workchain"`
	Shard     int64            `json:"shard,string"`
	SeqNo     uint32           `json:"seqno"`
	RootHash  tlbytes.HexBytes `json:"root_hash"`
	FileHash  tlbytes.HexBytes `json:"file_hash"`
}

// ValidateBasic performs basic validation.
func (id BlockID) ValidateBasic() error {
	if len(id.RootHash) != crypto.HashSize {
		return fmt.Errorf("expected root hash of size %d, got %d", crypto.HashSize, len(id.RootHash))
	}
	if len(id.FileHash) != crypto.HashSize {
		return fmt.Errorf("expected file hash of size %d, got %d", crypto.HashSize, len(id.FileHash))
	}
	return nil
}

// IsMasterchain returns true for masterchain blocks.
func (id BlockID) IsMasterchain() bool {
	return id.Workchain == MasterchainID
}

// Equals returns true if both ids are identical.
func (id BlockID) Equals(other BlockID) bool {
	return id.Workchain == other.Workchain &&
		id.Shard == other.Shard &&
		id.SeqNo == other.SeqNo &&
		bytes.Equal(id.RootHash, other.RootHash) &&
		bytes.Equal(id.FileHash, other.FileHash)
}

func (id BlockID) String() string {
	return fmt.Sprintf("(%d,%x,%d):%v:%v",
		id.Workchain, uint64(id.Shard), id.SeqNo, id.RootHash.ShortString(), id.FileHash.ShortString())
}

// SigningPayload is the exact byte sequence validators sign for a block:
// magic || root hash || file hash.
type SigningPayload [SigningPayloadSize]byte

// NewSigningPayload builds the payload. Both hashes must be 32 bytes.
func NewSigningPayload(rootHash, fileHash []byte) (SigningPayload, error) {
	var p SigningPayload
	if len(rootHash) != crypto.HashSize || len(fileHash) != crypto.HashSize {
		return p, fmt.Errorf("root and file hash must be %d bytes, got %d and %d",
			crypto.HashSize, len(rootHash), len(fileHash))
	}
	binary.BigEndian.PutUint32(p[:4], SigningPayloadMagic)
	copy(p[4:], rootHash)
	copy(p[4+crypto.HashSize:], fileHash)
	return p, nil
}

// Bytes returns the payload as a slice.
func (p SigningPayload) Bytes() []byte {
	return p[:]
}

// SignatureClaim is a signature published by a signature source together
// with the short node id of the claimed signer.
type SignatureClaim struct {
	NodeIDShort tlbytes.Base64Bytes `json:"node_id_short"`
	Signature   tlbytes.Base64Bytes `json:"signature"`
}

func (c SignatureClaim) String() string {
	return fmt.Sprintf("SignatureClaim{%X}", []byte(c.NodeIDShort))
}

// BlockHeader is a block id together with the Merkle proof of its header.
// The first reference of Proof is the block root cell.
type BlockHeader struct {
	ID    BlockID    `json:"id"`
	Proof *cell.Cell `json:"proof"`
}

// ComputedRootHash recomputes the root hash from the proof.
func (h *BlockHeader) ComputedRootHash() ([]byte, error) {
	if h.Proof == nil {
		return nil, errors.New("missing header proof")
	}
	if err := h.Proof.Validate(); err != nil {
		return nil, fmt.Errorf("invalid header proof: %w", err)
	}
	root, err := h.Proof.Ref(0)
	if err != nil {
		return nil, fmt.Errorf("invalid header proof: %w", err)
	}
	return root.Hash(), nil
}

// DecodedBlock is what the light client needs out of a decoded block.
type DecodedBlock struct {
	SeqNo             uint32       `json:"seqno"`
	IsKeyBlock        bool         `json:"key_block"`
	PrevKeyBlockSeqno uint32       `json:"prev_key_block_seqno"`
	Config            *BlockConfig `json:"config,omitempty"`
}

// KeyBlock is a decoded key block and the id it was fetched by.
type KeyBlock struct {
	ID    BlockID       `json:"id"`
	Block *DecodedBlock `json:"block"`
}

// ValidateBasic checks the key block is self-consistent.
func (kb *KeyBlock) ValidateBasic() error {
	if kb == nil {
		return errors.New("nil key block")
	}
	if err := kb.ID.ValidateBasic(); err != nil {
		return fmt.Errorf("invalid block id: %w", err)
	}
	if kb.Block == nil {
		return errors.New("missing decoded block")
	}
	if !kb.Block.IsKeyBlock {
		return fmt.Errorf("block %d is not a key block", kb.Block.SeqNo)
	}
	if kb.Block.SeqNo != kb.ID.SeqNo {
		return fmt.Errorf("decoded seqno %d does not match id seqno %d", kb.Block.SeqNo, kb.ID.SeqNo)
	}
	return nil
}

func (kb *KeyBlock) String() string {
	if kb == nil {
		return "nil-KeyBlock"
	}
	return fmt.Sprintf("KeyBlock{%v}", kb.ID)
}

// Link is one step of a chain of trust: the validators of Trusted must have
// signed Target.
type Link struct {
	Trusted *KeyBlock
	Target  BlockID
}

func (l Link) String() string {
	if l.Trusted == nil {
		return fmt.Sprintf("Link{nil -> %d}", l.Target.SeqNo)
	}
	return fmt.Sprintf("Link{%d -> %d}", l.Trusted.ID.SeqNo, l.Target.SeqNo)
}
