package fixture

import (
	"context"
	"fmt"

	"github.com/tonlight/tonlight/light/provider"
	"github.com/tonlight/tonlight/types"
)

// Source serves a fixture set as both a BlockSource and a SignatureSource.
// It is read-only and safe for concurrent use.
type Source struct {
	f       *Fixtures
	bySeqno map[uint32]int // seqno => index in f.Blocks
}

var (
	_ provider.BlockSource     = (*Source)(nil)
	_ provider.SignatureSource = (*Source)(nil)
)

// NewSource indexes f. f must have passed ValidateBasic.
func NewSource(f *Fixtures) *Source {
	bySeqno := make(map[uint32]int, len(f.Blocks))
	for i, kb := range f.Blocks {
		bySeqno[kb.ID.SeqNo] = i
	}
	return &Source{f: f, bySeqno: bySeqno}
}

func (s *Source) ChainTip(ctx context.Context) (types.BlockID, error) {
	if len(s.f.Blocks) == 0 {
		return types.BlockID{}, provider.ErrBlockNotFound
	}
	return s.f.Blocks[len(s.f.Blocks)-1].ID, nil
}

func (s *Source) Header(ctx context.Context, id types.BlockID) (*types.BlockHeader, error) {
	i, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	// the oldest block is trusted as is; nothing signs it
	if i == 0 {
		return nil, provider.ErrBlockNotFound
	}
	return &types.BlockHeader{ID: s.f.Blocks[i].ID, Proof: s.f.HeaderHashes[i-1].Proof}, nil
}

func (s *Source) DecodedBlock(ctx context.Context, id types.BlockID) (*types.DecodedBlock, error) {
	i, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.f.Blocks[i].Block, nil
}

func (s *Source) BlockBySeqno(ctx context.Context, seqno uint32) (types.BlockID, error) {
	i, ok := s.bySeqno[seqno]
	if !ok {
		return types.BlockID{}, provider.ErrBlockNotFound
	}
	return s.f.Blocks[i].ID, nil
}

func (s *Source) SignaturesFor(ctx context.Context, seqno uint32) ([]types.SignatureClaim, error) {
	i, ok := s.bySeqno[seqno]
	if !ok || i == 0 {
		return nil, provider.ErrBlockNotFound
	}
	return s.f.Signatures[i-1].Signatures, nil
}

func (s *Source) lookup(id types.BlockID) (int, error) {
	i, ok := s.bySeqno[id.SeqNo]
	if !ok || !s.f.Blocks[i].ID.Equals(id) {
		return 0, provider.ErrBlockNotFound
	}
	return i, nil
}

func (s *Source) String() string {
	if len(s.f.Blocks) == 0 {
		return "Fixtures{}"
	}
	return fmt.Sprintf("Fixtures{%d..%d}", s.f.Blocks[0].ID.SeqNo, s.f.Blocks[len(s.f.Blocks)-1].ID.SeqNo)
}
