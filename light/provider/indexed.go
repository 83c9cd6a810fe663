package provider

import (
	"context"
	"fmt"

	"github.com/tonlight/tonlight/types"
)

// ChainIndex resolves masterchain block ids.
type ChainIndex interface {
	ChainTip(ctx context.Context) (types.BlockID, error)
	BlockBySeqno(ctx context.Context, seqno uint32) (types.BlockID, error)
}

// Indexed serves headers and decoded blocks from a BlockSource and resolves
// block ids through a ChainIndex. Every id it hands out is known to both;
// when they disagree on a seqno the block is reported as ErrBadBlock.
type Indexed struct {
	BlockSource

	index ChainIndex
}

var _ BlockSource = (*Indexed)(nil)

// NewIndexed returns a BlockSource which takes block data from src and ids
// from index.
func NewIndexed(src BlockSource, index ChainIndex) *Indexed {
	return &Indexed{BlockSource: src, index: index}
}

// ChainTip returns the newest block of the underlying source, provided the
// index has reached it and resolves its seqno to the same id.
func (s *Indexed) ChainTip(ctx context.Context) (types.BlockID, error) {
	local, err := s.BlockSource.ChainTip(ctx)
	if err != nil {
		return types.BlockID{}, err
	}
	remote, err := s.index.ChainTip(ctx)
	if err != nil {
		return types.BlockID{}, fmt.Errorf("fetching indexed chain tip: %w", err)
	}
	if local.SeqNo > remote.SeqNo {
		return types.BlockID{}, ErrBadBlock{
			Reason: fmt.Errorf("block #%d is ahead of the indexed chain tip #%d", local.SeqNo, remote.SeqNo),
		}
	}
	return s.BlockBySeqno(ctx, local.SeqNo)
}

// BlockBySeqno implements BlockSource.
func (s *Indexed) BlockBySeqno(ctx context.Context, seqno uint32) (types.BlockID, error) {
	remote, err := s.index.BlockBySeqno(ctx, seqno)
	if err != nil {
		return types.BlockID{}, err
	}
	local, err := s.BlockSource.BlockBySeqno(ctx, seqno)
	if err != nil {
		return types.BlockID{}, err
	}
	if !local.Equals(remote) {
		return types.BlockID{}, ErrBadBlock{
			Reason: fmt.Errorf("block #%d is %v in the index but %v in %v", seqno, remote, local, s.BlockSource),
		}
	}
	return remote, nil
}

func (s *Indexed) String() string {
	return fmt.Sprintf("Indexed{%v}", s.BlockSource)
}
