package provider

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/tonlight/tonlight/types"
)

// DefaultCacheSize is the number of entries NewCached keeps per kind.
const DefaultCacheSize = 256

// Cached wraps a BlockSource and remembers decoded blocks and seqno lookups.
// A decoded block is only served for the exact id it was fetched by. Only
// successful results are stored; errors always reach the caller and the
// next call goes to the underlying source again.
type Cached struct {
	BlockSource

	decoded *lru.Cache // seqno => decodedEntry
	ids     *lru.Cache // seqno => types.BlockID
}

// decodedEntry remembers which id a block was fetched by. A hit for the same
// seqno under a different id is a miss.
type decodedEntry struct {
	id    types.BlockID
	block *types.DecodedBlock
}

var _ BlockSource = (*Cached)(nil)

// NewCached returns a caching decorator around src. A size of 0 selects
// DefaultCacheSize.
func NewCached(src BlockSource, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	decoded, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	ids, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cached{BlockSource: src, decoded: decoded, ids: ids}, nil
}

// DecodedBlock implements BlockSource.
func (c *Cached) DecodedBlock(ctx context.Context, id types.BlockID) (*types.DecodedBlock, error) {
	if v, ok := c.decoded.Get(id.SeqNo); ok {
		if e := v.(decodedEntry); e.id.Equals(id) {
			return e.block, nil
		}
	}
	b, err := c.BlockSource.DecodedBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	c.decoded.Add(id.SeqNo, decodedEntry{id: id, block: b})
	return b, nil
}

// BlockBySeqno implements BlockSource.
func (c *Cached) BlockBySeqno(ctx context.Context, seqno uint32) (types.BlockID, error) {
	if v, ok := c.ids.Get(seqno); ok {
		return v.(types.BlockID), nil
	}
	id, err := c.BlockSource.BlockBySeqno(ctx, seqno)
	if err != nil {
		return types.BlockID{}, err
	}
	c.ids.Add(seqno, id)
	return id, nil
}

func (c *Cached) String() string {
	return fmt.Sprintf("Cached{%v}", c.BlockSource)
}
