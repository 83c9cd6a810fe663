package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tonlight/tonlight/light/provider"
	"github.com/tonlight/tonlight/types"
)

// Chain is an in-memory masterchain. It serves blocks, header proofs and
// signatures that were added to it and counts the calls it receives.
type Chain struct {
	mtx     sync.Mutex
	ids     map[uint32]types.BlockID
	blocks  map[uint32]*types.DecodedBlock
	headers map[uint32]*types.BlockHeader
	sigs    map[uint32][]types.SignatureClaim
	tip     uint32
	calls   map[string]int
}

var (
	_ provider.BlockSource     = (*Chain)(nil)
	_ provider.SignatureSource = (*Chain)(nil)
)

// New creates an empty chain.
func New() *Chain {
	return &Chain{
		ids:     make(map[uint32]types.BlockID),
		blocks:  make(map[uint32]*types.DecodedBlock),
		headers: make(map[uint32]*types.BlockHeader),
		sigs:    make(map[uint32][]types.SignatureClaim),
		calls:   make(map[string]int),
	}
}

// AddBlock stores a block. header may be nil. The highest seqno added is the
// chain tip.
func (c *Chain) AddBlock(id types.BlockID, block *types.DecodedBlock, header *types.BlockHeader) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.ids[id.SeqNo] = id
	c.blocks[id.SeqNo] = block
	if header != nil {
		c.headers[id.SeqNo] = header
	}
	if id.SeqNo > c.tip {
		c.tip = id.SeqNo
	}
}

// SetSignatures sets the claims served for seqno.
func (c *Chain) SetSignatures(seqno uint32, claims []types.SignatureClaim) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.sigs[seqno] = claims
}

// SetHeader replaces the header served for seqno.
func (c *Chain) SetHeader(seqno uint32, header *types.BlockHeader) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.headers[seqno] = header
}

// Calls returns how many times method was called.
func (c *Chain) Calls(method string) int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.calls[method]
}

func (c *Chain) ChainTip(ctx context.Context) (types.BlockID, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.calls["ChainTip"]++

	id, ok := c.ids[c.tip]
	if !ok {
		return types.BlockID{}, provider.ErrBlockNotFound
	}
	return id, nil
}

func (c *Chain) Header(ctx context.Context, id types.BlockID) (*types.BlockHeader, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.calls["Header"]++

	if !c.known(id) {
		return nil, provider.ErrBlockNotFound
	}
	h, ok := c.headers[id.SeqNo]
	if !ok {
		return nil, provider.ErrBlockNotFound
	}
	return h, nil
}

func (c *Chain) DecodedBlock(ctx context.Context, id types.BlockID) (*types.DecodedBlock, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.calls["DecodedBlock"]++

	if !c.known(id) {
		return nil, provider.ErrBlockNotFound
	}
	return c.blocks[id.SeqNo], nil
}

func (c *Chain) BlockBySeqno(ctx context.Context, seqno uint32) (types.BlockID, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.calls["BlockBySeqno"]++

	id, ok := c.ids[seqno]
	if !ok {
		return types.BlockID{}, provider.ErrBlockNotFound
	}
	return id, nil
}

func (c *Chain) SignaturesFor(ctx context.Context, seqno uint32) ([]types.SignatureClaim, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.calls["SignaturesFor"]++

	claims, ok := c.sigs[seqno]
	if !ok {
		return nil, provider.ErrBlockNotFound
	}
	return claims, nil
}

func (c *Chain) known(id types.BlockID) bool {
	stored, ok := c.ids[id.SeqNo]
	return ok && stored.Equals(id)
}

func (c *Chain) String() string {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	seqnos := make([]int, 0, len(c.ids))
	for s := range c.ids {
		seqnos = append(seqnos, int(s))
	}
	sort.Ints(seqnos)

	var sb strings.Builder
	for _, s := range seqnos {
		marker := ""
		if b := c.blocks[uint32(s)]; b != nil && b.IsKeyBlock {
			marker = "*"
		}
		fmt.Fprintf(&sb, " %d%s", s, marker)
	}
	return fmt.Sprintf("MockChain{%s}", sb.String())
}

// Dead is a source that never responds.
type Dead struct{}

var (
	_ provider.BlockSource     = Dead{}
	_ provider.SignatureSource = Dead{}
)

func (Dead) ChainTip(context.Context) (types.BlockID, error) {
	return types.BlockID{}, provider.ErrNoResponse
}

func (Dead) Header(context.Context, types.BlockID) (*types.BlockHeader, error) {
	return nil, provider.ErrNoResponse
}

func (Dead) DecodedBlock(context.Context, types.BlockID) (*types.DecodedBlock, error) {
	return nil, provider.ErrNoResponse
}

func (Dead) BlockBySeqno(context.Context, uint32) (types.BlockID, error) {
	return types.BlockID{}, provider.ErrNoResponse
}

func (Dead) SignaturesFor(context.Context, uint32) ([]types.SignatureClaim, error) {
	return nil, provider.ErrNoResponse
}

func (Dead) String() string { return "DeadMock" }
