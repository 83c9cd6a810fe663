package provider

import (
	"context"

	"github.com/tonlight/tonlight/types"
)

//go:generate ../../scripts/mockery_generate.sh BlockSource|SignatureSource

// BlockSource provides masterchain blocks to the light client. Decoding of
// the raw block data happens behind this interface.
type BlockSource interface {
	// ChainTip returns the id of the latest masterchain block.
	ChainTip(ctx context.Context) (types.BlockID, error)

	// Header returns the header proof of the given block.
	//
	// If there's no block with the given id, ErrBlockNotFound is returned.
	Header(ctx context.Context, id types.BlockID) (*types.BlockHeader, error)

	// DecodedBlock returns the decoded form of the given block.
	//
	// If there's no block with the given id, ErrBlockNotFound is returned.
	DecodedBlock(ctx context.Context, id types.BlockID) (*types.DecodedBlock, error)

	// BlockBySeqno returns the id of the masterchain block with the given
	// seqno.
	//
	// If there's no such block, ErrBlockNotFound is returned.
	BlockBySeqno(ctx context.Context, seqno uint32) (types.BlockID, error)

	String() string
}

// SignatureSource provides the signatures published for masterchain blocks.
type SignatureSource interface {
	// SignaturesFor returns the signature claims for the masterchain block
	// with the given seqno. Claims are not verified.
	SignaturesFor(ctx context.Context, seqno uint32) ([]types.SignatureClaim, error)

	String() string
}
