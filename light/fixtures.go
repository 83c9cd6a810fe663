package light

import (
	"context"
	"errors"
	"fmt"

	"github.com/tonlight/tonlight/light/provider/fixture"
	"github.com/tonlight/tonlight/types"
)

// GenerateFixtures verifies links exactly like VerifyChain and records
// everything a verifier needs to replay them: the key blocks, the signature
// claims, the header proofs and the contract-facing validator sets. Nothing
// is returned unless every link verifies.
//
// The validator set recorded for a link is the one its target introduces,
// with the threshold taken over max_main_validators of the trusted block. It
// is what a contract stores to check the next link.
func GenerateFixtures(ctx context.Context, c *Client, links []Link) (*fixture.Fixtures, error) {
	if len(links) == 0 {
		return nil, errors.New("no links to record")
	}

	f := &fixture.Fixtures{
		Blocks: []*types.KeyBlock{links[0].Trusted},
	}
	record := func(res *LinkResult) {
		f.Blocks = append(f.Blocks, &types.KeyBlock{ID: res.Link.Target})
		f.Signatures = append(f.Signatures, fixture.BlockSignatures{
			SeqNo:      res.Link.Target.SeqNo,
			Signatures: res.Claims,
		})
		f.HeaderHashes = append(f.HeaderHashes, fixture.HeaderHash{
			BlockHash: res.Link.Target.RootHash,
			FileHash:  res.Link.Target.FileHash,
			Proof:     res.Header.Proof,
		})
	}
	if err := c.verifyChain(ctx, links, record); err != nil {
		return nil, err
	}

	// Targets are recorded by id; fill in the decoded key blocks. The trusted
	// block of link i+1 is the target of link i.
	for i := 1; i < len(links); i++ {
		f.Blocks[i] = links[i].Trusted
	}
	last := links[len(links)-1].Target
	block, err := c.blocks.DecodedBlock(ctx, last)
	if err != nil {
		return nil, err
	}
	f.Blocks[len(f.Blocks)-1] = &types.KeyBlock{ID: last, Block: block}

	for i, link := range links {
		vs, err := fixture.NextValidatorSet(link.Trusted, f.Blocks[i+1])
		if err != nil {
			return nil, fmt.Errorf("validator set of #%d: %w", link.Target.SeqNo, err)
		}
		f.ValidatorSets = append(f.ValidatorSets, vs)
	}

	if err := f.ValidateBasic(); err != nil {
		return nil, err
	}
	return f, nil
}
