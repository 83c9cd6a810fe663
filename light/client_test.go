package light_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tonlight/tonlight/cell"
	"github.com/tonlight/tonlight/libs/log"
	"github.com/tonlight/tonlight/light"
	"github.com/tonlight/tonlight/light/provider"
	"github.com/tonlight/tonlight/light/provider/fixture"
	provider_mocks "github.com/tonlight/tonlight/light/provider/mocks"
	"github.com/tonlight/tonlight/types"
)

func newClient(b *chainBuilder, prefetch bool) *light.Client {
	return light.NewClient(b.chain, b.chain,
		light.Logger(log.TestingLogger()),
		light.Prefetch(prefetch))
}

func TestVerifyChain(t *testing.T) {
	for _, prefetch := range []bool{false, true} {
		prefetch := prefetch
		t.Run(map[bool]string{false: "sequential", true: "prefetch"}[prefetch], func(t *testing.T) {
			defer leaktest.Check(t)()

			b := standardChain(t)
			links, err := light.NewWalker(b.chain).Walk(context.Background(), 3)
			require.NoError(t, err)

			require.NoError(t, newClient(b, prefetch).VerifyChain(context.Background(), links))
			assert.Equal(t, 2, b.chain.Calls("Header"))
			assert.Equal(t, 2, b.chain.Calls("SignaturesFor"))
		})
	}
}

func TestVerifyLatest(t *testing.T) {
	b := standardChain(t)
	latest, err := newClient(b, true).VerifyLatest(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, latest.Equals(b.ids[40]))
}

func TestVerifyChainEmpty(t *testing.T) {
	b := standardChain(t)
	assert.NoError(t, newClient(b, true).VerifyChain(context.Background(), nil))
}

// fourKeyBlocks returns a chain with key blocks 10, 25, 40 and 55.
func fourKeyBlocks(t *testing.T) (*chainBuilder, []light.Link) {
	b := standardChain(t)
	b.keyBlock(55, genPrivKeys(3), nil, 3)
	links, err := light.NewWalker(b.chain).Walk(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, links, 3)
	return b, links
}

func TestVerifyChainFailFast(t *testing.T) {
	for _, prefetch := range []bool{false, true} {
		prefetch := prefetch
		t.Run(map[bool]string{false: "sequential", true: "prefetch"}[prefetch], func(t *testing.T) {
			defer leaktest.Check(t)()

			b, links := fourKeyBlocks(t)
			// 30 + 20 of 100
			b.chain.SetSignatures(40, b.keys[25].signBlock(t, b.ids[40], 1, 3))

			err := newClient(b, prefetch).VerifyChain(context.Background(), links)
			var evf light.ErrVerificationFailed
			require.True(t, errors.As(err, &evf), "got %v", err)
			assert.EqualValues(t, 25, evf.From)
			assert.EqualValues(t, 40, evf.To)

			var eiq light.ErrInsufficientQuorum
			require.True(t, errors.As(err, &eiq))
			assert.Equal(t, uint256.NewInt(50), eiq.Got)
			assert.Equal(t, uint256.NewInt(100), eiq.Threshold)

			if !prefetch {
				// link 40 -> 55 is never touched
				assert.Equal(t, 2, b.chain.Calls("Header"))
				assert.Equal(t, 2, b.chain.Calls("SignaturesFor"))
			}
		})
	}
}

func TestVerifyChainStructuralMismatchBeforeSignatures(t *testing.T) {
	b := standardChain(t)
	links, err := light.NewWalker(b.chain).Walk(context.Background(), 2)
	require.NoError(t, err)

	// a proof of some other block
	_, other := genBlock(40)
	b.chain.SetHeader(40, &types.BlockHeader{ID: b.ids[40], Proof: other.Proof})

	sigs := &provider_mocks.SignatureSource{}
	c := light.NewClient(b.chain, sigs, light.Prefetch(false))

	err = c.VerifyChain(context.Background(), links)
	var esm light.ErrStructuralMismatch
	require.True(t, errors.As(err, &esm), "got %v", err)
	assert.EqualValues(t, 40, esm.SeqNo)
	sigs.AssertNotCalled(t, "SignaturesFor", mock.Anything, mock.Anything)
}

func TestVerifyChainBadProof(t *testing.T) {
	b := standardChain(t)
	links, err := light.NewWalker(b.chain).Walk(context.Background(), 2)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		header *types.BlockHeader
	}{
		{"no proof", &types.BlockHeader{ID: b.ids[40]}},
		{"proof without root", &types.BlockHeader{ID: b.ids[40], Proof: cell.New(nil)}},
		{"header of another block", &types.BlockHeader{ID: b.ids[25], Proof: cell.New(nil)}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b.chain.SetHeader(40, tc.header)
			err := newClient(b, true).VerifyChain(context.Background(), links)
			var esm light.ErrStructuralMismatch
			assert.True(t, errors.As(err, &esm), "got %v", err)
		})
	}
}

func TestVerifyChainInvalidSignature(t *testing.T) {
	b := standardChain(t)
	links, err := light.NewWalker(b.chain).Walk(context.Background(), 2)
	require.NoError(t, err)

	claims := b.keys[25].signBlock(t, b.ids[40], 0, 3)
	claims[2].Signature[0] ^= 0x80
	b.chain.SetSignatures(40, claims)

	err = newClient(b, false).VerifyChain(context.Background(), links)
	var eis light.ErrInvalidSignature
	require.True(t, errors.As(err, &eis), "got %v", err)
	assert.Equal(t, 2, eis.Index)
}

func TestVerifyChainConfigErrors(t *testing.T) {
	b := standardChain(t)
	links, err := light.NewWalker(b.chain).Walk(context.Background(), 2)
	require.NoError(t, err)

	trusted := *links[0].Trusted
	block := *trusted.Block
	trusted.Block = &block
	link := light.Link{Trusted: &trusted, Target: links[0].Target}

	block.Config = &types.BlockConfig{ValidatorSet: b.keys[25].ToValidatorSet()}
	err = newClient(b, false).VerifyChain(context.Background(), []light.Link{link})
	var emc light.ErrMissingConfig
	require.True(t, errors.As(err, &emc), "got %v", err)
	assert.Equal(t, types.ConfigParamValidatorLimits, emc.Param)

	block.Config = &types.BlockConfig{ValidatorLimits: &types.ValidatorLimitsParam{MaxMainValidators: 3}}
	err = newClient(b, false).VerifyChain(context.Background(), []light.Link{link})
	require.True(t, errors.As(err, &emc), "got %v", err)
	assert.Equal(t, types.ConfigParamCurrentValidators, emc.Param)

	block.Config = &types.BlockConfig{
		ValidatorSet:    &types.ValidatorSetParam{},
		ValidatorLimits: &types.ValidatorLimitsParam{MaxMainValidators: 3},
	}
	err = newClient(b, false).VerifyChain(context.Background(), []light.Link{link})
	var emf light.ErrMalformedConfig
	require.True(t, errors.As(err, &emf), "got %v", err)
}

func TestVerifyChainIOErrors(t *testing.T) {
	defer leaktest.Check(t)()

	b, links := fourKeyBlocks(t)
	sigs := &provider_mocks.SignatureSource{}
	sigs.On("SignaturesFor", mock.Anything, uint32(25)).Return(b.keys[10].signBlock(t, b.ids[25], 0, 4), nil)
	sigs.On("SignaturesFor", mock.Anything, uint32(40)).Return(nil, provider.ErrNoResponse)

	c := light.NewClient(b.chain, sigs)
	err := c.VerifyChain(context.Background(), links)
	var evf light.ErrVerificationFailed
	require.True(t, errors.As(err, &evf), "got %v", err)
	assert.EqualValues(t, 40, evf.To)
	assert.ErrorIs(t, err, provider.ErrNoResponse)
	sigs.AssertNotCalled(t, "SignaturesFor", mock.Anything, uint32(55))
}

func TestVerifyChainCancelled(t *testing.T) {
	defer leaktest.Check(t)()

	b, links := fourKeyBlocks(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newClient(b, true).VerifyChain(ctx, links)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateFixtures(t *testing.T) {
	ctx := context.Background()
	b, links := fourKeyBlocks(t)

	f, err := light.GenerateFixtures(ctx, newClient(b, true), links)
	require.NoError(t, err)
	require.Len(t, f.Blocks, 4)
	require.Len(t, f.ValidatorSets, 3)
	// validators of #25 under max_main_validators 4 of #10
	assert.Equal(t, "100", f.ValidatorSets[0].Threshold)
	require.Len(t, f.ValidatorSets[0].Validators, 3)
	assert.EqualValues(t, 50, f.ValidatorSets[0].Validators[0].Weight.Uint64())
	// validators of #40 under max_main_validators 3 of #25
	assert.Equal(t, "30", f.ValidatorSets[1].Threshold)
	assert.Len(t, f.ValidatorSets[1].Validators, 5)
	assert.Equal(t, "30", f.ValidatorSets[2].Threshold)
	assert.Len(t, f.ValidatorSets[2].Validators, 3)
	for i, seqno := range []uint32{10, 25, 40, 55} {
		assert.True(t, f.Blocks[i].ID.Equals(b.ids[seqno]))
		assert.True(t, f.Blocks[i].Block.IsKeyBlock)
	}

	dir := filepath.Join(t.TempDir(), "fixtures")
	require.NoError(t, fixture.Write(dir, f))
	loaded, err := fixture.Load(dir)
	require.NoError(t, err)

	// replay from disk, without the chain
	src := fixture.NewSource(loaded)
	replay := light.NewClient(src, src, light.Logger(log.TestingLogger()))
	require.NoError(t, replay.VerifyChain(ctx, loaded.Links()))

	latest, err := replay.VerifyLatest(ctx, 4)
	require.NoError(t, err)
	assert.True(t, latest.Equals(b.ids[55]))
}

func TestGenerateFixturesFailsFast(t *testing.T) {
	b, links := fourKeyBlocks(t)
	b.chain.SetSignatures(55, nil)

	f, err := light.GenerateFixtures(context.Background(), newClient(b, false), links)
	assert.Nil(t, f)
	var eiq light.ErrInsufficientQuorum
	assert.True(t, errors.As(err, &eiq), "got %v", err)
}
