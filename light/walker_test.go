package light_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tonlight/tonlight/libs/log"
	"github.com/tonlight/tonlight/light"
	"github.com/tonlight/tonlight/light/provider"
	provider_mocks "github.com/tonlight/tonlight/light/provider/mocks"
	"github.com/tonlight/tonlight/types"
)

func TestWalkTwoKeyBlocks(t *testing.T) {
	b := standardChain(t)
	w := light.NewWalker(b.chain, light.WalkerLogger(log.TestingLogger()))

	links, err := w.Walk(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, links, 1)

	link := links[0]
	assert.True(t, link.Trusted.ID.Equals(b.ids[25]))
	assert.True(t, link.Target.Equals(b.ids[40]))

	// the directory of the link comes from key block 25
	dir, err := types.NewValidatorDirectory(link.Trusted.Block.Config.ValidatorSet)
	require.NoError(t, err)
	for i := range b.keys[25] {
		idx, val := dir.GetByNodeID(b.keys[25].pubKey(i).NodeID())
		assert.NotEqual(t, int32(-1), idx)
		assert.NotNil(t, val)
	}
}

func TestWalkOrdersOldToNew(t *testing.T) {
	b := standardChain(t)
	links, err := light.NewWalker(b.chain).Walk(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.EqualValues(t, 10, links[0].Trusted.ID.SeqNo)
	assert.EqualValues(t, 25, links[0].Target.SeqNo)
	assert.EqualValues(t, 25, links[1].Trusted.ID.SeqNo)
	assert.EqualValues(t, 40, links[1].Target.SeqNo)

	// tip, then key blocks only; block 33 is jumped over
	assert.Equal(t, 4, b.chain.Calls("DecodedBlock"))
}

func TestWalkInsufficientHistory(t *testing.T) {
	b := standardChain(t)
	w := light.NewWalker(b.chain)

	_, err := w.Walk(context.Background(), 4)
	var eih light.ErrInsufficientHistory
	require.True(t, errors.As(err, &eih), "got %v", err)
	assert.Equal(t, light.ErrInsufficientHistory{Want: 4, Got: 3}, eih)

	_, err = w.Walk(context.Background(), 1)
	assert.Error(t, err)
}

func TestWalkStopsAtGenesis(t *testing.T) {
	b := newChainBuilder(t)
	b.keyBlock(0, genPrivKeys(2), nil, 2)
	b.keyBlock(3, genPrivKeys(2), nil, 2)

	links, err := light.NewWalker(b.chain).Walk(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.EqualValues(t, 0, links[0].Trusted.ID.SeqNo)

	_, err = light.NewWalker(b.chain).Walk(context.Background(), 3)
	assert.Equal(t, light.ErrInsufficientHistory{Want: 3, Got: 2}, err)
}

func TestWalkSelfReference(t *testing.T) {
	b := newChainBuilder(t)
	id, header := genBlock(12)
	b.chain.AddBlock(id, &types.DecodedBlock{SeqNo: 12, IsKeyBlock: true, PrevKeyBlockSeqno: 12}, header)

	_, err := light.NewWalker(b.chain).Walk(context.Background(), 2)
	assert.Equal(t, light.ErrInsufficientHistory{Want: 2, Got: 1}, err)
}

func TestWalkSeqnoMismatch(t *testing.T) {
	b := newChainBuilder(t)
	b.keyBlock(10, genPrivKeys(2), nil, 2)
	id, header := genBlock(25)
	b.chain.AddBlock(id, &types.DecodedBlock{SeqNo: 26, IsKeyBlock: true, PrevKeyBlockSeqno: 10}, header)

	_, err := light.NewWalker(b.chain).Walk(context.Background(), 2)
	var esm light.ErrStructuralMismatch
	require.True(t, errors.As(err, &esm), "got %v", err)
	assert.EqualValues(t, 25, esm.SeqNo)
}

func TestWalkIOError(t *testing.T) {
	tip, _ := genBlock(50)
	src := &provider_mocks.BlockSource{}
	src.On("ChainTip", mock.Anything).Return(tip, nil)
	src.On("DecodedBlock", mock.Anything, tip).Return(nil, provider.ErrNoResponse)

	_, err := light.NewWalker(src).Walk(context.Background(), 2)
	assert.ErrorIs(t, err, provider.ErrNoResponse)
	src.AssertExpectations(t)
}

func TestWalkFrom(t *testing.T) {
	b := standardChain(t)
	ctx := context.Background()
	w := light.NewWalker(b.chain)

	trusted, err := w.Walk(ctx, 3)
	require.NoError(t, err)
	oldest := trusted[0].Trusted

	links, err := w.WalkFrom(ctx, oldest)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Same(t, oldest, links[0].Trusted)
	assert.EqualValues(t, 40, links[1].Target.SeqNo)

	newest := &types.KeyBlock{ID: b.ids[40], Block: &types.DecodedBlock{SeqNo: 40, IsKeyBlock: true, PrevKeyBlockSeqno: 25}}
	links, err = w.WalkFrom(ctx, newest)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestWalkFromForeignBlock(t *testing.T) {
	b := standardChain(t)
	ctx := context.Background()

	// same seqno, different hashes
	id, _ := genBlock(25)
	foreign := &types.KeyBlock{ID: id, Block: &types.DecodedBlock{SeqNo: 25, IsKeyBlock: true, PrevKeyBlockSeqno: 10}}
	_, err := light.NewWalker(b.chain).WalkFrom(ctx, foreign)
	var esm light.ErrStructuralMismatch
	require.True(t, errors.As(err, &esm), "got %v", err)

	// not a key block seqno at all
	id, _ = genBlock(30)
	foreign = &types.KeyBlock{ID: id, Block: &types.DecodedBlock{SeqNo: 30, IsKeyBlock: true, PrevKeyBlockSeqno: 25}}
	_, err = light.NewWalker(b.chain).WalkFrom(ctx, foreign)
	require.True(t, errors.As(err, &esm), "got %v", err)
	assert.EqualValues(t, 25, esm.SeqNo)
}
