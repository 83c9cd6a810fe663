package fixture_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonlight/tonlight/cell"
	"github.com/tonlight/tonlight/crypto"
	"github.com/tonlight/tonlight/crypto/ed25519"
	"github.com/tonlight/tonlight/light/provider"
	"github.com/tonlight/tonlight/light/provider/fixture"
	"github.com/tonlight/tonlight/types"
)

func keyBlock(seqno, prev uint32, root *cell.Cell) *types.KeyBlock {
	pk := ed25519.GenPrivKey().PubKey().(ed25519.PubKey)
	return &types.KeyBlock{
		ID: types.BlockID{
			Workchain: types.MasterchainID,
			Shard:     types.ShardAll,
			SeqNo:     seqno,
			RootHash:  root.Hash(),
			FileHash:  crypto.CRandBytes(32),
		},
		Block: &types.DecodedBlock{
			SeqNo:             seqno,
			IsKeyBlock:        true,
			PrevKeyBlockSeqno: prev,
			Config: &types.BlockConfig{
				ValidatorSet: &types.ValidatorSetParam{
					Total: 1,
					Main:  1,
					List:  []types.ValidatorDescr{{PubKey: []byte(pk), Weight: uint256.NewInt(10).Bytes()}},
				},
				ValidatorLimits: &types.ValidatorLimitsParam{MaxValidators: 100, MaxMainValidators: 100, MinValidators: 1},
			},
		},
	}
}

func makeFixtures(t *testing.T, seqnos ...uint32) *fixture.Fixtures {
	t.Helper()

	f := &fixture.Fixtures{}
	var prev uint32
	for i, s := range seqnos {
		root := cell.New([]byte{byte(i), 0xAA}, cell.New(crypto.CRandBytes(8)))
		kb := keyBlock(s, prev, root)
		f.Blocks = append(f.Blocks, kb)
		prev = s

		if i == 0 {
			continue
		}
		dir, err := types.NewValidatorDirectory(kb.Block.Config.ValidatorSet)
		require.NoError(t, err)
		f.Signatures = append(f.Signatures, fixture.BlockSignatures{
			SeqNo: s,
			Signatures: []types.SignatureClaim{
				{NodeIDShort: crypto.CRandBytes(32), Signature: crypto.CRandBytes(64)},
			},
		})
		f.HeaderHashes = append(f.HeaderHashes, fixture.HeaderHash{
			BlockHash: kb.ID.RootHash,
			FileHash:  kb.ID.FileHash,
			Proof:     cell.New(nil, root),
		})
		f.ValidatorSets = append(f.ValidatorSets, fixture.ValidatorSet{
			Threshold:  "10",
			Validators: dir.Validators(),
		})
	}
	return f
}

func TestWriteLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fixtures")
	f := makeFixtures(t, 10, 25, 40)

	require.NoError(t, fixture.Write(dir, f))
	for _, name := range []string{
		fixture.BlocksFile, fixture.SignaturesFile, fixture.HeaderHashesFile, fixture.ValidatorSetsFile,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}

	loaded, err := fixture.Load(dir)
	require.NoError(t, err)
	if diff := cmp.Diff(f, loaded, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("fixtures differ (-want +got):\n%s", diff)
	}

	links := loaded.Links()
	require.Len(t, links, 2)
	assert.EqualValues(t, 10, links[0].Trusted.ID.SeqNo)
	assert.EqualValues(t, 25, links[0].Target.SeqNo)
	assert.EqualValues(t, 25, links[1].Trusted.ID.SeqNo)
	assert.EqualValues(t, 40, links[1].Target.SeqNo)
}

func TestValidateBasic(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(f *fixture.Fixtures)
	}{
		{"single block", func(f *fixture.Fixtures) { f.Blocks = f.Blocks[:1] }},
		{"short signatures", func(f *fixture.Fixtures) { f.Signatures = f.Signatures[:1] }},
		{"wrong signature seqno", func(f *fixture.Fixtures) { f.Signatures[0].SeqNo = 11 }},
		{"wrong header hash", func(f *fixture.Fixtures) { f.HeaderHashes[1].BlockHash = crypto.CRandBytes(32) }},
		{"not ascending", func(f *fixture.Fixtures) { f.Blocks[0], f.Blocks[1] = f.Blocks[1], f.Blocks[0] }},
		{"wrong threshold", func(f *fixture.Fixtures) { f.ValidatorSets[1].Threshold = "11" }},
		{"trusted validator set", func(f *fixture.Fixtures) {
			dir, err := types.NewValidatorDirectory(f.Blocks[0].Block.Config.ValidatorSet)
			require.NoError(t, err)
			f.ValidatorSets[0].Validators = dir.Validators()
		}},
		{"no validators", func(f *fixture.Fixtures) { f.ValidatorSets[0].Validators = nil }},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := makeFixtures(t, 10, 25, 40)
			tc.mutate(f)
			assert.Error(t, f.ValidateBasic())
			assert.Error(t, fixture.Write(t.TempDir(), f))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, fixture.Write(dir, makeFixtures(t, 1, 2)))
	require.NoError(t, os.Remove(filepath.Join(dir, fixture.ValidatorSetsFile)))

	_, err := fixture.Load(dir)
	assert.Error(t, err)
}

func TestSource(t *testing.T) {
	ctx := context.Background()
	f := makeFixtures(t, 10, 25, 40)
	src := fixture.NewSource(f)

	tip, err := src.ChainTip(ctx)
	require.NoError(t, err)
	assert.True(t, tip.Equals(f.Blocks[2].ID))

	id, err := src.BlockBySeqno(ctx, 25)
	require.NoError(t, err)
	assert.True(t, id.Equals(f.Blocks[1].ID))
	_, err = src.BlockBySeqno(ctx, 26)
	assert.ErrorIs(t, err, provider.ErrBlockNotFound)

	b, err := src.DecodedBlock(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 10, b.PrevKeyBlockSeqno)

	h, err := src.Header(ctx, id)
	require.NoError(t, err)
	root, err := h.ComputedRootHash()
	require.NoError(t, err)
	assert.Equal(t, []byte(id.RootHash), root)

	_, err = src.Header(ctx, f.Blocks[0].ID)
	assert.ErrorIs(t, err, provider.ErrBlockNotFound)

	claims, err := src.SignaturesFor(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, f.Signatures[1].Signatures, claims)

	forged := id
	forged.FileHash = crypto.CRandBytes(32)
	_, err = src.DecodedBlock(ctx, forged)
	assert.ErrorIs(t, err, provider.ErrBlockNotFound)

	assert.Equal(t, "Fixtures{10..40}", src.String())
}

func TestNextValidatorSet(t *testing.T) {
	f := makeFixtures(t, 10, 25)
	next := f.Blocks[1]
	next.Block.Config.ValidatorSet.List = append(next.Block.Config.ValidatorSet.List,
		types.ValidatorDescr{
			PubKey: ed25519.GenPrivKey().PubKey().Bytes(),
			Weight: uint256.NewInt(30).Bytes(),
		},
		types.ValidatorDescr{
			PubKey: ed25519.GenPrivKey().PubKey().Bytes(),
			Weight: uint256.NewInt(20).Bytes(),
		},
	)
	// max_main_validators comes from the trusted block
	f.Blocks[0].Block.Config.ValidatorLimits.MaxMainValidators = 2
	next.Block.Config.ValidatorLimits.MaxMainValidators = 1

	vs, err := fixture.NextValidatorSet(f.Blocks[0], next)
	require.NoError(t, err)
	assert.Equal(t, "50", vs.Threshold)
	require.Len(t, vs.Validators, 3)
	assert.EqualValues(t, 30, vs.Validators[0].Weight.Uint64())
	assert.EqualValues(t, 10, vs.Validators[2].Weight.Uint64())

	f.ValidatorSets[0] = vs
	assert.NoError(t, f.ValidateBasic())

	f.Blocks[0].Block.Config.ValidatorLimits = nil
	_, err = fixture.NextValidatorSet(f.Blocks[0], next)
	var emc types.ErrMissingConfig
	assert.ErrorAs(t, err, &emc)
}
