package commands

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/tonlight/tonlight/cell"
	"github.com/tonlight/tonlight/config"
	"github.com/tonlight/tonlight/crypto"
	"github.com/tonlight/tonlight/crypto/ed25519"
	"github.com/tonlight/tonlight/libs/log"
	"github.com/tonlight/tonlight/light"
	"github.com/tonlight/tonlight/light/provider/fixture"
	"github.com/tonlight/tonlight/light/provider/mock"
	"github.com/tonlight/tonlight/types"
)

// testChain is a mock chain of key blocks at seqnos 10, 20, 30... Each key
// block has four validators of equal weight and is signed by all validators
// of the key block before it.
func testChain(t *testing.T, n int) *mock.Chain {
	t.Helper()

	chain := mock.New()
	var (
		prevKeys []ed25519.PrivKey
		prev     uint32
	)
	for i := 0; i < n; i++ {
		seqno := uint32(10 * (i + 1))

		keys := make([]ed25519.PrivKey, 4)
		param := &types.ValidatorSetParam{Total: 4, Main: 4}
		for j := range keys {
			keys[j] = ed25519.GenPrivKey()
			param.List = append(param.List, types.ValidatorDescr{
				PubKey: keys[j].PubKey().Bytes(),
				Weight: uint256.NewInt(10).Bytes(),
			})
		}

		var info [4]byte
		binary.BigEndian.PutUint32(info[:], seqno)
		root := cell.New(info[:], cell.NewPruned(crypto.CRandBytes(crypto.HashSize), 2))
		id := types.BlockID{
			Workchain: types.MasterchainID,
			Shard:     types.ShardAll,
			SeqNo:     seqno,
			RootHash:  root.Hash(),
			FileHash:  crypto.CRandBytes(crypto.HashSize),
		}
		chain.AddBlock(id, &types.DecodedBlock{
			SeqNo:             seqno,
			IsKeyBlock:        true,
			PrevKeyBlockSeqno: prev,
			Config: &types.BlockConfig{
				ValidatorSet: param,
				ValidatorLimits: &types.ValidatorLimitsParam{
					MaxValidators:     4,
					MaxMainValidators: 4,
					MinValidators:     1,
				},
			},
		}, &types.BlockHeader{ID: id, Proof: cell.New(nil, root)})

		if prevKeys != nil {
			payload, err := types.NewSigningPayload(id.RootHash, id.FileHash)
			require.NoError(t, err)
			var claims []types.SignatureClaim
			for _, k := range prevKeys {
				sig, err := k.Sign(payload.Bytes())
				require.NoError(t, err)
				claims = append(claims, types.SignatureClaim{
					NodeIDShort: []byte(k.PubKey().(ed25519.PubKey).NodeID()),
					Signature:   sig,
				})
			}
			chain.SetSignatures(seqno, claims)
		}
		prevKeys, prev = keys, seqno
	}
	return chain
}

// recordFixtures verifies the first count links of the chain's newest n key
// blocks and writes them to dir.
func recordFixtures(t *testing.T, chain *mock.Chain, n, count int, dir string) *fixture.Fixtures {
	t.Helper()
	ctx := context.Background()

	links, err := light.NewWalker(chain).Walk(ctx, n)
	require.NoError(t, err)
	f, err := light.GenerateFixtures(ctx, light.NewClient(chain, chain), links[:count])
	require.NoError(t, err)
	require.NoError(t, fixture.Write(dir, f))
	return f
}

// run executes the tonlight root command with args and a fresh viper. It
// returns the config the command ran with and what it printed.
func run(t *testing.T, args ...string) (*config.Config, string, error) {
	t.Helper()
	viper.Reset()

	conf := config.DefaultConfig()
	logger := log.MustNewDefaultLogger(config.LogFormatPlain, "error")

	root := RootCommand(conf, logger)
	root.AddCommand(
		MakeInitCommand(conf, logger),
		MakeVerifyCommand(conf, logger),
		MakeExportCommand(conf, logger),
		MakeStatusCommand(conf, logger),
		VersionCmd,
	)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	root.SilenceUsage = true
	err := root.ExecuteContext(context.Background())
	return conf, out.String(), err
}

// status runs the status command against home.
func status(t *testing.T, home string) Status {
	t.Helper()
	_, out, err := run(t, "status", "--home", home)
	require.NoError(t, err)

	var st Status
	require.NoError(t, json.Unmarshal([]byte(out), &st), out)
	return st
}
