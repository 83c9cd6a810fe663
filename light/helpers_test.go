package light_test

import (
	"encoding/binary"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/tonlight/tonlight/cell"
	"github.com/tonlight/tonlight/crypto"
	"github.com/tonlight/tonlight/crypto/ed25519"
	"github.com/tonlight/tonlight/light/provider/mock"
	"github.com/tonlight/tonlight/types"
)

// privKeys is a helper type for testing.
//
// It lets us simulate signing with many keys. The main use case is to create
// a set, turn it into the validator set of a key block with ToValidatorSet
// and sign the next block with signBlock.
type privKeys []ed25519.PrivKey

// genPrivKeys produces an array of private keys.
func genPrivKeys(n int) privKeys {
	res := make(privKeys, n)
	for i := range res {
		res[i] = ed25519.GenPrivKey()
	}
	return res
}

func (pkz privKeys) pubKey(i int) ed25519.PubKey {
	return pkz[i].PubKey().(ed25519.PubKey)
}

// ToValidatorSet produces config param 22. weights[i] is the weight of key i;
// missing weights default to 10.
func (pkz privKeys) ToValidatorSet(weights ...uint64) *types.ValidatorSetParam {
	p := &types.ValidatorSetParam{Total: uint32(len(pkz)), Main: uint32(len(pkz))}
	for i := range pkz {
		w := uint64(10)
		if i < len(weights) {
			w = weights[i]
		}
		p.List = append(p.List, types.ValidatorDescr{
			PubKey: []byte(pkz.pubKey(i)),
			Weight: uint256.NewInt(w).Bytes(),
		})
	}
	return p
}

// signBlock signs the block with all keys from first to last exclusive.
func (pkz privKeys) signBlock(t testing.TB, id types.BlockID, first, last int) []types.SignatureClaim {
	t.Helper()

	payload, err := types.NewSigningPayload(id.RootHash, id.FileHash)
	require.NoError(t, err)

	var claims []types.SignatureClaim
	for i := first; i < last && i < len(pkz); i++ {
		sig, err := pkz[i].Sign(payload.Bytes())
		require.NoError(t, err)
		claims = append(claims, types.SignatureClaim{
			NodeIDShort: []byte(pkz.pubKey(i).NodeID()),
			Signature:   sig,
		})
	}
	return claims
}

// genBlock returns a block id with its header proof.
func genBlock(seqno uint32) (types.BlockID, *types.BlockHeader) {
	var info [4]byte
	binary.BigEndian.PutUint32(info[:], seqno)
	root := cell.New(info[:], cell.New(crypto.CRandBytes(16)), cell.NewPruned(crypto.CRandBytes(32), 3))

	id := types.BlockID{
		Workchain: types.MasterchainID,
		Shard:     types.ShardAll,
		SeqNo:     seqno,
		RootHash:  root.Hash(),
		FileHash:  crypto.CRandBytes(32),
	}
	return id, &types.BlockHeader{ID: id, Proof: cell.New(nil, root)}
}

// chainBuilder grows a mock chain. Every key block is signed by all
// validators of the key block before it.
type chainBuilder struct {
	t       *testing.T
	chain   *mock.Chain
	keys    map[uint32]privKeys
	ids     map[uint32]types.BlockID
	lastKey uint32
	hasKey  bool
}

func newChainBuilder(t *testing.T) *chainBuilder {
	return &chainBuilder{
		t:     t,
		chain: mock.New(),
		keys:  make(map[uint32]privKeys),
		ids:   make(map[uint32]types.BlockID),
	}
}

// keyBlock adds a key block with the given validators and max_main_validators.
func (b *chainBuilder) keyBlock(seqno uint32, keys privKeys, weights []uint64, maxMain uint32) types.BlockID {
	id, header := genBlock(seqno)
	block := &types.DecodedBlock{
		SeqNo:             seqno,
		IsKeyBlock:        true,
		PrevKeyBlockSeqno: b.lastKey,
		Config: &types.BlockConfig{
			ValidatorSet: keys.ToValidatorSet(weights...),
			ValidatorLimits: &types.ValidatorLimitsParam{
				MaxValidators:     uint32(len(keys)),
				MaxMainValidators: maxMain,
				MinValidators:     1,
			},
		},
	}
	b.chain.AddBlock(id, block, header)

	if b.hasKey {
		prev := b.keys[b.lastKey]
		b.chain.SetSignatures(seqno, prev.signBlock(b.t, id, 0, len(prev)))
	}
	b.keys[seqno] = keys
	b.ids[seqno] = id
	b.lastKey = seqno
	b.hasKey = true
	return id
}

// block adds an ordinary block.
func (b *chainBuilder) block(seqno uint32) types.BlockID {
	id, header := genBlock(seqno)
	b.chain.AddBlock(id, &types.DecodedBlock{SeqNo: seqno, PrevKeyBlockSeqno: b.lastKey}, header)
	b.ids[seqno] = id
	return id
}

// standardChain has key blocks at 10, 25 and 40 among 5 blocks.
func standardChain(t *testing.T) *chainBuilder {
	b := newChainBuilder(t)
	b.keyBlock(10, genPrivKeys(4), nil, 4)
	b.keyBlock(25, genPrivKeys(3), []uint64{50, 30, 20}, 3)
	b.block(33)
	b.keyBlock(40, genPrivKeys(5), nil, 5)
	b.block(45)
	return b
}
