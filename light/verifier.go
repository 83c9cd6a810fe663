package light

import (
	"github.com/holiman/uint256"

	"github.com/tonlight/tonlight/crypto/ed25519"
	"github.com/tonlight/tonlight/types"
)

// VerifyLink checks claims against the directory of a trusted key block and
// returns the total weight of the validators that validly signed payload.
//
//	a) claims from node ids outside the directory are ignored
//	b) a claim from a known validator with a bad signature fails the whole
//	   link with ErrInvalidSignature
//	c) a validator's weight counts once however many claims it has
//
// Signatures are checked with ed25519 (ZIP-215) over the raw payload.
func VerifyLink(
	dir *types.ValidatorDirectory,
	payload types.SigningPayload,
	claims []types.SignatureClaim,
) (*uint256.Int, error) {

	type match struct {
		index int
		val   *types.Validator
	}

	var (
		msg     = payload.Bytes()
		bv      = ed25519.NewBatchVerifier()
		matched = make([]match, 0, len(claims))
	)
	for i, claim := range claims {
		_, val := dir.GetByNodeID(claim.NodeIDShort)
		if val == nil {
			continue
		}
		if err := bv.Add(val.PubKey, msg, claim.Signature); err != nil {
			return nil, ErrInvalidSignature{NodeID: val.NodeID, Index: i}
		}
		matched = append(matched, match{index: i, val: val})
	}

	verified := new(uint256.Int)
	if len(matched) == 0 {
		return verified, nil
	}

	if ok, valid := bv.Verify(); !ok {
		for j, v := range valid {
			if !v {
				return nil, ErrInvalidSignature{NodeID: matched[j].val.NodeID, Index: matched[j].index}
			}
		}
		// unreachable unless the batch itself is broken
		return nil, ErrInvalidSignature{NodeID: matched[0].val.NodeID, Index: matched[0].index}
	}

	counted := make(map[string]struct{}, len(matched))
	for _, m := range matched {
		key := string(m.val.NodeID)
		if _, ok := counted[key]; ok {
			continue
		}
		counted[key] = struct{}{}
		verified.Add(verified, m.val.Weight)
	}
	return verified, nil
}
