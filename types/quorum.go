package types

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// QuorumThreshold is the weight of the main validator set: the sum of the
// weights of the first MaxMainValidators validators of a directory.
type QuorumThreshold struct {
	MaxMainValidators uint32
	Weight            *uint256.Int
}

// NewQuorumThreshold sums the weights of the top maxMainValidators
// validators, clamped to the directory size.
func NewQuorumThreshold(dir *ValidatorDirectory, maxMainValidators uint32) QuorumThreshold {
	n := dir.Size()
	if uint64(maxMainValidators) < uint64(n) {
		n = int(maxMainValidators)
	}
	sum := new(uint256.Int)
	for i := 0; i < n; i++ {
		// cannot overflow, the directory total fits in 256 bits
		sum.Add(sum, dir.weightAt(i))
	}
	return QuorumThreshold{MaxMainValidators: maxMainValidators, Weight: sum}
}

// QuorumThresholdFromConfig reads max_main_validators from config param 10.
func QuorumThresholdFromConfig(dir *ValidatorDirectory, cfg ConfigParams) (QuorumThreshold, error) {
	limits, err := ValidatorLimits(cfg)
	if err != nil {
		return QuorumThreshold{}, err
	}
	if limits.MaxMainValidators == 0 {
		return QuorumThreshold{}, ErrMalformedConfig{
			Param:  ConfigParamValidatorLimits,
			Reason: "max_main_validators is zero",
		}
	}
	return NewQuorumThreshold(dir, limits.MaxMainValidators), nil
}

func (q QuorumThreshold) String() string {
	return fmt.Sprintf("Quorum{max:%d weight:%s}", q.MaxMainValidators, q.Weight.ToBig())
}

var (
	three = big.NewInt(3)
	two   = big.NewInt(2)
)

// Accept reports whether verified is a strict two-thirds supermajority of
// threshold: verified*3 > threshold*2. Zero verified weight is never
// accepted, even against a zero threshold.
func Accept(verified, threshold *uint256.Int) bool {
	if verified == nil || verified.IsZero() {
		return false
	}
	if threshold == nil {
		threshold = new(uint256.Int)
	}
	lhs := new(big.Int).Mul(verified.ToBig(), three)
	rhs := new(big.Int).Mul(threshold.ToBig(), two)
	return lhs.Cmp(rhs) > 0
}
