package types

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/holiman/uint256"
)

// ValidatorDirectory is the validator set of one key block, ordered by weight
// descending. Validators of equal weight keep the order in which the
// configuration enumerated them.
//
// A directory is immutable once built. All accessors that return validators
// return copies.
type ValidatorDirectory struct {
	validators  []*Validator
	byNodeID    map[string]int32
	totalWeight *uint256.Int
}

// NewValidatorDirectory builds a directory from the current validator set
// (config param 22) of a key block.
//
// ErrMalformedConfig is returned when the list is empty, an entry has an
// unusable public key or weight, a public key appears twice or the total
// weight does not fit in 256 bits.
func NewValidatorDirectory(param *ValidatorSetParam) (*ValidatorDirectory, error) {
	if param == nil || len(param.List) == 0 {
		return nil, malformedValidators("empty validator list")
	}

	vals := make([]*Validator, len(param.List))
	for i, d := range param.List {
		v, err := NewValidatorFromDescr(d)
		if err != nil {
			return nil, malformedValidators(fmt.Sprintf("entry #%d: %v", i, err))
		}
		vals[i] = v
	}

	return newValidatorDirectory(vals)
}

// NewValidatorDirectoryFromValidators builds a directory from already decoded
// validators, e.g. the persisted contract-facing form.
func NewValidatorDirectoryFromValidators(vals []*Validator) (*ValidatorDirectory, error) {
	if len(vals) == 0 {
		return nil, malformedValidators("empty validator list")
	}
	cp := make([]*Validator, len(vals))
	for i, v := range vals {
		if err := v.ValidateBasic(); err != nil {
			return nil, malformedValidators(fmt.Sprintf("entry #%d: %v", i, err))
		}
		cp[i] = v.Copy()
	}
	return newValidatorDirectory(cp)
}

func newValidatorDirectory(vals []*Validator) (*ValidatorDirectory, error) {
	total := new(uint256.Int)
	for i, v := range vals {
		sum := new(uint256.Int).Add(total, v.Weight)
		if sum.Lt(total) {
			return nil, malformedValidators(fmt.Sprintf("total weight overflows at entry #%d", i))
		}
		total = sum
	}

	sort.SliceStable(vals, func(i, j int) bool {
		return vals[i].Weight.Gt(vals[j].Weight)
	})

	byNodeID := make(map[string]int32, len(vals))
	for i, v := range vals {
		key := string(v.NodeID)
		if _, ok := byNodeID[key]; ok {
			return nil, malformedValidators(fmt.Sprintf("duplicate public key %X", []byte(v.PubKey)))
		}
		byNodeID[key] = int32(i)
	}

	return &ValidatorDirectory{
		validators:  vals,
		byNodeID:    byNodeID,
		totalWeight: total,
	}, nil
}

func malformedValidators(reason string) error {
	return ErrMalformedConfig{Param: ConfigParamCurrentValidators, Reason: reason}
}

// Size returns the number of validators.
func (d *ValidatorDirectory) Size() int {
	return len(d.validators)
}

// Validators returns a copy of the validators in weight-descending order.
func (d *ValidatorDirectory) Validators() []*Validator {
	res := make([]*Validator, len(d.validators))
	for i, v := range d.validators {
		res[i] = v.Copy()
	}
	return res
}

// GetByNodeID returns the index and a copy of the validator with the given
// node id. If not found, idx is -1 and val is nil.
func (d *ValidatorDirectory) GetByNodeID(nodeID []byte) (idx int32, val *Validator) {
	idx, ok := d.byNodeID[string(nodeID)]
	if !ok {
		return -1, nil
	}
	return idx, d.validators[idx].Copy()
}

// TotalWeight returns the sum of all weights.
func (d *ValidatorDirectory) TotalWeight() *uint256.Int {
	return d.totalWeight.Clone()
}

// Hash identifies the directory: SHA-256 over node_id, pubkey and the
// 32-byte big-endian weight of every validator, in directory order.
func (d *ValidatorDirectory) Hash() []byte {
	h := sha256.New()
	for _, v := range d.validators {
		w := v.Weight.Bytes32()
		h.Write(v.NodeID)
		h.Write(v.PubKey)
		h.Write(w[:])
	}
	return h.Sum(nil)
}

// weightAt avoids a copy on the hot path.
func (d *ValidatorDirectory) weightAt(idx int) *uint256.Int {
	return d.validators[idx].Weight
}

// String returns a string representation of the directory.
func (d *ValidatorDirectory) String() string {
	if d == nil {
		return "nil-ValidatorDirectory"
	}
	var sb strings.Builder
	sb.WriteString("ValidatorDirectory{")
	for i, v := range d.validators {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(v.String())
	}
	fmt.Fprintf(&sb, " Total:%s}", d.totalWeight.ToBig())
	return sb.String()
}
