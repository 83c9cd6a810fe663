package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/tonlight/tonlight/crypto"
	"github.com/tonlight/tonlight/crypto/ed25519"
	"github.com/tonlight/tonlight/libs/bytes"
)

// MaxWeightBytes is the widest weight encoding accepted from configuration.
const MaxWeightBytes = 32

// Validator is a validator record of a key block: its node id, its raw
// ed25519 public key and its stake weight.
// NodeID is always derived from PubKey.
type Validator struct {
	NodeID crypto.NodeID
	PubKey ed25519.PubKey
	Weight *uint256.Int
}

// NewValidator returns a new validator with the given pubkey and weight.
func NewValidator(pubKey ed25519.PubKey, weight *uint256.Int) *Validator {
	return &Validator{
		NodeID: pubKey.NodeID(),
		PubKey: pubKey,
		Weight: weight.Clone(),
	}
}

// NewValidatorFromDescr decodes a raw configuration entry.
func NewValidatorFromDescr(d ValidatorDescr) (*Validator, error) {
	if len(d.PubKey) != ed25519.PubKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PubKeySize, len(d.PubKey))
	}
	if len(d.Weight) > MaxWeightBytes {
		return nil, fmt.Errorf("weight encoding is %d bytes, max %d", len(d.Weight), MaxWeightBytes)
	}
	pk := make(ed25519.PubKey, ed25519.PubKeySize)
	copy(pk, d.PubKey)
	return NewValidator(pk, new(uint256.Int).SetBytes(d.Weight)), nil
}

// ValidateBasic performs basic validation.
func (v *Validator) ValidateBasic() error {
	if v == nil {
		return errors.New("nil validator")
	}
	if len(v.PubKey) != ed25519.PubKeySize {
		return fmt.Errorf("public key must be %d bytes, got %d", ed25519.PubKeySize, len(v.PubKey))
	}
	if !v.NodeID.Equal(v.PubKey.NodeID()) {
		return fmt.Errorf("node id %X does not match public key %X", v.NodeID, []byte(v.PubKey))
	}
	if v.Weight == nil {
		return errors.New("nil weight")
	}
	return nil
}

// Copy creates a new copy of the validator so we can mutate it.
func (v *Validator) Copy() *Validator {
	return &Validator{
		NodeID: v.NodeID.Copy(),
		PubKey: append(ed25519.PubKey(nil), v.PubKey...),
		Weight: v.Weight.Clone(),
	}
}

// String returns a string representation of the validator.
//
// 1. node id
// 2. weight
func (v *Validator) String() string {
	if v == nil {
		return "nil-Validator"
	}
	return fmt.Sprintf("Validator{%v W:%s}", v.NodeID.ShortString(), v.Weight.ToBig())
}

// validatorJSON is the contract-facing form: hex ids and a decimal weight.
type validatorJSON struct {
	NodeID bytes.HexBytes `json:"node_id"`
	PubKey bytes.HexBytes `json:"pubkey"`
	Weight string         `json:"weight"`
}

func (v Validator) MarshalJSON() ([]byte, error) {
	return json.Marshal(validatorJSON{
		NodeID: v.NodeID,
		PubKey: bytes.HexBytes(v.PubKey),
		Weight: v.Weight.ToBig().String(),
	})
}

func (v *Validator) UnmarshalJSON(data []byte) error {
	var val validatorJSON
	if err := json.Unmarshal(data, &val); err != nil {
		return err
	}
	w, err := parseWeight(val.Weight)
	if err != nil {
		return err
	}
	v.NodeID = crypto.NodeID(val.NodeID)
	v.PubKey = ed25519.PubKey(val.PubKey)
	v.Weight = w
	return v.ValidateBasic()
}

func parseWeight(s string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid weight %q", s)
	}
	w, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("weight %q overflows 256 bits", s)
	}
	return w, nil
}
