package types

import (
	"fmt"

	"github.com/tonlight/tonlight/libs/bytes"
)

// Configuration parameters consumed by the light client.
const (
	ConfigParamValidatorLimits   int32 = 10
	ConfigParamCurrentValidators int32 = 22
)

// ConfigParam is one typed configuration value.
type ConfigParam interface {
	ParamID() int32
}

// ConfigParams gives typed access to the configuration of a key block.
type ConfigParams interface {
	// GetParam returns the parameter with the given id, or false when the
	// block does not carry it.
	GetParam(id int32) (ConfigParam, bool)
}

// ValidatorDescr is a raw validator entry as published in the configuration.
// Weight is a big-endian unsigned integer of arbitrary length.
type ValidatorDescr struct {
	PubKey   bytes.HexBytes `json:"public_key"`
	Weight   bytes.HexBytes `json:"weight"`
	ADNLAddr bytes.HexBytes `json:"adnl_addr,omitempty"`
}

// ValidatorSetParam is the set of current validators.
type ValidatorSetParam struct {
	UTimeSince uint32           `json:"utime_since"`
	UTimeUntil uint32           `json:"utime_until"`
	Total      uint32           `json:"total"`
	Main       uint32           `json:"main"`
	List       []ValidatorDescr `json:"list"`
}

func (*ValidatorSetParam) ParamID() int32 { return ConfigParamCurrentValidators }

// ValidatorLimitsParam caps the size of the validator set.
type ValidatorLimitsParam struct {
	MaxValidators     uint32 `json:"max_validators"`
	MaxMainValidators uint32 `json:"max_main_validators"`
	MinValidators     uint32 `json:"min_validators"`
}

func (*ValidatorLimitsParam) ParamID() int32 { return ConfigParamValidatorLimits }

// BlockConfig is the part of a key block configuration the light client
// reads. It implements ConfigParams.
type BlockConfig struct {
	ValidatorSet    *ValidatorSetParam    `json:"p22,omitempty"`
	ValidatorLimits *ValidatorLimitsParam `json:"p10,omitempty"`
}

var _ ConfigParams = (*BlockConfig)(nil)

func (c *BlockConfig) GetParam(id int32) (ConfigParam, bool) {
	if c == nil {
		return nil, false
	}
	switch id {
	case ConfigParamCurrentValidators:
		if c.ValidatorSet != nil {
			return c.ValidatorSet, true
		}
	case ConfigParamValidatorLimits:
		if c.ValidatorLimits != nil {
			return c.ValidatorLimits, true
		}
	}
	return nil, false
}

// ValidatorSet returns param 22.
func ValidatorSet(cfg ConfigParams) (*ValidatorSetParam, error) {
	p, ok := cfg.GetParam(ConfigParamCurrentValidators)
	if !ok {
		return nil, ErrMissingConfig{Param: ConfigParamCurrentValidators}
	}
	vs, ok := p.(*ValidatorSetParam)
	if !ok {
		return nil, ErrMalformedConfig{
			Param:  ConfigParamCurrentValidators,
			Reason: fmt.Sprintf("unexpected type %T", p),
		}
	}
	return vs, nil
}

// ValidatorLimits returns param 10.
func ValidatorLimits(cfg ConfigParams) (*ValidatorLimitsParam, error) {
	p, ok := cfg.GetParam(ConfigParamValidatorLimits)
	if !ok {
		return nil, ErrMissingConfig{Param: ConfigParamValidatorLimits}
	}
	vl, ok := p.(*ValidatorLimitsParam)
	if !ok {
		return nil, ErrMalformedConfig{
			Param:  ConfigParamValidatorLimits,
			Reason: fmt.Sprintf("unexpected type %T", p),
		}
	}
	return vl, nil
}
