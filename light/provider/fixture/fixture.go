// Package fixture reads and writes the persisted form of a verified key-block
// chain and serves it back as a block and signature source.
//
// A fixture directory holds four JSON arrays. blocks.json has N key blocks,
// oldest first. The other three files have N-1 entries and entry i belongs to
// blocks[i+1], the block authenticated by the validators of blocks[i]:
//
//	signatures.json     {"seqno", "signatures"}
//	headerHashes.json   {"blockHash", "fileHash", "proof"}
//	validatorSets.json  {"threshold", "validators"}
//
// validatorSets[i] is the validator set blocks[i+1] introduces, in directory
// order. Its threshold is the weight of the first max_main_validators of
// those validators, with max_main_validators read from blocks[i].
package fixture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tonlight/tonlight/cell"
	tlbytes "github.com/tonlight/tonlight/libs/bytes"
	tlos "github.com/tonlight/tonlight/libs/os"
	"github.com/tonlight/tonlight/types"
)

// File names inside a fixture directory.
const (
	BlocksFile        = "blocks.json"
	SignaturesFile    = "signatures.json"
	HeaderHashesFile  = "headerHashes.json"
	ValidatorSetsFile = "validatorSets.json"
)

// BlockSignatures are the claims published for one block.
type BlockSignatures struct {
	SeqNo      uint32                 `json:"seqno"`
	Signatures []types.SignatureClaim `json:"signatures"`
}

// HeaderHash is the signed identity of a block with its header proof.
type HeaderHash struct {
	BlockHash tlbytes.HexBytes `json:"blockHash"`
	FileHash  tlbytes.HexBytes `json:"fileHash"`
	Proof     *cell.Cell       `json:"proof"`
}

// ValidatorSet is the contract-facing form of a directory: the validators in
// directory order and the quorum threshold in decimal.
type ValidatorSet struct {
	Threshold  string             `json:"threshold"`
	Validators []*types.Validator `json:"validators"`
}

// NextValidatorSet returns the validator set next introduces, weighed with
// the max_main_validators of trusted.
func NextValidatorSet(trusted, next *types.KeyBlock) (ValidatorSet, error) {
	dir, threshold, err := nextDirectory(trusted, next)
	if err != nil {
		return ValidatorSet{}, err
	}
	return ValidatorSet{
		Threshold:  threshold.Weight.ToBig().String(),
		Validators: dir.Validators(),
	}, nil
}

func nextDirectory(trusted, next *types.KeyBlock) (*types.ValidatorDirectory, types.QuorumThreshold, error) {
	vset, err := types.ValidatorSet(next.Block.Config)
	if err != nil {
		return nil, types.QuorumThreshold{}, err
	}
	dir, err := types.NewValidatorDirectory(vset)
	if err != nil {
		return nil, types.QuorumThreshold{}, err
	}
	threshold, err := types.QuorumThresholdFromConfig(dir, trusted.Block.Config)
	if err != nil {
		return nil, types.QuorumThreshold{}, err
	}
	return dir, threshold, nil
}

// check makes sure vs is exactly what next introduces.
func (vs ValidatorSet) check(trusted, next *types.KeyBlock) error {
	want, threshold, err := nextDirectory(trusted, next)
	if err != nil {
		return err
	}
	got, err := types.NewValidatorDirectoryFromValidators(vs.Validators)
	if err != nil {
		return err
	}
	if !bytes.Equal(got.Hash(), want.Hash()) {
		return fmt.Errorf("validators differ from the set of block %v", next.ID)
	}
	if wantThreshold := threshold.Weight.ToBig().String(); vs.Threshold != wantThreshold {
		return fmt.Errorf("threshold is %s, want %s", vs.Threshold, wantThreshold)
	}
	return nil
}

// Fixtures is the in-memory form of a fixture directory.
type Fixtures struct {
	Blocks        []*types.KeyBlock
	Signatures    []BlockSignatures
	HeaderHashes  []HeaderHash
	ValidatorSets []ValidatorSet
}

// ValidateBasic checks that the arrays are consistently indexed and that every
// validator set matches the key blocks it is derived from.
func (f *Fixtures) ValidateBasic() error {
	n := len(f.Blocks)
	if n < 2 {
		return fmt.Errorf("need at least 2 key blocks, got %d", n)
	}
	if len(f.Signatures) != n-1 || len(f.HeaderHashes) != n-1 || len(f.ValidatorSets) != n-1 {
		return fmt.Errorf("expected %d signatures, header hashes and validator sets, got %d, %d and %d",
			n-1, len(f.Signatures), len(f.HeaderHashes), len(f.ValidatorSets))
	}
	for i, kb := range f.Blocks {
		if err := kb.ValidateBasic(); err != nil {
			return fmt.Errorf("block #%d: %w", i, err)
		}
		if i > 0 && kb.ID.SeqNo <= f.Blocks[i-1].ID.SeqNo {
			return fmt.Errorf("block #%d: seqno %d not after %d", i, kb.ID.SeqNo, f.Blocks[i-1].ID.SeqNo)
		}
	}
	for i := 0; i < n-1; i++ {
		target := f.Blocks[i+1].ID
		if f.Signatures[i].SeqNo != target.SeqNo {
			return fmt.Errorf("signatures #%d are for seqno %d, want %d", i, f.Signatures[i].SeqNo, target.SeqNo)
		}
		hh := f.HeaderHashes[i]
		if !hh.BlockHash.Equal(target.RootHash) || !hh.FileHash.Equal(target.FileHash) {
			return fmt.Errorf("header hash #%d does not match block %v", i, target)
		}
		if err := f.ValidatorSets[i].check(f.Blocks[i], f.Blocks[i+1]); err != nil {
			return fmt.Errorf("validator set #%d: %w", i, err)
		}
	}
	return nil
}

// Links returns the (trusted key block, target block) pairs, oldest first.
func (f *Fixtures) Links() []types.Link {
	links := make([]types.Link, 0, len(f.Blocks)-1)
	for i := 1; i < len(f.Blocks); i++ {
		links = append(links, types.Link{Trusted: f.Blocks[i-1], Target: f.Blocks[i].ID})
	}
	return links
}

// Load reads and validates a fixture directory.
func Load(dir string) (*Fixtures, error) {
	f := &Fixtures{}
	files := []struct {
		name string
		dst  interface{}
	}{
		{BlocksFile, &f.Blocks},
		{SignaturesFile, &f.Signatures},
		{HeaderHashesFile, &f.HeaderHashes},
		{ValidatorSetsFile, &f.ValidatorSets},
	}
	for _, file := range files {
		if err := readJSON(filepath.Join(dir, file.name), file.dst); err != nil {
			return nil, err
		}
	}
	if err := f.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid fixtures in %s: %w", dir, err)
	}
	return f, nil
}

// Write stores f in dir, creating it if needed. Every file is replaced
// atomically.
func Write(dir string, f *Fixtures) error {
	if f == nil {
		return errors.New("nil fixtures")
	}
	if err := f.ValidateBasic(); err != nil {
		return err
	}
	if err := tlos.EnsureDir(dir, 0755); err != nil {
		return err
	}
	files := []struct {
		name string
		src  interface{}
	}{
		{BlocksFile, f.Blocks},
		{SignaturesFile, f.Signatures},
		{HeaderHashesFile, f.HeaderHashes},
		{ValidatorSetsFile, f.ValidatorSets},
	}
	for _, file := range files {
		bz, err := json.MarshalIndent(file.src, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s: %w", file.name, err)
		}
		if err := tlos.WriteFileAtomic(filepath.Join(dir, file.name), bz, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", file.name, err)
		}
	}
	return nil
}

func readJSON(path string, dst interface{}) error {
	bz, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(bz, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
