// Package db implements store.Store on top of a tm-db database.
package db

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/tonlight/tonlight/light/store"
	"github.com/tonlight/tonlight/types"
)

const (
	prefixKeyBlock = int64(11)
	prefixSize     = int64(12)
)

type dbs struct {
	db dbm.DB

	mtx  sync.RWMutex
	size uint16
}

// New returns a Store that wraps any DB.
func New(db dbm.DB) store.Store {
	// retrieve the size of the db
	size := uint16(0)
	bz, err := db.Get(sizeKey())
	if err == nil && len(bz) == 2 {
		size = unmarshalSize(bz)
	}

	return &dbs{db: db, size: size}
}

// SaveKeyBlock persists the key block and bumps the size counter when the
// seqno is new.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) SaveKeyBlock(kb *types.KeyBlock) error {
	if err := kb.ValidateBasic(); err != nil {
		return fmt.Errorf("invalid key block: %w", err)
	}

	bz, err := json.Marshal(kb)
	if err != nil {
		return fmt.Errorf("marshaling key block: %w", err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	key := keyBlockKey(kb.ID.SeqNo)
	exists, err := s.db.Has(key)
	if err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err = b.Set(key, bz); err != nil {
		return err
	}
	size := s.size
	if !exists {
		if size == math.MaxUint16 {
			return store.ErrStoreFull
		}
		size++
	}
	if err = b.Set(sizeKey(), marshalSize(size)); err != nil {
		return err
	}
	if err = b.WriteSync(); err != nil {
		return err
	}
	s.size = size

	return nil
}

// KeyBlock retrieves the key block with the given seqno.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) KeyBlock(seqno uint32) (*types.KeyBlock, error) {
	bz, err := s.db.Get(keyBlockKey(seqno))
	if err != nil {
		return nil, err
	}
	if len(bz) == 0 {
		return nil, store.ErrKeyBlockNotFound
	}
	return unmarshalKeyBlock(bz)
}

// LatestKeyBlock returns the key block with the highest seqno.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) LatestKeyBlock() (*types.KeyBlock, error) {
	itr, err := s.db.ReverseIterator(
		keyBlockKey(0),
		append(keyBlockKey(1<<32-1), byte(0x00)),
	)
	if err != nil {
		return nil, err
	}
	defer itr.Close()

	for ; itr.Valid(); itr.Next() {
		if _, err := decodeKeyBlockKey(itr.Key()); err != nil {
			continue
		}
		return unmarshalKeyBlock(itr.Value())
	}

	return nil, store.ErrKeyBlockNotFound
}

// Prune deletes the oldest key blocks until at most size remain.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) Prune(size uint16) error {
	// 1) Check how many we need to prune.
	s.mtx.Lock()
	defer s.mtx.Unlock()
	sSize := s.size

	if sSize <= size { // nothing to prune
		return nil
	}
	numToPrune := sSize - size

	b := s.db.NewBatch()
	defer b.Close()

	// 2) Iterate over keys from the oldest seqno and delete them.
	itr, err := s.db.Iterator(
		keyBlockKey(0),
		append(keyBlockKey(1<<32-1), byte(0x00)),
	)
	if err != nil {
		return err
	}
	defer itr.Close()

	for itr.Valid() && numToPrune > 0 {
		if _, err = decodeKeyBlockKey(itr.Key()); err == nil {
			if err = b.Delete(itr.Key()); err != nil {
				return err
			}
			numToPrune--
		}
		itr.Next()
	}
	if err = itr.Error(); err != nil {
		return err
	}

	// 3) Update size.
	if err = b.Set(sizeKey(), marshalSize(size)); err != nil {
		return fmt.Errorf("failed to persist size: %w", err)
	}
	if err = b.WriteSync(); err != nil {
		return err
	}
	s.size = size

	return nil
}

// Size returns the number of stored key blocks.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) Size() uint16 {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.size
}

func unmarshalKeyBlock(bz []byte) (*types.KeyBlock, error) {
	var kb types.KeyBlock
	if err := json.Unmarshal(bz, &kb); err != nil {
		return nil, fmt.Errorf("unmarshal key block: %w", err)
	}
	if err := kb.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("stored key block is invalid: %w", err)
	}
	return &kb, nil
}

func keyBlockKey(seqno uint32) []byte {
	key, err := orderedcode.Append(nil, prefixKeyBlock, int64(seqno))
	if err != nil {
		panic(err)
	}
	return key
}

func decodeKeyBlockKey(key []byte) (uint32, error) {
	var (
		prefix int64
		seqno  int64
	)
	remaining, err := orderedcode.Parse(string(key), &prefix, &seqno)
	if err != nil {
		return 0, err
	}
	if len(remaining) != 0 {
		return 0, fmt.Errorf("expected no remainder when parsing key block key but got: %s", remaining)
	}
	if prefix != prefixKeyBlock {
		return 0, fmt.Errorf("expected key block prefix but got: %d", prefix)
	}
	return uint32(seqno), nil
}

func sizeKey() []byte {
	key, err := orderedcode.Append(nil, prefixSize)
	if err != nil {
		panic(err)
	}
	return key
}

func marshalSize(size uint16) []byte {
	return []byte{byte(size >> 8), byte(size)}
}

func unmarshalSize(bz []byte) uint16 {
	if len(bz) != 2 {
		panic("size should be 2 bytes")
	}
	return uint16(bz[0])<<8 | uint16(bz[1])
}
