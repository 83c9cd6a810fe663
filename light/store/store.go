package store

import (
	"errors"

	"github.com/tonlight/tonlight/types"
)

// ErrKeyBlockNotFound is returned when a store does not have the requested
// key block.
var ErrKeyBlockNotFound = errors.New("key block not found")

// ErrStoreFull is returned when saving a new seqno would exceed the number
// of key blocks a store can count. Prune before saving more.
var ErrStoreFull = errors.New("key block store is full")

// Store is anything that can persistently store trusted key blocks.
type Store interface {
	// SaveKeyBlock saves a verified key block under its seqno. Saving the
	// same seqno twice overwrites the previous entry.
	SaveKeyBlock(kb *types.KeyBlock) error

	// KeyBlock returns the key block with the given seqno.
	//
	// If it is not found, ErrKeyBlockNotFound is returned.
	KeyBlock(seqno uint32) (*types.KeyBlock, error)

	// LatestKeyBlock returns the key block with the highest seqno.
	//
	// If the store is empty, ErrKeyBlockNotFound is returned.
	LatestKeyBlock() (*types.KeyBlock, error)

	// Prune removes the oldest key blocks until at most size remain.
	Prune(size uint16) error

	// Size returns the number of stored key blocks.
	Size() uint16
}
