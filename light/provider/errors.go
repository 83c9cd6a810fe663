package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrBlockNotFound is returned when a provider can't find the
	// requested block (i.e. it has been pruned or never existed).
	ErrBlockNotFound = errors.New("block not found")
	// ErrNoResponse is returned if the provider doesn't respond to the
	// request in a given time or the transport failed.
	ErrNoResponse = errors.New("client failed to respond")
)

// ErrBadBlock is returned when a provider returns an invalid block.
type ErrBadBlock struct {
	Reason error
}

func (e ErrBadBlock) Error() string {
	return fmt.Sprintf("client provided bad block: %s", e.Reason.Error())
}

func (e ErrBadBlock) Unwrap() error {
	return e.Reason
}
