package light

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/tonlight/tonlight/types"
)

// Configuration errors are produced by the types package.
type (
	ErrMalformedConfig = types.ErrMalformedConfig
	ErrMissingConfig   = types.ErrMissingConfig
)

// ErrStructuralMismatch means the header proof does not hash to the root
// hash the block is identified by. The link is never trusted.
type ErrStructuralMismatch struct {
	SeqNo  uint32
	Reason string
}

func (e ErrStructuralMismatch) Error() string {
	return fmt.Sprintf("structural mismatch in block #%d: %s", e.SeqNo, e.Reason)
}

// ErrInvalidSignature means a claim matched a known validator but its
// signature does not verify.
type ErrInvalidSignature struct {
	NodeID []byte
	Index  int
}

func (e ErrInvalidSignature) Error() string {
	return fmt.Sprintf("invalid signature #%d from validator %X", e.Index, e.NodeID)
}

// ErrInsufficientQuorum means the verified weight is not more than 2/3 of
// the main validator set weight.
type ErrInsufficientQuorum struct {
	Got       *uint256.Int
	Threshold *uint256.Int
}

func (e ErrInsufficientQuorum) Error() string {
	return fmt.Sprintf("insufficient quorum: verified weight %s, need more than 2/3 of %s",
		e.Got.ToBig(), e.Threshold.ToBig())
}

// ErrInsufficientHistory means the chain ran out of key blocks before the
// requested number was collected.
type ErrInsufficientHistory struct {
	Want int
	Got  int
}

func (e ErrInsufficientHistory) Error() string {
	return fmt.Sprintf("insufficient history: found %d of %d key blocks", e.Got, e.Want)
}

// ErrVerificationFailed means verification of the link from key block #From
// to block #To has failed. Later links were not processed.
type ErrVerificationFailed struct {
	From   uint32
	To     uint32
	Reason error
}

// Unwrap returns underlying reason.
func (e ErrVerificationFailed) Unwrap() error {
	return e.Reason
}

func (e ErrVerificationFailed) Error() string {
	return fmt.Sprintf("verify from #%d to #%d failed: %v", e.From, e.To, e.Reason)
}

// failureReason is the metrics label of a link failure.
func failureReason(err error) string {
	var (
		structural ErrStructuralMismatch
		invalidSig ErrInvalidSignature
		quorum     ErrInsufficientQuorum
		malformed  ErrMalformedConfig
		missing    ErrMissingConfig
	)
	switch {
	case errors.As(err, &structural):
		return "structural_mismatch"
	case errors.As(err, &invalidSig):
		return "invalid_signature"
	case errors.As(err, &quorum):
		return "insufficient_quorum"
	case errors.As(err, &malformed):
		return "malformed_config"
	case errors.As(err, &missing):
		return "missing_config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "io"
	}
}
