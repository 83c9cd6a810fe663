package light

import (
	"context"
	"errors"
	"fmt"

	"github.com/tonlight/tonlight/libs/log"
	"github.com/tonlight/tonlight/light/provider"
	"github.com/tonlight/tonlight/types"
)

// Link is one step of a chain of trust.
type Link = types.Link

// WalkerOption sets a parameter for the walker.
type WalkerOption func(*Walker)

// WalkerLogger sets a logger for the walker.
func WalkerLogger(l log.Logger) WalkerOption {
	return func(w *Walker) {
		w.logger = l
	}
}

// Walker goes back from the chain tip through prev_key_block_seqno
// references and collects key blocks.
type Walker struct {
	src    provider.BlockSource
	logger log.Logger
}

// NewWalker returns a walker over src.
func NewWalker(src provider.BlockSource, opts ...WalkerOption) *Walker {
	w := &Walker{src: src, logger: log.NewNopLogger()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Walk collects the n newest key blocks and returns the n-1 links between
// them, oldest first. Link i is trusted by key block i and targets key
// block i+1 under the id the chain resolved for it.
//
// ErrInsufficientHistory is returned when the chain has fewer than n key
// blocks reachable from the tip.
func (w *Walker) Walk(ctx context.Context, n int) ([]Link, error) {
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 key blocks to form a link, got %d", n)
	}
	tip, err := w.src.ChainTip(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain tip: %w", err)
	}

	collected, err := w.walk(ctx, tip, func(kb *types.KeyBlock, got int) (bool, error) {
		return got == n, nil
	})
	if err != nil {
		var eih ErrInsufficientHistory
		if errors.As(err, &eih) {
			eih.Want = n
			return nil, eih
		}
		return nil, err
	}
	return toLinks(collected), nil
}

// WalkFrom collects key blocks from the tip back to trusted and returns the
// links that extend trust from it to the newest key block. The result is
// empty when trusted is already the newest key block.
func (w *Walker) WalkFrom(ctx context.Context, trusted *types.KeyBlock) ([]Link, error) {
	if err := trusted.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid trusted key block: %w", err)
	}
	tip, err := w.src.ChainTip(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain tip: %w", err)
	}
	if tip.SeqNo < trusted.ID.SeqNo {
		return nil, fmt.Errorf("chain tip #%d is behind trusted key block #%d", tip.SeqNo, trusted.ID.SeqNo)
	}

	collected, err := w.walk(ctx, tip, func(kb *types.KeyBlock, got int) (bool, error) {
		switch {
		case kb.ID.SeqNo > trusted.ID.SeqNo:
			return false, nil
		case kb.ID.SeqNo == trusted.ID.SeqNo && kb.ID.Equals(trusted.ID):
			return true, nil
		default:
			return false, ErrStructuralMismatch{
				SeqNo:  kb.ID.SeqNo,
				Reason: fmt.Sprintf("chain does not pass through trusted key block %v", trusted.ID),
			}
		}
	})
	if err != nil {
		var eih ErrInsufficientHistory
		if errors.As(err, &eih) {
			eih.Want = eih.Got + 1
			return nil, fmt.Errorf("trusted key block #%d is not reachable: %w", trusted.ID.SeqNo, eih)
		}
		return nil, err
	}
	// keep the caller's copy of the trusted block
	collected[len(collected)-1] = trusted
	return toLinks(collected), nil
}

// walk follows the chain back from id. done is called for every key block
// with the number collected so far and stops the walk when it returns true.
// Key blocks are returned newest first.
func (w *Walker) walk(
	ctx context.Context,
	id types.BlockID,
	done func(kb *types.KeyBlock, got int) (bool, error),
) ([]*types.KeyBlock, error) {

	var collected []*types.KeyBlock
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block, err := w.src.DecodedBlock(ctx, id)
		switch {
		case errors.Is(err, provider.ErrBlockNotFound):
			w.logger.Debug("history ends", "seqno", id.SeqNo)
			return nil, ErrInsufficientHistory{Got: len(collected)}
		case err != nil:
			return nil, fmt.Errorf("fetching block #%d: %w", id.SeqNo, err)
		case block == nil:
			return nil, fmt.Errorf("fetching block #%d: %w", id.SeqNo,
				provider.ErrBadBlock{Reason: errors.New("nil block")})
		}

		if block.IsKeyBlock {
			if block.SeqNo != id.SeqNo {
				return nil, ErrStructuralMismatch{
					SeqNo:  id.SeqNo,
					Reason: fmt.Sprintf("decoded key block reports seqno %d", block.SeqNo),
				}
			}
			kb := &types.KeyBlock{ID: id, Block: block}
			collected = append(collected, kb)
			w.logger.Debug("found key block", "seqno", id.SeqNo, "prev", block.PrevKeyBlockSeqno)

			stop, err := done(kb, len(collected))
			if err != nil {
				return nil, err
			}
			if stop {
				break
			}
		}

		prev := block.PrevKeyBlockSeqno
		if id.SeqNo == 0 || prev >= id.SeqNo {
			w.logger.Debug("history ends", "seqno", id.SeqNo, "prev", prev)
			return nil, ErrInsufficientHistory{Got: len(collected)}
		}

		id, err = w.src.BlockBySeqno(ctx, prev)
		switch {
		case errors.Is(err, provider.ErrBlockNotFound):
			w.logger.Debug("history ends", "seqno", prev)
			return nil, ErrInsufficientHistory{Got: len(collected)}
		case err != nil:
			return nil, fmt.Errorf("resolving block #%d: %w", prev, err)
		}
	}
	return collected, nil
}

// toLinks reverses newest-first key blocks and pairs neighbours.
func toLinks(newestFirst []*types.KeyBlock) []Link {
	n := len(newestFirst)
	links := make([]Link, 0, n)
	for i := n - 1; i > 0; i-- {
		links = append(links, Link{Trusted: newestFirst[i], Target: newestFirst[i-1].ID})
	}
	return links
}
