package light

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	tlbytes "github.com/tonlight/tonlight/libs/bytes"
	"github.com/tonlight/tonlight/libs/log"
	"github.com/tonlight/tonlight/light/provider"
	"github.com/tonlight/tonlight/types"
)

// Option sets a parameter for the light client.
type Option func(*Client)

// Logger option can be used to set a logger for the client.
func Logger(l log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics sets the metrics sink. Default: NopMetrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Prefetch option makes the client fetch the header and signatures of the
// next link while the current one is verified. Verification order is not
// affected. Default: true.
func Prefetch(enabled bool) Option {
	return func(c *Client) {
		c.prefetch = enabled
	}
}

// Client verifies chains of key blocks against a block source and a
// signature source. It holds no state between calls; callers own the
// persistence of trusted key blocks.
type Client struct {
	blocks   provider.BlockSource
	sigs     provider.SignatureSource
	logger   log.Logger
	metrics  *Metrics
	prefetch bool
}

// NewClient returns a new light client.
func NewClient(blocks provider.BlockSource, sigs provider.SignatureSource, options ...Option) *Client {
	c := &Client{
		blocks:   blocks,
		sigs:     sigs,
		logger:   log.NewNopLogger(),
		metrics:  NopMetrics(),
		prefetch: true,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// LinkResult is the outcome of one verified link.
type LinkResult struct {
	Link      Link
	Header    *types.BlockHeader
	Claims    []types.SignatureClaim
	Directory *types.ValidatorDirectory
	Threshold types.QuorumThreshold
	Verified  *uint256.Int
}

// VerifyChain verifies links in order. For every link the directory of the
// trusted key block must have signed the target with more than 2/3 of the
// main validator set weight, and the target's header proof must hash to its
// root hash. Verification stops at the first failed link, which is reported
// as ErrVerificationFailed.
func (c *Client) VerifyChain(ctx context.Context, links []Link) error {
	return c.verifyChain(ctx, links, nil)
}

// VerifyLatest walks the n newest key blocks, verifies the chain between them
// and returns the id of the newest one.
func (c *Client) VerifyLatest(ctx context.Context, n int) (types.BlockID, error) {
	links, err := NewWalker(c.blocks, WalkerLogger(c.logger)).Walk(ctx, n)
	if err != nil {
		return types.BlockID{}, err
	}
	if err := c.VerifyChain(ctx, links); err != nil {
		return types.BlockID{}, err
	}
	return links[len(links)-1].Target, nil
}

type prefetched struct {
	header *types.BlockHeader
	claims []types.SignatureClaim
	err    error
}

func (c *Client) verifyChain(ctx context.Context, links []Link, onVerified func(*LinkResult)) error {
	if !c.prefetch || len(links) < 2 {
		for _, link := range links {
			if err := c.verifyAndRecord(ctx, link, nil, onVerified); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The fetcher runs at most one link ahead: it blocks on the unbuffered
	// channel until the previous link has been verified.
	var (
		g, gctx = errgroup.WithContext(ctx)
		fetched = make(chan *prefetched)
	)
	g.Go(func() error {
		defer close(fetched)
		for _, link := range links {
			pf := c.fetch(gctx, link)
			select {
			case fetched <- pf:
			case <-gctx.Done():
				return nil
			}
			if pf.err != nil {
				return nil
			}
		}
		return nil
	})

	var err error
	for _, link := range links {
		pf, ok := <-fetched
		if !ok {
			err = c.fail(link, ctx.Err())
			break
		}
		if err = c.verifyAndRecord(ctx, link, pf, onVerified); err != nil {
			break
		}
	}
	cancel()
	if werr := g.Wait(); werr != nil && err == nil {
		err = werr
	}
	return err
}

func (c *Client) verifyAndRecord(ctx context.Context, link Link, pf *prefetched, onVerified func(*LinkResult)) error {
	start := time.Now()
	res, err := c.verifyLink(ctx, link, pf)
	c.metrics.LinkVerificationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return c.fail(link, err)
	}

	c.metrics.LinksVerified.Add(1)
	c.metrics.LatestVerifiedSeqno.Set(float64(link.Target.SeqNo))
	c.metrics.VerifiedWeightRatio.Set(weightRatio(res.Verified, res.Threshold.Weight))
	c.logger.Info("verified key block link",
		"from", link.Trusted.ID.SeqNo,
		"to", link.Target.SeqNo,
		"validator_set", tlbytes.HexBytes(res.Directory.Hash()),
		"verified", res.Verified.ToBig().String(),
		"threshold", res.Threshold.Weight.ToBig().String())

	if onVerified != nil {
		onVerified(res)
	}
	return nil
}

func (c *Client) fail(link Link, err error) error {
	if err == nil {
		err = errors.New("fetcher stopped")
	}
	c.metrics.LinkFailures.With("reason", failureReason(err)).Add(1)

	var from uint32
	if link.Trusted != nil {
		from = link.Trusted.ID.SeqNo
	}
	c.logger.Error("key block link failed", "from", from, "to", link.Target.SeqNo, "err", err)
	return ErrVerificationFailed{From: from, To: link.Target.SeqNo, Reason: err}
}

// fetch gets everything a link needs from the sources.
func (c *Client) fetch(ctx context.Context, link Link) *prefetched {
	header, err := c.blocks.Header(ctx, link.Target)
	if err != nil {
		return &prefetched{err: fmt.Errorf("fetching header of #%d: %w", link.Target.SeqNo, err)}
	}
	claims, err := c.sigs.SignaturesFor(ctx, link.Target.SeqNo)
	if err != nil {
		return &prefetched{err: fmt.Errorf("fetching signatures of #%d: %w", link.Target.SeqNo, err)}
	}
	return &prefetched{header: header, claims: claims}
}

// verifyLink authenticates link.Target against link.Trusted. When pf is nil
// the header and the signatures are fetched here, in that order.
func (c *Client) verifyLink(ctx context.Context, link Link, pf *prefetched) (*LinkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pf != nil && pf.err != nil {
		return nil, pf.err
	}
	if err := link.Trusted.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid trusted key block: %w", err)
	}
	if err := link.Target.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid target block id: %w", err)
	}
	cfg := link.Trusted.Block.Config

	vset, err := types.ValidatorSet(cfg)
	if err != nil {
		return nil, err
	}
	dir, err := types.NewValidatorDirectory(vset)
	if err != nil {
		return nil, err
	}

	var header *types.BlockHeader
	if pf != nil {
		header = pf.header
	} else {
		header, err = c.blocks.Header(ctx, link.Target)
		if err != nil {
			return nil, fmt.Errorf("fetching header of #%d: %w", link.Target.SeqNo, err)
		}
	}
	if err := checkHeader(header, link.Target); err != nil {
		return nil, err
	}

	payload, err := types.NewSigningPayload(link.Target.RootHash, link.Target.FileHash)
	if err != nil {
		return nil, err
	}
	threshold, err := types.QuorumThresholdFromConfig(dir, cfg)
	if err != nil {
		return nil, err
	}

	var claims []types.SignatureClaim
	if pf != nil {
		claims = pf.claims
	} else {
		claims, err = c.sigs.SignaturesFor(ctx, link.Target.SeqNo)
		if err != nil {
			return nil, fmt.Errorf("fetching signatures of #%d: %w", link.Target.SeqNo, err)
		}
	}

	verified, err := VerifyLink(dir, payload, claims)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("signature tally",
		"seqno", link.Target.SeqNo,
		"claims", len(claims),
		"validators", dir.Size(),
		"verified", verified.ToBig().String(),
		"threshold", threshold.Weight.ToBig().String())

	if !types.Accept(verified, threshold.Weight) {
		return nil, ErrInsufficientQuorum{Got: verified, Threshold: threshold.Weight}
	}

	return &LinkResult{
		Link:      link,
		Header:    header,
		Claims:    claims,
		Directory: dir,
		Threshold: threshold,
		Verified:  verified,
	}, nil
}

// checkHeader makes sure the header proof hashes to the root hash target is
// identified by.
func checkHeader(header *types.BlockHeader, target types.BlockID) error {
	if header == nil {
		return ErrStructuralMismatch{SeqNo: target.SeqNo, Reason: "missing header"}
	}
	if !header.ID.Equals(target) {
		return ErrStructuralMismatch{
			SeqNo:  target.SeqNo,
			Reason: fmt.Sprintf("header is for block %v", header.ID),
		}
	}
	computed, err := header.ComputedRootHash()
	if err != nil {
		return ErrStructuralMismatch{SeqNo: target.SeqNo, Reason: err.Error()}
	}
	if !bytes.Equal(computed, target.RootHash) {
		return ErrStructuralMismatch{
			SeqNo:  target.SeqNo,
			Reason: fmt.Sprintf("proof hashes to %X, block claims root hash %X", computed, []byte(target.RootHash)),
		}
	}
	return nil
}

func weightRatio(verified, threshold *uint256.Int) float64 {
	if threshold.IsZero() {
		return 0
	}
	r, _ := new(big.Rat).SetFrac(verified.ToBig(), threshold.ToBig()).Float64()
	return r
}
