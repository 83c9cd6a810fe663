package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonlight/tonlight/config"
	"github.com/tonlight/tonlight/libs/log"
	tlos "github.com/tonlight/tonlight/libs/os"
	"github.com/tonlight/tonlight/light"
	"github.com/tonlight/tonlight/light/store"
	"github.com/tonlight/tonlight/types"
)

// number of verified key blocks kept in the store
const storeSize = 100

// MakeVerifyCommand returns the command that extends trust to the newest key
// block.
func MakeVerifyCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var (
		reset    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the chain of key blocks up to the newest one",
		Long: `Verify the chain of key blocks up to the newest one.

The first run trusts the oldest of the last --key-blocks key blocks and
verifies every following one. The newest verified key block is saved, and
later runs extend trust from it. --reset discards the saved key block.

With --interval the verification repeats until the process is stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			done := make(chan struct{})
			defer close(done)
			tlos.TrapSignal(logger, func() {
				cancel()
				select {
				case <-done:
				case <-time.After(5 * time.Second):
				}
			})

			return runVerify(ctx, conf, logger, cmd.OutOrStdout(), reset, interval)
		},
	}
	cmd.Flags().Int("key-blocks", conf.Light.KeyBlocks, "number of key blocks to verify, including the trusted one")
	cmd.Flags().String("fixtures", conf.Light.FixturesDir, "fixtures directory")
	cmd.Flags().String("signatures", conf.Light.SignatureSource, "signature source (fixtures | toncenter)")
	cmd.Flags().Bool("prefetch", conf.Light.Prefetch, "fetch the next link while the current one is verified")
	cmd.Flags().BoolVar(&reset, "reset", false, "ignore the saved key block")
	cmd.Flags().DurationVar(&interval, "interval", 0, "repeat the verification at this interval")
	return cmd
}

func runVerify(
	ctx context.Context,
	conf *config.Config,
	logger log.Logger,
	out io.Writer,
	reset bool,
	interval time.Duration,
) error {
	metrics, stopMetrics, err := startMetrics(conf, logger)
	if err != nil {
		return err
	}
	defer stopMetrics()

	trusted, closeStore, err := openStore(conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("closing store", "err", err)
		}
	}()

	for {
		newest, err := verifyOnce(ctx, conf, logger, metrics, trusted, reset)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, newest.String())

		if interval <= 0 {
			return nil
		}
		reset = false

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// verifyOnce extends trust from the saved key block, or from the oldest of
// the last key_blocks key blocks, to the newest key block and saves it.
func verifyOnce(
	ctx context.Context,
	conf *config.Config,
	logger log.Logger,
	metrics *light.Metrics,
	trusted store.Store,
	reset bool,
) (types.BlockID, error) {
	// reloaded every round so new fixtures are picked up
	srcs, err := newSources(conf, logger)
	if err != nil {
		return types.BlockID{}, err
	}
	walker := light.NewWalker(srcs.blocks, light.WalkerLogger(logger.With("module", "walker")))

	var links []light.Link
	saved, err := trusted.LatestKeyBlock()
	switch {
	case err == nil && !reset:
		logger.Info("resuming from saved key block", "seqno", saved.ID.SeqNo)
		links, err = walker.WalkFrom(ctx, saved)
	case err == nil || errors.Is(err, store.ErrKeyBlockNotFound):
		links, err = walker.Walk(ctx, conf.Light.KeyBlocks)
	}
	if err != nil {
		return types.BlockID{}, err
	}
	if len(links) == 0 {
		logger.Info("saved key block is the newest one", "seqno", saved.ID.SeqNo)
		return saved.ID, nil
	}

	if err := srcs.newClient(conf, logger, metrics).VerifyChain(ctx, links); err != nil {
		return types.BlockID{}, err
	}

	newest := links[len(links)-1].Target
	block, err := srcs.blocks.DecodedBlock(ctx, newest)
	if err != nil {
		return types.BlockID{}, fmt.Errorf("fetching verified block #%d: %w", newest.SeqNo, err)
	}
	if err := trusted.SaveKeyBlock(&types.KeyBlock{ID: newest, Block: block}); err != nil {
		return types.BlockID{}, fmt.Errorf("saving verified key block: %w", err)
	}
	if err := trusted.Prune(storeSize); err != nil {
		return types.BlockID{}, fmt.Errorf("pruning store: %w", err)
	}

	logger.Info("verified chain", "from", links[0].Trusted.ID.SeqNo, "to", newest.SeqNo, "links", len(links))
	return newest, nil
}
