package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonlight/tonlight/config"
	"github.com/tonlight/tonlight/libs/log"
	"github.com/tonlight/tonlight/light"
	"github.com/tonlight/tonlight/light/provider/fixture"
)

// MakeExportCommand returns the command that verifies the last key blocks
// and writes them, with the signatures that proved them, as fixtures.
func MakeExportCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Verify the last key blocks and write them as fixtures",
		Long: `Verify the last key blocks and write them as fixtures.

Blocks come from the fixtures directory and signatures from the configured
signature source. Nothing is written unless every link verifies.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if out == conf.Light.FixturesPath() {
				return errors.New("--out must differ from the fixtures directory")
			}

			srcs, err := newSources(conf, logger)
			if err != nil {
				return err
			}
			links, err := light.NewWalker(srcs.blocks).Walk(cmd.Context(), conf.Light.KeyBlocks)
			if err != nil {
				return err
			}

			client := srcs.newClient(conf, logger, light.NopMetrics())
			f, err := light.GenerateFixtures(cmd.Context(), client, links)
			if err != nil {
				return err
			}
			if err := fixture.Write(out, f); err != nil {
				return err
			}

			first, last := f.Blocks[0].ID.SeqNo, f.Blocks[len(f.Blocks)-1].ID.SeqNo
			logger.Info("exported fixtures", "dir", out, "from", first, "to", last)
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d key blocks (#%d..#%d) to %s\n", len(f.Blocks), first, last, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "directory to write the fixtures to")
	cmd.Flags().Int("key-blocks", conf.Light.KeyBlocks, "number of key blocks to export")
	cmd.Flags().String("signatures", conf.Light.SignatureSource, "signature source (fixtures | toncenter)")
	return cmd
}
