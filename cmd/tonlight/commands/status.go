package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonlight/tonlight/config"
	"github.com/tonlight/tonlight/libs/log"
	tlos "github.com/tonlight/tonlight/libs/os"
	"github.com/tonlight/tonlight/light/store"
	"github.com/tonlight/tonlight/types"
)

// Status is printed by the status command.
type Status struct {
	Home            string            `json:"home"`
	SignatureSource string            `json:"signature_source"`
	Fixtures        *FixturesStatus   `json:"fixtures,omitempty"`
	Store           StoreStatus       `json:"store"`
	RemoteTip       *types.BlockID    `json:"remote_tip,omitempty"`
	Liteservers     []LiteserverEntry `json:"liteservers,omitempty"`
	Errors          []string          `json:"errors,omitempty"`
}

// FixturesStatus describes the loaded fixtures.
type FixturesStatus struct {
	Dir       string `json:"dir"`
	KeyBlocks int    `json:"key_blocks"`
	First     uint32 `json:"first"`
	Last      uint32 `json:"last"`
}

// StoreStatus describes the saved key blocks.
type StoreStatus struct {
	Size   uint16         `json:"size"`
	Latest *types.BlockID `json:"latest,omitempty"`
}

// LiteserverEntry is a liteserver from the global config.
type LiteserverEntry struct {
	Address string `json:"address"`
	NodeID  string `json:"node_id"`
}

// MakeStatusCommand returns the command that reports what the verifier
// trusts and where it reads from.
func MakeStatusCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved key block and the configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := Status{
				Home:            conf.RootDir,
				SignatureSource: conf.Light.SignatureSource,
			}
			fail := func(what string, err error) {
				logger.Debug("status", "part", what, "err", err)
				st.Errors = append(st.Errors, fmt.Sprintf("%s: %v", what, err))
			}

			srcs, err := newSources(conf, logger)
			if err != nil {
				fail("fixtures", err)
			} else {
				f := srcs.fixtures
				st.Fixtures = &FixturesStatus{
					Dir:       conf.Light.FixturesPath(),
					KeyBlocks: len(f.Blocks),
					First:     f.Blocks[0].ID.SeqNo,
					Last:      f.Blocks[len(f.Blocks)-1].ID.SeqNo,
				}
				if srcs.remote != nil {
					tip, err := srcs.remote.ChainTip(cmd.Context())
					if err != nil {
						fail("toncenter", err)
					} else {
						st.RemoteTip = &tip
					}
				}
			}

			trusted, closeStore, err := openStore(conf)
			if err != nil {
				return err
			}
			defer closeStore() //nolint:errcheck
			st.Store.Size = trusted.Size()
			latest, err := trusted.LatestKeyBlock()
			switch {
			case err == nil:
				st.Store.Latest = &latest.ID
			case !errors.Is(err, store.ErrKeyBlockNotFound):
				fail("store", err)
			}

			if path := conf.Light.GlobalConfigFile(); tlos.FileExists(path) {
				gc, err := config.LoadGlobalConfig(path)
				if err != nil {
					fail("global config", err)
				} else {
					for _, ls := range gc.Liteservers {
						st.Liteservers = append(st.Liteservers, LiteserverEntry{
							Address: ls.Address(),
							NodeID:  ls.NodeID().String(),
						})
					}
				}
			}

			bz, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
}
