package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tonlight/tonlight/config"
	"github.com/tonlight/tonlight/libs/log"
	tlos "github.com/tonlight/tonlight/libs/os"
)

// MakeInitCommand returns the command that writes the config file and
// creates the fixtures directory.
func MakeInitCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the tonlight home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := filepath.Join(conf.RootDir, "config", "config.toml")
			if force {
				if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
					return err
				}
				logger.Info("wrote config file", "path", configFile)
			} else {
				logger.Info("found config file", "path", configFile)
			}

			if err := tlos.EnsureDir(conf.Light.FixturesPath(), 0700); err != nil {
				return fmt.Errorf("creating fixtures directory: %w", err)
			}
			logger.Info("fixtures directory", "path", conf.Light.FixturesPath())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite the config file with the current settings")
	return cmd
}
