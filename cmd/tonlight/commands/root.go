package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tonlight/tonlight/config"
	"github.com/tonlight/tonlight/libs/cli"
	"github.com/tonlight/tonlight/libs/log"
)

// ParseConfig retrieves the default environment configuration,
// sets up the tonlight root and ensures that the root exists
func ParseConfig(conf *config.Config) (*config.Config, error) {
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point for tonlight.
func RootCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tonlight",
		Short: "Verify the TON masterchain key block chain of trust",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == VersionCmd.Name() {
				return nil
			}

			if err := cli.BindFlagsLoadViper(cmd, args); err != nil {
				return err
			}
			if err := bindLightFlags(cmd); err != nil {
				return err
			}

			pconf, err := ParseConfig(conf)
			if err != nil {
				return err
			}
			*conf = *pconf
			if err := config.EnsureRoot(conf.RootDir); err != nil {
				return err
			}
			return log.OverrideWithNewLogger(logger, conf.LogFormat, conf.LogLevel)
		},
	}
	cmd.PersistentFlags().StringP(cli.HomeFlag, "", config.DefaultHome(), "directory for config and data")
	cmd.PersistentFlags().Bool(cli.TraceFlag, false, "print out the full error chain on errors")
	cmd.PersistentFlags().String("log_level", conf.LogLevel, "log level (debug | info | error)")
	cmd.PersistentFlags().String("log_format", conf.LogFormat, "log format (plain | json)")
	cobra.OnInitialize(func() { cli.InitEnv("TONLIGHT") })
	return cmd
}

// lightFlags maps subcommand flags to keys of the [light] section.
var lightFlags = map[string]string{
	"key-blocks": "key_blocks",
	"fixtures":   "fixtures_dir",
	"signatures": "signature_source",
	"prefetch":   "prefetch",
}

// bindLightFlags binds the flags of the running command to the [light]
// section so they override the config file.
func bindLightFlags(cmd *cobra.Command) error {
	for flag, key := range lightFlags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag("light."+key, f); err != nil {
			return err
		}
	}
	return nil
}
