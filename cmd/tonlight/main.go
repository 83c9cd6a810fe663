package main

import (
	"context"
	"os"

	"github.com/tonlight/tonlight/cmd/tonlight/commands"
	"github.com/tonlight/tonlight/config"
	"github.com/tonlight/tonlight/libs/cli"
	"github.com/tonlight/tonlight/libs/log"
)

func main() {
	ctx := context.Background()

	conf := config.DefaultConfig()

	logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		panic(err)
	}

	rcmd := commands.RootCommand(conf, logger)
	rcmd.AddCommand(
		commands.MakeInitCommand(conf, logger),
		commands.MakeVerifyCommand(conf, logger),
		commands.MakeExportCommand(conf, logger),
		commands.MakeStatusCommand(conf, logger),
		commands.VersionCmd,
	)

	if err := cli.RunWithTrace(ctx, rcmd); err != nil {
		os.Exit(1)
	}
}
