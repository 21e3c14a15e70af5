package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rxtech-lab/trading-desk/internal/version"
	"github.com/urfave/cli/v3"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "desk",
		Usage:   "Paper trading desk for crypto and currency pairs",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or TOML config file",
				Sources: cli.EnvVars("DESK_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides the config file",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			watchCommand(),
			searchCommand(),
			addCommand(),
			removeCommand(),
			selectCommand(),
			orderCommand(),
			closeCommand(),
			portfolioCommand(),
			refreshCommand(),
			prefsCommand(),
			schemaCommand(),
		},
	}
}

func main() {
	if err := newRootCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
