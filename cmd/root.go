package cmd

import (
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "watchfeed",
		Usage: "An aggregator for watch-industry publication feeds",
		Description: `Polls a fixed set of RSS/Atom feeds from watch-industry
		publications, normalizes and deduplicates their entries, and serves
		them through a JSON API with an image proxy.

		Flags can generally be set via environment variables, e.g.:

		--database => WATCHFEED_DATABASE=articles.db
		--port => WATCHFEED_PORT=5001
		`,
		Commands: []*cli.Command{
			serveCmd(),
			fetchCmd(),
			migrateCmd(),
			rollbackCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}
