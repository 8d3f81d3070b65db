package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"watchfeed/config"
	"watchfeed/db"
	"watchfeed/feeds"
	"watchfeed/models"
	"watchfeed/scheduler"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch all configured feeds once and exit",
		Description: `Runs a single bootstrap fetch across all configured sources and
stores the results in the database.

With --json the stored articles are printed to stdout, one JSON object per
line. Use a tool like jq to process the output; all other log messages go
to stderr.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the TOML config file",
				EnvVars: []string{"WATCHFEED_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "database",
				Usage:   "SQLite database path",
				EnvVars: []string{"WATCHFEED_DATABASE"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print fetched articles as JSON lines on stdout",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return err
			}
			if ctx.IsSet("database") {
				cfg.Database = ctx.String("database")
			}

			if ctx.Bool("json") {
				// Keep stdout clean for the JSON output
				log.SetOutput(os.Stderr)
			}

			if err := db.Migrate(cfg.Database); err != nil {
				return fmt.Errorf("error running migrations: %w", err)
			}

			store, err := db.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			fetcher := feeds.NewFetcher(store, cfg.Fetch)
			sched := scheduler.New(cfg.Sources, fetcher, store, 0, 0)
			sched.Bootstrap(ctx.Context)

			if ctx.Bool("json") {
				articles, _, err := store.Query(ctx.Context, models.ArticleFilters{
					Page:  1,
					Limit: cfg.Fetch.MaxEntries * len(cfg.Sources),
				})
				if err != nil {
					return err
				}
				for _, article := range articles {
					printStdout(&article)
				}
			}

			return nil
		},
	}
}

func printStdout(article *models.Article) {
	// Print as single JSON string on a single line
	articleJson, err := json.Marshal(article)
	if err == nil {
		fmt.Println(string(articleJson))
	}
}
