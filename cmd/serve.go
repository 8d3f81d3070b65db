package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"watchfeed/config"
	"watchfeed/db"
	"watchfeed/feeds"
	"watchfeed/scheduler"
	"watchfeed/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the aggregated articles",
		Description: `Starts the HTTP server and the background feed scheduler.

All configured sources are fetched once at startup; after a fixed delay the
scheduler refreshes them on a fixed interval. Articles are written to the
SQLite database and served via the JSON API and image proxy.`,
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
			&cli.IntFlag{
				Name:    "port",
				Usage:   "Port to listen on",
				EnvVars: []string{"WATCHFEED_PORT"},
				Value:   5001,
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

			if err := db.Migrate(cfg.Database); err != nil {
				return fmt.Errorf("error running migrations: %w", err)
			}

			store, err := db.NewDB(cfg.Database)
			if err != nil {
				return err
			}

			fetcher := feeds.NewFetcher(store, cfg.Fetch)
			sched := scheduler.New(cfg.Sources, fetcher, store, cfg.Fetch.StartupDelay(), cfg.Fetch.Interval())
			app := server.Server(&server.ServerConfig{DB: store})

			runCtx, cancel := context.WithCancel(ctx.Context)
			defer cancel()

			go func() {
				log.Info("Starting scheduler...")
				sched.Run(runCtx)
			}()

			go func() {
				log.Info("Starting server...")
				if err := app.Listen(fmt.Sprintf(":%d", ctx.Int("port"))); err != nil {
					log.Panic(err)
				}
			}()

			// Graceful shutdown; in-flight fetches are abandoned
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			<-c

			log.Info("Gracefully shutting down...")
			cancel()
			if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
				log.Error("Error shutting down server", err)
			}
			return store.Close()
		},
	}
}
