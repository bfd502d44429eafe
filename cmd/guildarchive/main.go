package main

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tmserv/guildarchive/internal/config"
	"github.com/tmserv/guildarchive/internal/ingest"
	"github.com/tmserv/guildarchive/internal/status"
	"github.com/tmserv/guildarchive/internal/store"
	"github.com/tmserv/guildarchive/internal/store/migrate"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	app := &cli.App{
		Name:  "guildarchive",
		Usage: "archive guild messages into PostgreSQL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.json",
				Usage:   "path to the configuration file",
			},
			&cli.StringFlag{
				Name:  "guild-id",
				Usage: "archive only this guild",
			},
			&cli.StringFlag{
				Name:  "channel-id",
				Usage: "archive only this channel, skipping guild metadata",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log at debug level",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "also log HTTP transport and database queries at debug level",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "also write logs to this file",
			},
			&cli.StringFlag{
				Name:  "status-addr",
				Usage: "serve crawl progress on this address (e.g. :8090)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	debug := c.Bool("debug")
	if err := setupLogging(c.Bool("verbose") || debug, c.String("log-file")); err != nil {
		return err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	guildFilter, err := parseFilter(c.String("guild-id"))
	if err != nil {
		return cli.Exit("invalid --guild-id", 1)
	}
	channelFilter, err := parseFilter(c.String("channel-id"))
	if err != nil {
		return cli.Exit("invalid --channel-id", 1)
	}

	// SIGINT/SIGTERM cancel the crawl; the current batch still commits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		return err
	}

	pool, err := store.Open(ctx, cfg.DatabaseURL, debug)
	if err != nil {
		return err
	}
	defer pool.Close()
	st := store.NewStore(pool)

	statusAddr := c.String("status-addr")
	if statusAddr == "" {
		statusAddr = cfg.StatusAddr
	}
	if statusAddr != "" {
		srv := &status.Server{DB: pool, Progress: st}
		httpServer := &http.Server{
			Addr:         statusAddr,
			Handler:      srv.Routes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		go func() {
			log.Info().Str("addr", statusAddr).Msg("starting status server")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("status server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()
	}

	// Wire-level request logs stay quiet unless --debug asks for them.
	transport := log.Logger
	if !debug {
		transport = log.Logger.Level(zerolog.InfoLevel)
	}
	orchestrator := ingest.NewOrchestrator(cfg.Accounts, st, log.Logger,
		ingest.WithTransportLogger(transport))
	summary, err := orchestrator.Run(ctx, guildFilter, channelFilter)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn().Msg("interrupted, progress is checkpointed")
			return cli.Exit("", 1)
		}
		return err
	}
	if summary.GuildsFailed > 0 {
		return cli.Exit("some guilds failed", 1)
	}
	return nil
}

func setupLogging(verbose bool, logFile string) error {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	var out io.Writer = console
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		out = zerolog.MultiLevelWriter(console, f)
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "guildarchive").Logger()
	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrate.Up(db)
}

func parseFilter(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
