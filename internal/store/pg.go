package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Open connects to PostgreSQL with a pool sized for the crawl. Accounts
// run sequentially and each channel commits one batch at a time, so a
// few writer connections plus headroom for the status server suffice.
// queryDebug attaches a statement tracer that logs every query at debug
// level.
func Open(ctx context.Context, url string, queryDebug bool) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	if queryDebug {
		cfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   &queryLogger{logger: log.Logger},
			LogLevel: tracelog.LogLevelDebug,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Str("database", cfg.ConnConfig.Database).
		Int32("max_conns", cfg.MaxConns).
		Msg("database pool ready")

	return pool, nil
}

// queryLogger adapts zerolog to pgx's tracelog interface.
type queryLogger struct {
	logger zerolog.Logger
}

func (l *queryLogger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var ev *zerolog.Event
	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug, tracelog.LogLevelInfo:
		ev = l.logger.Debug()
	case tracelog.LogLevelWarn:
		ev = l.logger.Warn()
	default:
		ev = l.logger.Error()
	}
	ev.Fields(data).Msg(msg)
}
