package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tmserv/guildarchive/internal/discord"
	"github.com/tmserv/guildarchive/internal/snowflake"
)

// Engine crawls one guild's channels page by page.
type Engine struct {
	source      MessageSource
	persister   Persister
	checkpoints Checkpoints
	guildID     int64
	logger      zerolog.Logger
}

// NewEngine builds an engine for one guild.
func NewEngine(source MessageSource, persister Persister, checkpoints Checkpoints, guildID int64, logger zerolog.Logger) *Engine {
	return &Engine{
		source:      source,
		persister:   persister,
		checkpoints: checkpoints,
		guildID:     guildID,
		logger:      logger,
	}
}

// Backfill walks a channel's history downward from the oldest frontier
// (or from the newest message on a fresh channel) until the beginning
// of history, committing one page at a time. Safe to interrupt and
// re-run: it resumes from the last committed frontier.
func (e *Engine) Backfill(ctx context.Context, channelID int64) (int, error) {
	logger := e.logger.With().Int64("channel_id", channelID).Logger()

	cp, err := e.checkpoints.EnsureCheckpoint(ctx, channelID, e.guildID)
	if err != nil {
		return 0, err
	}
	if cp.BackfillComplete {
		logger.Debug().Msg("backfill already complete")
		return 0, nil
	}

	var cursor int64
	if cp.OldestMessageID != nil {
		cursor = *cp.OldestMessageID
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		page, err := e.source.GetMessages(ctx, channelID, discord.MessageQuery{
			Limit:  discord.MaxMessageBatch,
			Before: cursor,
		})
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			if err := e.checkpoints.MarkBackfillComplete(ctx, channelID); err != nil {
				return total, err
			}
			logger.Info().Int("messages", total).Msg("backfill complete")
			return total, nil
		}

		bundles, oldest, newest := e.mapPage(page)
		if len(bundles) > 0 {
			inserted, err := e.persister.PersistBatch(ctx, e.guildID, bundles)
			if err != nil {
				return total, err
			}
			total += inserted
			if err := e.checkpoints.ExtendOldest(ctx, channelID, oldest, newest); err != nil {
				return total, err
			}
			cursor = oldest
		} else {
			// Whole page unmappable; still move past it.
			cursor = pageMinID(page, cursor)
		}

		logger.Debug().
			Int("page_size", len(page)).
			Int64("cursor", cursor).
			Str("cursor_day", snowflake.Day(cursor)).
			Msg("backfill page committed")

		if len(page) < discord.MaxMessageBatch {
			if err := e.checkpoints.MarkBackfillComplete(ctx, channelID); err != nil {
				return total, err
			}
			logger.Info().Int("messages", total).Msg("backfill complete")
			return total, nil
		}
	}
}

// Incremental walks a channel upward from the newest frontier, pulling
// everything that arrived since the last crawl. A channel with no
// frontier yet has nothing to do; backfill initializes it.
func (e *Engine) Incremental(ctx context.Context, channelID int64) (int, error) {
	logger := e.logger.With().Int64("channel_id", channelID).Logger()

	cp, err := e.checkpoints.EnsureCheckpoint(ctx, channelID, e.guildID)
	if err != nil {
		return 0, err
	}
	if cp.NewestMessageID == nil {
		logger.Debug().Msg("no newest frontier, skipping incremental pass")
		return 0, nil
	}
	cursor := *cp.NewestMessageID

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		page, err := e.source.GetMessages(ctx, channelID, discord.MessageQuery{
			Limit: discord.MaxMessageBatch,
			After: cursor,
		})
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			return total, nil
		}

		bundles, _, newest := e.mapPage(page)
		if len(bundles) > 0 {
			inserted, err := e.persister.PersistBatch(ctx, e.guildID, bundles)
			if err != nil {
				return total, err
			}
			total += inserted
			if err := e.checkpoints.ExtendNewest(ctx, channelID, newest); err != nil {
				return total, err
			}
			cursor = newest
		} else {
			cursor = pageMaxID(page, cursor)
		}

		logger.Debug().
			Int("page_size", len(page)).
			Int64("cursor", cursor).
			Msg("incremental page committed")

		if len(page) < discord.MaxMessageBatch {
			return total, nil
		}
	}
}

func pageMinID(page []discord.Message, fallback int64) int64 {
	min := fallback
	for i := range page {
		if id, ok := rawID(page[i].ID); ok && (min == fallback || id < min) {
			min = id
		}
	}
	return min
}

func pageMaxID(page []discord.Message, fallback int64) int64 {
	max := fallback
	for i := range page {
		if id, ok := rawID(page[i].ID); ok && id > max {
			max = id
		}
	}
	return max
}
