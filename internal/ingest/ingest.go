// Package ingest drives the crawl: message engines, thread discovery,
// and the per-guild processor.
//
// Engines commit in page-sized batches and advance the channel
// checkpoint only after the batch transaction lands, so a crash between
// the two re-fetches at most one page. Backfill walks history downward
// with a before cursor; the incremental pass walks upward from the
// newest frontier with an after cursor.
package ingest

import (
	"context"
	"strconv"

	"github.com/tmserv/guildarchive/internal/archive"
	"github.com/tmserv/guildarchive/internal/discord"
	"github.com/tmserv/guildarchive/internal/mapper"
)

// MessageSource fetches message pages. *discord.Client satisfies it.
type MessageSource interface {
	GetMessages(ctx context.Context, channelID int64, q discord.MessageQuery) ([]discord.Message, error)
}

// Persister writes a mapped message page atomically. *store.Store
// satisfies it.
type Persister interface {
	PersistBatch(ctx context.Context, guildID int64, bundles []mapper.MessageBundle) (int, error)
}

// Checkpoints tracks per-channel crawl frontiers. *store.Store
// satisfies it.
type Checkpoints interface {
	GetCheckpoint(ctx context.Context, channelID int64) (*archive.Checkpoint, error)
	EnsureCheckpoint(ctx context.Context, channelID, guildID int64) (*archive.Checkpoint, error)
	ExtendOldest(ctx context.Context, channelID, batchOldest, batchNewest int64) error
	ExtendNewest(ctx context.Context, channelID, batchNewest int64) error
	MarkBackfillComplete(ctx context.Context, channelID int64) error
}

// mapPage maps a fetched page and computes its ID bounds. Messages
// that fail to map are dropped with a warning rather than aborting the
// page; system messages occasionally arrive without an author.
func (e *Engine) mapPage(messages []discord.Message) (bundles []mapper.MessageBundle, oldest, newest int64) {
	for i := range messages {
		bundle, err := mapper.Message(&messages[i])
		if err != nil {
			e.logger.Warn().Err(err).Str("message_id", messages[i].ID).Msg("skipping unmappable message")
			continue
		}
		id := bundle.Message.MessageID
		if oldest == 0 || id < oldest {
			oldest = id
		}
		if id > newest {
			newest = id
		}
		bundles = append(bundles, *bundle)
	}
	return bundles, oldest, newest
}

func rawID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}
