package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/tmserv/guildarchive/internal/archive"
	"github.com/tmserv/guildarchive/internal/snowflake"
)

// GetCheckpoint loads a channel's sync state, or nil when the channel
// has never been crawled.
func (s *Store) GetCheckpoint(ctx context.Context, channelID int64) (*archive.Checkpoint, error) {
	var cp archive.Checkpoint
	err := s.DB.QueryRow(ctx, `
		SELECT channel_id, guild_id, oldest_message_id, newest_message_id,
		       backfill_complete, last_synced_at, created_at
		FROM channel_checkpoints
		WHERE channel_id = $1
	`, channelID).Scan(
		&cp.ChannelID, &cp.GuildID, &cp.OldestMessageID, &cp.NewestMessageID,
		&cp.BackfillComplete, &cp.LastSyncedAt, &cp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to get checkpoint")
		return nil, err
	}
	return &cp, nil
}

// EnsureCheckpoint creates the checkpoint row if absent and returns the
// current state either way.
func (s *Store) EnsureCheckpoint(ctx context.Context, channelID, guildID int64) (*archive.Checkpoint, error) {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO channel_checkpoints (channel_id, guild_id)
		VALUES ($1, $2)
		ON CONFLICT (channel_id) DO NOTHING
	`, channelID, guildID)
	if err != nil {
		log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to create checkpoint")
		return nil, err
	}
	return s.GetCheckpoint(ctx, channelID)
}

// ExtendOldest moves the backfill frontier down after a batch commits.
// The guard keeps the frontier monotonic: a replayed or overlapping
// batch can never move it back up. The newest bound is initialized on
// the very first batch so the incremental pass has an anchor.
func (s *Store) ExtendOldest(ctx context.Context, channelID, batchOldest, batchNewest int64) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE channel_checkpoints SET
			oldest_message_id = CASE
				WHEN oldest_message_id IS NULL OR oldest_message_id > $2
				THEN $2 ELSE oldest_message_id END,
			newest_message_id = CASE
				WHEN newest_message_id IS NULL OR newest_message_id < $3
				THEN $3 ELSE newest_message_id END,
			last_synced_at = now()
		WHERE channel_id = $1
	`, channelID, batchOldest, batchNewest)
	if err != nil {
		log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to extend oldest frontier")
	}
	return err
}

// ExtendNewest moves the incremental frontier up after a batch commits.
func (s *Store) ExtendNewest(ctx context.Context, channelID, batchNewest int64) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE channel_checkpoints SET
			newest_message_id = CASE
				WHEN newest_message_id IS NULL OR newest_message_id < $2
				THEN $2 ELSE newest_message_id END,
			last_synced_at = now()
		WHERE channel_id = $1
	`, channelID, batchNewest)
	if err != nil {
		log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to extend newest frontier")
	}
	return err
}

// MarkBackfillComplete latches the backfill-done flag. It is never
// reset; new history cannot appear below the oldest frontier.
func (s *Store) MarkBackfillComplete(ctx context.Context, channelID int64) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE channel_checkpoints SET
			backfill_complete = TRUE,
			last_synced_at = now()
		WHERE channel_id = $1
	`, channelID)
	if err != nil {
		log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to mark backfill complete")
	}
	return err
}

// IsBackfillComplete reports whether a channel's history walk has
// finished. A channel with no checkpoint has not started.
func (s *Store) IsBackfillComplete(ctx context.Context, channelID int64) (bool, error) {
	var complete bool
	err := s.DB.QueryRow(ctx, `
		SELECT backfill_complete FROM channel_checkpoints
		WHERE channel_id = $1
	`, channelID).Scan(&complete)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to read backfill flag")
		return false, err
	}
	return complete, nil
}

// GetIncompleteBackfills lists the guild's channels whose history walk
// has not finished yet.
func (s *Store) GetIncompleteBackfills(ctx context.Context, guildID int64) ([]int64, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT channel_id FROM channel_checkpoints
		WHERE guild_id = $1 AND NOT backfill_complete
		ORDER BY channel_id
	`, guildID)
	if err != nil {
		log.Error().Err(err).Int64("guild_id", guildID).Msg("failed to list incomplete backfills")
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ChannelProgress is one channel's crawl state for reporting. The
// frontier timestamps are derived from the message IDs themselves.
type ChannelProgress struct {
	ChannelID        int64   `json:"channel_id"`
	Name             *string `json:"name,omitempty"`
	Type             int     `json:"type"`
	BackfillComplete bool    `json:"backfill_complete"`
	OldestMessageID  *int64  `json:"oldest_message_id,omitempty"`
	NewestMessageID  *int64  `json:"newest_message_id,omitempty"`
	OldestMessageAt  *string `json:"oldest_message_at,omitempty"`
	NewestMessageAt  *string `json:"newest_message_at,omitempty"`
	MessageCount     int64   `json:"message_count"`
	LastSyncedAt     string  `json:"last_synced_at"`
}

// GuildProgress reports per-channel crawl state for one guild, newest
// activity first.
func (s *Store) GuildProgress(ctx context.Context, guildID int64) ([]ChannelProgress, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT cp.channel_id, c.name, c.type, cp.backfill_complete,
		       cp.oldest_message_id, cp.newest_message_id,
		       (SELECT count(*) FROM messages m WHERE m.channel_id = cp.channel_id),
		       cp.last_synced_at
		FROM channel_checkpoints cp
		JOIN channels c ON c.channel_id = cp.channel_id
		WHERE cp.guild_id = $1
		ORDER BY cp.last_synced_at DESC
	`, guildID)
	if err != nil {
		log.Error().Err(err).Int64("guild_id", guildID).Msg("failed to query guild progress")
		return nil, err
	}
	defer rows.Close()

	var out []ChannelProgress
	for rows.Next() {
		var p ChannelProgress
		var lastSynced time.Time
		if err := rows.Scan(&p.ChannelID, &p.Name, &p.Type,
			&p.BackfillComplete, &p.OldestMessageID, &p.NewestMessageID,
			&p.MessageCount, &lastSynced); err != nil {
			log.Error().Err(err).Msg("failed to scan progress row")
			return nil, err
		}
		p.LastSyncedAt = lastSynced.UTC().Format(time.RFC3339)
		if p.OldestMessageID != nil {
			ts := snowflake.Time(*p.OldestMessageID).Format(time.RFC3339)
			p.OldestMessageAt = &ts
		}
		if p.NewestMessageID != nil {
			ts := snowflake.Time(*p.NewestMessageID).Format(time.RFC3339)
			p.NewestMessageAt = &ts
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
