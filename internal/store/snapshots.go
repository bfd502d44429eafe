package store

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tmserv/guildarchive/internal/archive"
)

// Convenience wrappers used by the crawl: each saves one snapshot class
// on the pool, the guild together with its roles in one transaction.

// SaveGuild writes the guild and its role list atomically.
func (s *Store) SaveGuild(ctx context.Context, g *archive.Guild, roles []archive.Role) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to begin guild transaction")
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.UpsertGuild(ctx, tx, g); err != nil {
		return err
	}
	if err := s.UpsertRoles(ctx, tx, roles); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SaveChannels writes channel snapshots.
func (s *Store) SaveChannels(ctx context.Context, channels []archive.Channel) error {
	return s.UpsertChannels(ctx, s.DB, channels)
}

// SaveEmojis writes emoji snapshots.
func (s *Store) SaveEmojis(ctx context.Context, emojis []archive.Emoji) error {
	return s.UpsertEmojis(ctx, s.DB, emojis)
}

// SaveStickers writes sticker snapshots.
func (s *Store) SaveStickers(ctx context.Context, stickers []archive.Sticker) error {
	return s.UpsertStickers(ctx, s.DB, stickers)
}

// SaveScheduledEvents writes scheduled event snapshots.
func (s *Store) SaveScheduledEvents(ctx context.Context, events []archive.ScheduledEvent) error {
	return s.UpsertScheduledEvents(ctx, s.DB, events)
}

// SaveUsers writes user snapshots.
func (s *Store) SaveUsers(ctx context.Context, users []archive.User) error {
	return s.UpsertUsers(ctx, s.DB, users)
}
