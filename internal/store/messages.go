package store

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tmserv/guildarchive/internal/archive"
	"github.com/tmserv/guildarchive/internal/mapper"
)

// PersistBatch writes one fetched message page atomically: users, then
// messages, attachments, and reactions. author_id is a soft reference;
// webhook and system authors may never get a user row of their own.
// It returns how many message rows were newly inserted; rows already
// archived are left untouched.
func (s *Store) PersistBatch(ctx context.Context, guildID int64, bundles []mapper.MessageBundle) (int, error) {
	if len(bundles) == 0 {
		return 0, nil
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to begin batch transaction")
		return 0, err
	}
	defer tx.Rollback(ctx)

	var users []archive.User
	for i := range bundles {
		users = append(users, bundles[i].Users...)
	}
	if err := s.UpsertUsers(ctx, tx, users); err != nil {
		return 0, err
	}

	inserted := 0
	for i := range bundles {
		b := &bundles[i]
		m := &b.Message
		if m.GuildID == nil && guildID != 0 {
			m.GuildID = &guildID
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO messages (
				message_id, channel_id, author_id, guild_id, content,
				created_at, edited_timestamp, type, tts, flags, pinned,
				mention_everyone, mentions, mention_roles, mention_channels,
				webhook_id, application, application_id, message_reference,
				referenced_message_id, message_snapshots, interaction_metadata,
				thread, embeds, components, sticker_items, poll, activity,
				call, role_subscription_data, raw
			)
			VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
				$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
				$27, $28, $29, $30, $31
			)
			ON CONFLICT (message_id) DO NOTHING
		`,
			m.MessageID, m.ChannelID, m.AuthorID, m.GuildID, m.Content,
			m.CreatedAt, m.EditedTimestamp, m.Type, m.TTS, m.Flags, m.Pinned,
			m.MentionEveryone, m.Mentions, m.MentionRoles, m.MentionChannels,
			m.WebhookID, m.Application, m.ApplicationID, m.MessageReference,
			m.ReferencedMessageID, m.MessageSnapshots, m.InteractionMetadata,
			m.Thread, m.Embeds, m.Components, m.StickerItems, m.Poll,
			m.Activity, m.Call, m.RoleSubscriptionData, m.Raw,
		)
		if err != nil {
			log.Error().Err(err).Int64("message_id", m.MessageID).Msg("failed to insert message")
			return 0, err
		}
		inserted += int(tag.RowsAffected())

		for j := range b.Attachments {
			a := &b.Attachments[j]
			_, err := tx.Exec(ctx, `
				INSERT INTO attachments (
					attachment_id, message_id, filename, description,
					content_type, size, url, proxy_url, height, width,
					duration_secs, waveform, ephemeral, flags, title, raw
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
				ON CONFLICT (attachment_id) DO NOTHING
			`,
				a.AttachmentID, a.MessageID, a.Filename, a.Description,
				a.ContentType, a.Size, a.URL, a.ProxyURL, a.Height, a.Width,
				a.DurationSecs, a.Waveform, a.Ephemeral, a.Flags, a.Title,
				a.Raw,
			)
			if err != nil {
				log.Error().Err(err).Int64("attachment_id", a.AttachmentID).Msg("failed to insert attachment")
				return 0, err
			}
		}

		for j := range b.Reactions {
			r := &b.Reactions[j]
			_, err := tx.Exec(ctx, `
				INSERT INTO reactions (
					message_id, emoji_key, emoji_id, emoji_name,
					emoji_animated, count, count_details, burst_colors, raw
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (message_id, emoji_key) DO UPDATE SET
					count = EXCLUDED.count,
					count_details = EXCLUDED.count_details,
					burst_colors = EXCLUDED.burst_colors,
					raw = EXCLUDED.raw,
					updated_at = now()
			`,
				r.MessageID, r.EmojiKey, r.EmojiID, r.EmojiName,
				r.EmojiAnimated, r.Count, r.CountDetails, r.BurstColors, r.Raw,
			)
			if err != nil {
				log.Error().Err(err).Int64("message_id", r.MessageID).Str("emoji_key", r.EmojiKey).Msg("failed to upsert reaction")
				return 0, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("failed to commit batch")
		return 0, err
	}
	return inserted, nil
}

// CountMessages returns the number of archived messages in a channel.
func (s *Store) CountMessages(ctx context.Context, channelID int64) (int64, error) {
	var n int64
	err := s.DB.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE channel_id = $1`,
		channelID).Scan(&n)
	return n, err
}
