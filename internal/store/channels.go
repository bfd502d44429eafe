package store

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tmserv/guildarchive/internal/archive"
)

const upsertChannelSQL = `
	INSERT INTO channels (
		channel_id, guild_id, type, name, topic, position,
		permission_overwrites, parent_id, nsfw, last_message_id, bitrate,
		user_limit, rtc_region, video_quality_mode, rate_limit_per_user,
		owner_id, thread_metadata, message_count, member_count,
		total_message_sent, default_auto_archive_duration,
		default_thread_rate_limit_per_user, available_tags, applied_tags,
		default_reaction_emoji, default_sort_order, default_forum_layout,
		flags, recipients, icon, application_id, managed,
		last_pin_timestamp, raw
	)
	VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28,
		$29, $30, $31, $32, $33, $34
	)
	ON CONFLICT (channel_id) DO UPDATE SET
		guild_id = EXCLUDED.guild_id,
		type = EXCLUDED.type,
		name = EXCLUDED.name,
		topic = EXCLUDED.topic,
		position = EXCLUDED.position,
		permission_overwrites = EXCLUDED.permission_overwrites,
		parent_id = EXCLUDED.parent_id,
		nsfw = EXCLUDED.nsfw,
		last_message_id = EXCLUDED.last_message_id,
		bitrate = EXCLUDED.bitrate,
		user_limit = EXCLUDED.user_limit,
		rtc_region = EXCLUDED.rtc_region,
		video_quality_mode = EXCLUDED.video_quality_mode,
		rate_limit_per_user = EXCLUDED.rate_limit_per_user,
		owner_id = EXCLUDED.owner_id,
		thread_metadata = EXCLUDED.thread_metadata,
		message_count = EXCLUDED.message_count,
		member_count = EXCLUDED.member_count,
		total_message_sent = EXCLUDED.total_message_sent,
		default_auto_archive_duration = EXCLUDED.default_auto_archive_duration,
		default_thread_rate_limit_per_user = EXCLUDED.default_thread_rate_limit_per_user,
		available_tags = EXCLUDED.available_tags,
		applied_tags = EXCLUDED.applied_tags,
		default_reaction_emoji = EXCLUDED.default_reaction_emoji,
		default_sort_order = EXCLUDED.default_sort_order,
		default_forum_layout = EXCLUDED.default_forum_layout,
		flags = EXCLUDED.flags,
		recipients = EXCLUDED.recipients,
		icon = EXCLUDED.icon,
		application_id = EXCLUDED.application_id,
		managed = EXCLUDED.managed,
		last_pin_timestamp = EXCLUDED.last_pin_timestamp,
		raw = EXCLUDED.raw,
		updated_at = now()
`

func (s *Store) execUpsertChannel(ctx context.Context, q Querier, ch *archive.Channel, parentID *int64) error {
	_, err := q.Exec(ctx, upsertChannelSQL,
		ch.ChannelID, ch.GuildID, ch.Type, ch.Name, ch.Topic, ch.Position,
		ch.PermissionOverwrites, parentID, ch.NSFW, ch.LastMessageID,
		ch.Bitrate, ch.UserLimit, ch.RTCRegion, ch.VideoQualityMode,
		ch.RateLimitPerUser, ch.OwnerID, ch.ThreadMetadata, ch.MessageCount,
		ch.MemberCount, ch.TotalMessageSent, ch.DefaultAutoArchiveDuration,
		ch.DefaultThreadRateLimitPerUser, ch.AvailableTags, ch.AppliedTags,
		ch.DefaultReactionEmoji, ch.DefaultSortOrder, ch.DefaultForumLayout,
		ch.Flags, ch.Recipients, ch.Icon, ch.ApplicationID, ch.Managed,
		ch.LastPinTimestamp, ch.Raw,
	)
	return err
}

// UpsertChannels writes channel snapshots in two passes: first every
// row with parent_id cleared, then the parent links. Category parents
// and thread parents can appear after their children in the listing,
// so a single pass would trip the self-referencing foreign key.
func (s *Store) UpsertChannels(ctx context.Context, q Querier, channels []archive.Channel) error {
	for i := range channels {
		ch := &channels[i]
		if err := s.execUpsertChannel(ctx, q, ch, nil); err != nil {
			log.Error().Err(err).Int64("channel_id", ch.ChannelID).Msg("failed to upsert channel")
			return err
		}
	}
	for i := range channels {
		ch := &channels[i]
		if ch.ParentID == nil {
			continue
		}
		_, err := q.Exec(ctx, `
			UPDATE channels SET parent_id = $1
			WHERE channel_id = $2
			  AND EXISTS (SELECT 1 FROM channels WHERE channel_id = $1)
		`, *ch.ParentID, ch.ChannelID)
		if err != nil {
			log.Error().Err(err).Int64("channel_id", ch.ChannelID).Msg("failed to link channel parent")
			return err
		}
	}
	return nil
}

// UpsertChannel writes a single channel snapshot. The parent link is
// kept only when the parent row already exists.
func (s *Store) UpsertChannel(ctx context.Context, q Querier, ch *archive.Channel) error {
	return s.UpsertChannels(ctx, q, []archive.Channel{*ch})
}
