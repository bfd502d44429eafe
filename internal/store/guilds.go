package store

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tmserv/guildarchive/internal/archive"
)

// UpsertGuild writes the latest guild snapshot.
func (s *Store) UpsertGuild(ctx context.Context, q Querier, g *archive.Guild) error {
	_, err := q.Exec(ctx, `
		INSERT INTO guilds (
			guild_id, name, icon, icon_hash, splash, discovery_splash, banner,
			description, owner_id, afk_channel_id, afk_timeout, widget_enabled,
			widget_channel_id, system_channel_id, system_channel_flags,
			rules_channel_id, public_updates_channel_id, safety_alerts_channel_id,
			verification_level, default_message_notifications,
			explicit_content_filter, mfa_level, nsfw_level, features,
			premium_tier, premium_subscription_count, premium_progress_bar_enabled,
			vanity_url_code, preferred_locale, application_id, max_presences,
			max_members, max_video_channel_users, max_stage_video_channel_users,
			approximate_member_count, approximate_presence_count,
			welcome_screen, incidents_data, raw
		)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28,
			$29, $30, $31, $32, $33, $34, $35, $36, $37, $38, $39
		)
		ON CONFLICT (guild_id) DO UPDATE SET
			name = EXCLUDED.name,
			icon = EXCLUDED.icon,
			icon_hash = EXCLUDED.icon_hash,
			splash = EXCLUDED.splash,
			discovery_splash = EXCLUDED.discovery_splash,
			banner = EXCLUDED.banner,
			description = EXCLUDED.description,
			owner_id = EXCLUDED.owner_id,
			afk_channel_id = EXCLUDED.afk_channel_id,
			afk_timeout = EXCLUDED.afk_timeout,
			widget_enabled = EXCLUDED.widget_enabled,
			widget_channel_id = EXCLUDED.widget_channel_id,
			system_channel_id = EXCLUDED.system_channel_id,
			system_channel_flags = EXCLUDED.system_channel_flags,
			rules_channel_id = EXCLUDED.rules_channel_id,
			public_updates_channel_id = EXCLUDED.public_updates_channel_id,
			safety_alerts_channel_id = EXCLUDED.safety_alerts_channel_id,
			verification_level = EXCLUDED.verification_level,
			default_message_notifications = EXCLUDED.default_message_notifications,
			explicit_content_filter = EXCLUDED.explicit_content_filter,
			mfa_level = EXCLUDED.mfa_level,
			nsfw_level = EXCLUDED.nsfw_level,
			features = EXCLUDED.features,
			premium_tier = EXCLUDED.premium_tier,
			premium_subscription_count = EXCLUDED.premium_subscription_count,
			premium_progress_bar_enabled = EXCLUDED.premium_progress_bar_enabled,
			vanity_url_code = EXCLUDED.vanity_url_code,
			preferred_locale = EXCLUDED.preferred_locale,
			application_id = EXCLUDED.application_id,
			max_presences = EXCLUDED.max_presences,
			max_members = EXCLUDED.max_members,
			max_video_channel_users = EXCLUDED.max_video_channel_users,
			max_stage_video_channel_users = EXCLUDED.max_stage_video_channel_users,
			approximate_member_count = EXCLUDED.approximate_member_count,
			approximate_presence_count = EXCLUDED.approximate_presence_count,
			welcome_screen = EXCLUDED.welcome_screen,
			incidents_data = EXCLUDED.incidents_data,
			raw = EXCLUDED.raw,
			updated_at = now()
	`,
		g.GuildID, g.Name, g.Icon, g.IconHash, g.Splash, g.DiscoverySplash,
		g.Banner, g.Description, g.OwnerID, g.AfkChannelID, g.AfkTimeout,
		g.WidgetEnabled, g.WidgetChannelID, g.SystemChannelID,
		g.SystemChannelFlags, g.RulesChannelID, g.PublicUpdatesChannelID,
		g.SafetyAlertsChannelID, g.VerificationLevel,
		g.DefaultMessageNotifications, g.ExplicitContentFilter, g.MFALevel,
		g.NSFWLevel, g.Features, g.PremiumTier, g.PremiumSubscriptionCount,
		g.PremiumProgressBarEnabled, g.VanityURLCode, g.PreferredLocale,
		g.ApplicationID, g.MaxPresences, g.MaxMembers, g.MaxVideoChannelUsers,
		g.MaxStageVideoChannelUsers, g.ApproximateMemberCount,
		g.ApproximatePresenceCount, g.WelcomeScreen, g.IncidentsData, g.Raw,
	)
	if err != nil {
		log.Error().Err(err).Int64("guild_id", g.GuildID).Msg("failed to upsert guild")
		return err
	}
	return nil
}

// UpsertRoles writes the guild's role snapshots.
func (s *Store) UpsertRoles(ctx context.Context, q Querier, roles []archive.Role) error {
	for i := range roles {
		r := &roles[i]
		_, err := q.Exec(ctx, `
			INSERT INTO roles (
				role_id, guild_id, name, color, colors, hoist, position,
				mentionable, icon, unicode_emoji, permissions, managed, tags,
				flags, raw
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (role_id) DO UPDATE SET
				guild_id = EXCLUDED.guild_id,
				name = EXCLUDED.name,
				color = EXCLUDED.color,
				colors = EXCLUDED.colors,
				hoist = EXCLUDED.hoist,
				position = EXCLUDED.position,
				mentionable = EXCLUDED.mentionable,
				icon = EXCLUDED.icon,
				unicode_emoji = EXCLUDED.unicode_emoji,
				permissions = EXCLUDED.permissions,
				managed = EXCLUDED.managed,
				tags = EXCLUDED.tags,
				flags = EXCLUDED.flags,
				raw = EXCLUDED.raw,
				updated_at = now()
		`,
			r.RoleID, r.GuildID, r.Name, r.Color, r.Colors, r.Hoist,
			r.Position, r.Mentionable, r.Icon, r.UnicodeEmoji,
			int64(r.Permissions), r.Managed, r.Tags, r.Flags, r.Raw,
		)
		if err != nil {
			log.Error().Err(err).Int64("role_id", r.RoleID).Msg("failed to upsert role")
			return err
		}
	}
	return nil
}

// UpsertEmojis writes the guild's custom emoji snapshots.
func (s *Store) UpsertEmojis(ctx context.Context, q Querier, emojis []archive.Emoji) error {
	for i := range emojis {
		e := &emojis[i]
		_, err := q.Exec(ctx, `
			INSERT INTO emojis (
				emoji_id, guild_id, name, animated, available, managed,
				require_colons, roles, user_id, raw
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (emoji_id) DO UPDATE SET
				guild_id = EXCLUDED.guild_id,
				name = EXCLUDED.name,
				animated = EXCLUDED.animated,
				available = EXCLUDED.available,
				managed = EXCLUDED.managed,
				require_colons = EXCLUDED.require_colons,
				roles = EXCLUDED.roles,
				user_id = EXCLUDED.user_id,
				raw = EXCLUDED.raw,
				updated_at = now()
		`,
			e.EmojiID, e.GuildID, e.Name, e.Animated, e.Available, e.Managed,
			e.RequireColons, e.Roles, e.UserID, e.Raw,
		)
		if err != nil {
			log.Error().Err(err).Int64("emoji_id", e.EmojiID).Msg("failed to upsert emoji")
			return err
		}
	}
	return nil
}

// UpsertStickers writes the guild's sticker snapshots.
func (s *Store) UpsertStickers(ctx context.Context, q Querier, stickers []archive.Sticker) error {
	for i := range stickers {
		st := &stickers[i]
		_, err := q.Exec(ctx, `
			INSERT INTO stickers (
				sticker_id, guild_id, pack_id, name, description, tags, type,
				format_type, available, user_id, sort_value, raw
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (sticker_id) DO UPDATE SET
				guild_id = EXCLUDED.guild_id,
				pack_id = EXCLUDED.pack_id,
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				tags = EXCLUDED.tags,
				type = EXCLUDED.type,
				format_type = EXCLUDED.format_type,
				available = EXCLUDED.available,
				user_id = EXCLUDED.user_id,
				sort_value = EXCLUDED.sort_value,
				raw = EXCLUDED.raw,
				updated_at = now()
		`,
			st.StickerID, st.GuildID, st.PackID, st.Name, st.Description,
			st.Tags, st.Type, st.FormatType, st.Available, st.UserID,
			st.SortValue, st.Raw,
		)
		if err != nil {
			log.Error().Err(err).Int64("sticker_id", st.StickerID).Msg("failed to upsert sticker")
			return err
		}
	}
	return nil
}

// UpsertScheduledEvents writes the guild's scheduled event snapshots.
func (s *Store) UpsertScheduledEvents(ctx context.Context, q Querier, events []archive.ScheduledEvent) error {
	for i := range events {
		ev := &events[i]
		_, err := q.Exec(ctx, `
			INSERT INTO scheduled_events (
				event_id, guild_id, channel_id, creator_id, name, description,
				image, scheduled_start_time, scheduled_end_time, privacy_level,
				status, entity_type, entity_id, entity_metadata, user_count,
				recurrence_rule, raw
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT (event_id) DO UPDATE SET
				guild_id = EXCLUDED.guild_id,
				channel_id = EXCLUDED.channel_id,
				creator_id = EXCLUDED.creator_id,
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				image = EXCLUDED.image,
				scheduled_start_time = EXCLUDED.scheduled_start_time,
				scheduled_end_time = EXCLUDED.scheduled_end_time,
				privacy_level = EXCLUDED.privacy_level,
				status = EXCLUDED.status,
				entity_type = EXCLUDED.entity_type,
				entity_id = EXCLUDED.entity_id,
				entity_metadata = EXCLUDED.entity_metadata,
				user_count = EXCLUDED.user_count,
				recurrence_rule = EXCLUDED.recurrence_rule,
				raw = EXCLUDED.raw,
				updated_at = now()
		`,
			ev.EventID, ev.GuildID, ev.ChannelID, ev.CreatorID, ev.Name,
			ev.Description, ev.Image, ev.ScheduledStartTime,
			ev.ScheduledEndTime, ev.PrivacyLevel, ev.Status, ev.EntityType,
			ev.EntityID, ev.EntityMetadata, ev.UserCount, ev.RecurrenceRule,
			ev.Raw,
		)
		if err != nil {
			log.Error().Err(err).Int64("event_id", ev.EventID).Msg("failed to upsert scheduled event")
			return err
		}
	}
	return nil
}
