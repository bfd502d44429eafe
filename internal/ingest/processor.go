package ingest

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tmserv/guildarchive/internal/archive"
	"github.com/tmserv/guildarchive/internal/discord"
	"github.com/tmserv/guildarchive/internal/mapper"
	"github.com/tmserv/guildarchive/internal/permissions"
)

// GuildSource is the API surface the processor needs for one guild.
// *discord.Client satisfies it.
type GuildSource interface {
	ChannelSource
	MessageSource
	GetGuild(ctx context.Context, guildID int64) (*discord.Guild, error)
	GetCurrentUserGuildMember(ctx context.Context, guildID int64) (*discord.Member, error)
	GetGuildEmojis(ctx context.Context, guildID int64) ([]discord.Emoji, error)
	GetGuildStickers(ctx context.Context, guildID int64) ([]discord.Sticker, error)
	GetGuildScheduledEvents(ctx context.Context, guildID int64) ([]discord.ScheduledEvent, error)
}

// Archive is the persistence surface the processor needs. *store.Store
// satisfies it.
type Archive interface {
	Persister
	Checkpoints
	SaveGuild(ctx context.Context, g *archive.Guild, roles []archive.Role) error
	SaveChannels(ctx context.Context, channels []archive.Channel) error
	SaveEmojis(ctx context.Context, emojis []archive.Emoji) error
	SaveStickers(ctx context.Context, stickers []archive.Sticker) error
	SaveScheduledEvents(ctx context.Context, events []archive.ScheduledEvent) error
	CountMessages(ctx context.Context, channelID int64) (int64, error)
}

// Stats summarizes one guild crawl.
type Stats struct {
	ChannelsProcessed int
	ChannelsSkipped   int
	MessagesArchived  int
}

// Processor archives one guild end to end: metadata, channel tree,
// then per-channel message crawls.
type Processor struct {
	api        GuildSource
	db         Archive
	selfUserID int64
	logger     zerolog.Logger
}

// NewProcessor builds a processor. selfUserID is the crawling account's
// user ID, used for member permission overwrites.
func NewProcessor(api GuildSource, db Archive, selfUserID int64, logger zerolog.Logger) *Processor {
	return &Processor{api: api, db: db, selfUserID: selfUserID, logger: logger}
}

// ProcessGuild crawls a guild end to end. Channels the account cannot
// read are counted as skipped, and a mid-crawl 403 (permissions changed
// under us) skips that channel without failing the guild.
func (p *Processor) ProcessGuild(ctx context.Context, guildID int64) (*Stats, error) {
	logger := p.logger.With().Int64("guild_id", guildID).Logger()
	stats := &Stats{}

	guildDTO, err := p.api.GetGuild(ctx, guildID)
	if err != nil {
		return stats, err
	}
	guild, err := mapper.Guild(guildDTO)
	if err != nil {
		return stats, err
	}
	roles, err := mapper.Roles(guild.GuildID, guildDTO.Roles)
	if err != nil {
		return stats, err
	}
	if err := p.db.SaveGuild(ctx, guild, roles); err != nil {
		return stats, err
	}
	logger.Info().Str("guild", guild.Name).Int("roles", len(roles)).Msg("guild metadata archived")

	memberRoles, err := p.memberRoles(ctx, guildID)
	if err != nil {
		return stats, err
	}
	guildRoles := make(map[int64]uint64, len(roles))
	for _, r := range roles {
		guildRoles[r.RoleID] = r.Permissions
	}
	base := permissions.Base(memberRoles, guildRoles, guildID)

	if err := p.archiveGuildEntities(ctx, guildID, logger); err != nil {
		return stats, err
	}

	fetcher := NewFetcher(p.api, logger)
	channelPerms := func(ch discord.Channel) uint64 {
		return permissions.Channel(p.selfUserID, base,
			mapper.Overwrites(ch.PermissionOverwrites), memberRoles, guildID)
	}
	channels, err := fetcher.FetchAll(ctx, guildID, channelPerms)
	if err != nil {
		return stats, err
	}

	entities := make([]archive.Channel, 0, len(channels))
	byID := make(map[string]*discord.Channel, len(channels))
	for i := range channels {
		byID[channels[i].ID] = &channels[i]
		entity, err := mapper.Channel(&channels[i])
		if err != nil {
			logger.Warn().Err(err).Str("channel_id", channels[i].ID).Msg("skipping unmappable channel")
			continue
		}
		entities = append(entities, *entity)
	}
	if err := p.db.SaveChannels(ctx, entities); err != nil {
		return stats, err
	}
	logger.Info().Int("channels", len(entities)).Msg("channel tree archived")

	engine := NewEngine(p.api, p.db, p.db, guildID, logger)

	for i := range channels {
		ch := &channels[i]
		channelID, ok := rawID(ch.ID)
		if !ok {
			continue
		}
		if !discord.IsTextBased(ch.Type) {
			continue
		}

		// Threads inherit the parent channel's overwrites.
		permTarget := ch
		if discord.IsThread(ch.Type) && ch.ParentID != nil {
			if parent, ok := byID[*ch.ParentID]; ok {
				permTarget = parent
			}
		}
		if !permissions.CanAccessChannel(channelPerms(*permTarget), ch.Type) {
			logger.Debug().
				Int64("channel_id", channelID).
				Str("type", discord.ChannelTypeName(ch.Type)).
				Msg("channel not readable, skipping")
			stats.ChannelsSkipped++
			continue
		}

		n, err := p.crawlChannel(ctx, engine, channelID)
		if err != nil {
			if discord.IsStatus(err, http.StatusForbidden) || discord.IsStatus(err, http.StatusNotFound) {
				logger.Warn().Err(err).Int64("channel_id", channelID).Msg("channel became unreadable mid-crawl, skipping")
				stats.ChannelsSkipped++
				continue
			}
			return stats, err
		}
		stats.ChannelsProcessed++
		stats.MessagesArchived += n
	}

	logger.Info().
		Int("processed", stats.ChannelsProcessed).
		Int("skipped", stats.ChannelsSkipped).
		Int("messages", stats.MessagesArchived).
		Msg("guild crawl finished")
	return stats, nil
}

// ProcessChannel crawls a single channel's messages without touching
// guild metadata. Single-channel runs resolve the guild ID from the
// channel DTO and come straight here.
func (p *Processor) ProcessChannel(ctx context.Context, guildID, channelID int64) (int, error) {
	logger := p.logger.With().Int64("guild_id", guildID).Logger()
	engine := NewEngine(p.api, p.db, p.db, guildID, logger)
	return p.crawlChannel(ctx, engine, channelID)
}

func (p *Processor) crawlChannel(ctx context.Context, engine *Engine, channelID int64) (int, error) {
	backfilled, err := engine.Backfill(ctx, channelID)
	if err != nil {
		return backfilled, err
	}
	if stored, err := p.db.CountMessages(ctx, channelID); err == nil {
		p.logger.Debug().Int64("channel_id", channelID).Int64("stored", stored).Msg("archived message count")
	}
	pulled, err := engine.Incremental(ctx, channelID)
	return backfilled + pulled, err
}

// memberRoles returns the crawling account's role IDs in the guild.
// Any API refusal (missing member record, restricted endpoint) degrades
// to @everyone only; only transport-level failures propagate.
func (p *Processor) memberRoles(ctx context.Context, guildID int64) ([]int64, error) {
	member, err := p.api.GetCurrentUserGuildMember(ctx, guildID)
	if err != nil {
		var apiErr *discord.APIError
		if errors.As(err, &apiErr) {
			p.logger.Warn().
				Int("status", apiErr.StatusCode).
				Int64("guild_id", guildID).
				Msg("member lookup failed, using @everyone permissions only")
			return nil, nil
		}
		return nil, err
	}
	roles := make([]int64, 0, len(member.Roles))
	for _, r := range member.Roles {
		if id, ok := rawID(r); ok {
			roles = append(roles, id)
		}
	}
	return roles, nil
}

// archiveGuildEntities stores emojis, stickers, and scheduled events,
// each committed on its own. A 403 on a listing soft-skips that entity
// class; any other listing or persistence failure aborts the guild.
func (p *Processor) archiveGuildEntities(ctx context.Context, guildID int64, logger zerolog.Logger) error {
	emojis, err := p.api.GetGuildEmojis(ctx, guildID)
	switch {
	case discord.IsStatus(err, http.StatusForbidden):
		logger.Warn().Err(err).Msg("emoji listing refused, skipping")
	case err != nil:
		return err
	default:
		entities := make([]archive.Emoji, 0, len(emojis))
		for i := range emojis {
			e, err := mapper.Emoji(guildID, &emojis[i])
			if err != nil {
				logger.Warn().Err(err).Msg("skipping unmappable emoji")
				continue
			}
			entities = append(entities, *e)
		}
		if err := p.db.SaveEmojis(ctx, entities); err != nil {
			return err
		}
	}

	stickers, err := p.api.GetGuildStickers(ctx, guildID)
	switch {
	case discord.IsStatus(err, http.StatusForbidden):
		logger.Warn().Err(err).Msg("sticker listing refused, skipping")
	case err != nil:
		return err
	default:
		entities := make([]archive.Sticker, 0, len(stickers))
		for i := range stickers {
			st, err := mapper.Sticker(&stickers[i])
			if err != nil {
				logger.Warn().Err(err).Msg("skipping unmappable sticker")
				continue
			}
			if st.GuildID == nil {
				st.GuildID = &guildID
			}
			entities = append(entities, *st)
		}
		if err := p.db.SaveStickers(ctx, entities); err != nil {
			return err
		}
	}

	events, err := p.api.GetGuildScheduledEvents(ctx, guildID)
	switch {
	case discord.IsStatus(err, http.StatusForbidden):
		logger.Warn().Err(err).Msg("scheduled event listing refused, skipping")
	case err != nil:
		return err
	default:
		entities := make([]archive.ScheduledEvent, 0, len(events))
		for i := range events {
			ev, err := mapper.ScheduledEvent(&events[i])
			if err != nil {
				logger.Warn().Err(err).Msg("skipping unmappable scheduled event")
				continue
			}
			entities = append(entities, *ev)
		}
		if err := p.db.SaveScheduledEvents(ctx, entities); err != nil {
			return err
		}
	}

	return nil
}
