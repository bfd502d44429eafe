package ingest

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tmserv/guildarchive/internal/discord"
	"github.com/tmserv/guildarchive/internal/permissions"
)

// ChannelSource lists channels and threads. *discord.Client satisfies
// it.
type ChannelSource interface {
	GetGuildChannels(ctx context.Context, guildID int64) ([]discord.Channel, error)
	GetActiveThreads(ctx context.Context, guildID int64) (*discord.ThreadList, error)
	GetPublicArchivedThreads(ctx context.Context, channelID int64, before string) (*discord.ThreadList, error)
	GetPrivateArchivedThreads(ctx context.Context, channelID int64, before string) (*discord.ThreadList, error)
}

// Fetcher discovers every channel and thread in a guild.
type Fetcher struct {
	source ChannelSource
	logger zerolog.Logger
}

// NewFetcher builds a Fetcher.
func NewFetcher(source ChannelSource, logger zerolog.Logger) *Fetcher {
	return &Fetcher{source: source, logger: logger}
}

// FetchAll returns the guild's channels followed by its threads, each
// thread at most once. Archived thread listings are best effort: a
// channel that refuses the listing is logged and skipped, never fatal.
// perms resolves a channel's computed permissions; channels without
// VIEW_CHANNEL get no thread pagination, and the private archived
// listing needs MANAGE_THREADS plus READ_MESSAGE_HISTORY on the parent.
func (f *Fetcher) FetchAll(ctx context.Context, guildID int64, perms func(parent discord.Channel) uint64) ([]discord.Channel, error) {
	channels, err := f.source.GetGuildChannels(ctx, guildID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(channels))
	out := make([]discord.Channel, 0, len(channels))
	for _, ch := range channels {
		seen[ch.ID] = true
		out = append(out, ch)
	}

	active, err := f.source.GetActiveThreads(ctx, guildID)
	if err != nil {
		// Active threads are additive; a refusal loses recency, not
		// history.
		f.logger.Warn().Err(err).Int64("guild_id", guildID).Msg("active thread listing failed")
	} else {
		for _, th := range active.Threads {
			if !seen[th.ID] {
				seen[th.ID] = true
				out = append(out, th)
			}
		}
	}

	for _, ch := range channels {
		if !supportsArchivedThreads(ch.Type) {
			continue
		}
		parentID, ok := rawID(ch.ID)
		if !ok {
			continue
		}

		p := permissions.All
		if perms != nil {
			p = perms(ch)
		}
		if !permissions.CanView(p) {
			f.logger.Debug().Int64("channel_id", parentID).Msg("channel not viewable, skipping thread listings")
			continue
		}

		threads, err := f.pageArchived(ctx, parentID, f.source.GetPublicArchivedThreads)
		if err != nil {
			f.logger.Warn().Err(err).Int64("channel_id", parentID).Msg("public archived thread listing failed")
		}
		for _, th := range threads {
			if !seen[th.ID] {
				seen[th.ID] = true
				out = append(out, th)
			}
		}

		if supportsPrivateArchivedThreads(ch.Type) &&
			permissions.CanManageThreads(p) && permissions.CanReadHistory(p) {
			threads, err := f.pageArchived(ctx, parentID, f.source.GetPrivateArchivedThreads)
			if err != nil && !discord.IsStatus(err, http.StatusForbidden) {
				f.logger.Warn().Err(err).Int64("channel_id", parentID).Msg("private archived thread listing failed")
			}
			for _, th := range threads {
				if !seen[th.ID] {
					seen[th.ID] = true
					out = append(out, th)
				}
			}
		}
	}

	return out, nil
}

// pageArchived drains one archived-thread listing, following the
// archive-timestamp cursor until has_more is false. Threads gathered
// before an error are still returned.
func (f *Fetcher) pageArchived(ctx context.Context, channelID int64, list func(context.Context, int64, string) (*discord.ThreadList, error)) ([]discord.Channel, error) {
	var out []discord.Channel
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		page, err := list(ctx, channelID, cursor)
		if err != nil {
			return out, err
		}
		out = append(out, page.Threads...)
		if !page.HasMore || len(page.Threads) == 0 {
			return out, nil
		}
		last := page.Threads[len(page.Threads)-1]
		if last.ThreadMetadata == nil || last.ThreadMetadata.ArchiveTimestamp == "" {
			return out, nil
		}
		cursor = last.ThreadMetadata.ArchiveTimestamp
	}
}

// supportsArchivedThreads reports whether a channel type has archived
// thread listings.
func supportsArchivedThreads(channelType int) bool {
	switch channelType {
	case discord.ChannelTypeText, discord.ChannelTypeAnnouncement,
		discord.ChannelTypeForum, discord.ChannelTypeMedia:
		return true
	}
	return false
}

// supportsPrivateArchivedThreads reports whether a channel type has a
// private archived listing. Forum and media posts are always public.
func supportsPrivateArchivedThreads(channelType int) bool {
	return channelType == discord.ChannelTypeText || channelType == discord.ChannelTypeAnnouncement
}
