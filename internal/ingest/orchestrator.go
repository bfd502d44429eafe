package ingest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tmserv/guildarchive/internal/config"
	"github.com/tmserv/guildarchive/internal/discord"
)

// API is a full per-account client. *discord.Client satisfies it.
type API interface {
	GuildSource
	GetCurrentUser(ctx context.Context) (*discord.User, error)
	GetChannel(ctx context.Context, channelID int64) (*discord.Channel, error)
}

// Summary aggregates a whole run across accounts and guilds.
type Summary struct {
	GuildsProcessed   int
	GuildsFailed      int
	ChannelsProcessed int
	ChannelsSkipped   int
	MessagesArchived  int
}

// Orchestrator runs the crawl for every configured account.
type Orchestrator struct {
	accounts        []config.Account
	db              Archive
	logger          zerolog.Logger
	transportLogger zerolog.Logger

	// newClient is swapped out in tests.
	newClient func(token, userAgent string) API
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTransportLogger sets the logger handed to per-account HTTP
// clients, letting wire-level debug output be gated independently of
// application logging.
func WithTransportLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.transportLogger = l }
}

// NewOrchestrator builds an orchestrator over the configured accounts.
func NewOrchestrator(accounts []config.Account, db Archive, logger zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		accounts:        accounts,
		db:              db,
		logger:          logger,
		transportLogger: logger,
	}
	o.newClient = func(token, userAgent string) API {
		return discord.NewClient(token, userAgent, discord.WithLogger(o.transportLogger))
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one crawl. A non-zero channelFilter switches to
// single-channel mode; otherwise every account's configured guilds are
// crawled, narrowed by guildFilter when non-zero. A guild crawl failure
// is recorded and the run moves on to the next guild.
func (o *Orchestrator) Run(ctx context.Context, guildFilter, channelFilter int64) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	var err error
	if channelFilter != 0 {
		err = o.runChannel(ctx, channelFilter, summary)
	} else {
		err = o.runGuilds(ctx, guildFilter, summary)
	}
	if err != nil {
		return summary, err
	}

	o.logger.Info().
		Int("guilds_processed", summary.GuildsProcessed).
		Int("guilds_failed", summary.GuildsFailed).
		Int("channels_processed", summary.ChannelsProcessed).
		Int("channels_skipped", summary.ChannelsSkipped).
		Int("messages_archived", summary.MessagesArchived).
		Dur("elapsed", time.Since(start)).
		Msg("run finished")
	return summary, nil
}

// runGuilds crawls every account's guilds sequentially. One client per
// account keeps the per-token rate limit state honest.
func (o *Orchestrator) runGuilds(ctx context.Context, guildFilter int64, summary *Summary) error {
	for _, account := range o.accounts {
		logger := o.logger.With().Str("account", account.Name).Logger()
		client := o.newClient(account.Token, account.UserAgent)

		me, err := client.GetCurrentUser(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("account authentication failed, skipping account")
			summary.GuildsFailed += countGuilds(account, guildFilter)
			continue
		}
		selfID, ok := rawID(me.ID)
		if !ok {
			logger.Error().Str("user_id", me.ID).Msg("malformed self user id, skipping account")
			summary.GuildsFailed += countGuilds(account, guildFilter)
			continue
		}
		logger.Info().Str("username", me.Username).Msg("account authenticated")

		processor := NewProcessor(client, o.db, selfID, logger)

		for _, g := range account.Guilds {
			guildID, err := strconv.ParseInt(g, 10, 64)
			if err != nil {
				logger.Error().Str("guild", g).Msg("malformed guild id in config")
				summary.GuildsFailed++
				continue
			}
			if guildFilter != 0 && guildID != guildFilter {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			stats, err := processor.ProcessGuild(ctx, guildID)
			if stats != nil {
				summary.ChannelsProcessed += stats.ChannelsProcessed
				summary.ChannelsSkipped += stats.ChannelsSkipped
				summary.MessagesArchived += stats.MessagesArchived
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error().Err(err).Int64("guild_id", guildID).Msg("guild crawl failed")
				summary.GuildsFailed++
				continue
			}
			summary.GuildsProcessed++
		}
	}
	return nil
}

// runChannel archives one channel, trying accounts in order until one
// can resolve it. The guild ID comes from the channel DTO itself, so
// the channel's guild does not need to appear in any account's guild
// list. A channel outside any guild (a direct message) has nothing to
// archive; an unresolvable channel is a warning, not a failure.
func (o *Orchestrator) runChannel(ctx context.Context, channelID int64, summary *Summary) error {
	for _, account := range o.accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger := o.logger.With().Str("account", account.Name).Logger()
		client := o.newClient(account.Token, account.UserAgent)

		ch, err := client.GetChannel(ctx, channelID)
		if err != nil {
			logger.Debug().Err(err).Int64("channel_id", channelID).Msg("account cannot resolve channel, trying next")
			continue
		}
		if ch.GuildID == nil {
			logger.Debug().Int64("channel_id", channelID).Msg("channel belongs to no guild, nothing to archive")
			return nil
		}
		guildID, ok := rawID(*ch.GuildID)
		if !ok {
			logger.Error().Str("guild_id", *ch.GuildID).Msg("malformed guild id on channel, trying next account")
			continue
		}

		processor := NewProcessor(client, o.db, 0, logger)
		n, err := processor.ProcessChannel(ctx, guildID, channelID)
		if err != nil {
			if discord.IsStatus(err, http.StatusForbidden) || discord.IsStatus(err, http.StatusNotFound) {
				logger.Warn().Err(err).Int64("channel_id", channelID).Msg("channel unreadable, skipping")
				summary.ChannelsSkipped++
				return nil
			}
			return err
		}
		summary.ChannelsProcessed++
		summary.MessagesArchived += n
		return nil
	}

	o.logger.Warn().Int64("channel_id", channelID).Msg("no account can resolve channel")
	return nil
}

func countGuilds(account config.Account, guildFilter int64) int {
	if guildFilter == 0 {
		return len(account.Guilds)
	}
	for _, g := range account.Guilds {
		if id, err := strconv.ParseInt(g, 10, 64); err == nil && id == guildFilter {
			return 1
		}
	}
	return 0
}
