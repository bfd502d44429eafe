// Package mapper converts API payloads into persistence entities.
//
// Mappers are pure transforms. Each one sanitizes the entity's raw
// payload first and re-decodes it, so the struct fields and the stored
// blob always agree, then parses string IDs and timestamps into their
// column types. No I/O happens here.
package mapper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/tmserv/guildarchive/internal/archive"
	"github.com/tmserv/guildarchive/internal/discord"
	"github.com/tmserv/guildarchive/internal/jsonutil"
	"github.com/tmserv/guildarchive/internal/permissions"
)

// cleanDecode sanitizes raw and decodes the result into a fresh T.
// When raw is nil (a DTO built in memory rather than off the wire) the
// DTO itself is marshalled to produce the payload.
func cleanDecode[T any](raw json.RawMessage, dto *T) (*T, json.RawMessage, error) {
	if raw == nil {
		encoded, err := json.Marshal(dto)
		if err != nil {
			return nil, nil, fmt.Errorf("encode payload: %w", err)
		}
		raw = encoded
	}
	clean, err := jsonutil.SanitizeRaw(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("sanitize payload: %w", err)
	}
	v := new(T)
	if err := json.Unmarshal(clean, v); err != nil {
		return nil, nil, fmt.Errorf("decode sanitized payload: %w", err)
	}
	return v, clean, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id %q: %w", s, err)
	}
	return id, nil
}

func parseOptID(s *string) (*int64, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := parseID(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseIDs(ss []string) ([]int64, error) {
	if ss == nil {
		return nil, nil
	}
	out := make([]int64, len(ss))
	for i, s := range ss {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseOptTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// EmojiKey derives the stable reaction identity for an emoji: custom
// emoji key on the numeric ID, unicode emoji on the name. This is the
// only place the key format is produced.
func EmojiKey(e discord.Emoji) string {
	if e.ID != nil && *e.ID != "" {
		return "custom:" + *e.ID
	}
	if e.Name != nil {
		return "unicode:" + *e.Name
	}
	return "unicode:"
}

// Guild maps a guild payload. Roles travel on the same payload and are
// mapped by Roles.
func Guild(dto *discord.Guild) (*archive.Guild, error) {
	g, clean, err := cleanDecode(dto.Raw, dto)
	if err != nil {
		return nil, err
	}

	guildID, err := parseID(g.ID)
	if err != nil {
		return nil, err
	}
	ownerID, err := parseID(g.OwnerID)
	if err != nil {
		return nil, err
	}

	out := &archive.Guild{
		GuildID:                     guildID,
		Name:                        g.Name,
		Icon:                        g.Icon,
		IconHash:                    g.IconHash,
		Splash:                      g.Splash,
		DiscoverySplash:             g.DiscoverySplash,
		Banner:                      g.Banner,
		Description:                 g.Description,
		OwnerID:                     ownerID,
		AfkTimeout:                  g.AfkTimeout,
		WidgetEnabled:               g.WidgetEnabled,
		SystemChannelFlags:          g.SystemChannelFlags,
		VerificationLevel:           g.VerificationLevel,
		DefaultMessageNotifications: g.DefaultMessageNotifications,
		ExplicitContentFilter:       g.ExplicitContentFilter,
		MFALevel:                    g.MFALevel,
		NSFWLevel:                   g.NSFWLevel,
		Features:                    g.Features,
		PremiumTier:                 g.PremiumTier,
		PremiumSubscriptionCount:    g.PremiumSubscriptionCount,
		PremiumProgressBarEnabled:   g.PremiumProgressBarEnabled,
		VanityURLCode:               g.VanityURLCode,
		PreferredLocale:             g.PreferredLocale,
		MaxPresences:                g.MaxPresences,
		MaxMembers:                  g.MaxMembers,
		MaxVideoChannelUsers:        g.MaxVideoChannelUsers,
		MaxStageVideoChannelUsers:   g.MaxStageVideoChannelUsers,
		ApproximateMemberCount:      g.ApproximateMemberCount,
		ApproximatePresenceCount:    g.ApproximatePresenceCount,
		WelcomeScreen:               g.WelcomeScreen,
		IncidentsData:               g.IncidentsData,
		Raw:                         clean,
	}

	for _, pair := range []struct {
		src *string
		dst **int64
	}{
		{g.AfkChannelID, &out.AfkChannelID},
		{g.WidgetChannelID, &out.WidgetChannelID},
		{g.SystemChannelID, &out.SystemChannelID},
		{g.RulesChannelID, &out.RulesChannelID},
		{g.PublicUpdatesChannelID, &out.PublicUpdatesChannelID},
		{g.SafetyAlertsChannelID, &out.SafetyAlertsChannelID},
		{g.ApplicationID, &out.ApplicationID},
	} {
		id, err := parseOptID(pair.src)
		if err != nil {
			return nil, err
		}
		*pair.dst = id
	}

	return out, nil
}

// Roles maps a guild's role list.
func Roles(guildID int64, dtos []discord.Role) ([]archive.Role, error) {
	out := make([]archive.Role, 0, len(dtos))
	for i := range dtos {
		role, err := Role(guildID, &dtos[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *role)
	}
	return out, nil
}

// Role maps a single guild role.
func Role(guildID int64, dto *discord.Role) (*archive.Role, error) {
	r, clean, err := cleanDecode(dto.Raw, dto)
	if err != nil {
		return nil, err
	}
	roleID, err := parseID(r.ID)
	if err != nil {
		return nil, err
	}
	perms, err := strconv.ParseUint(r.Permissions, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse role permissions %q: %w", r.Permissions, err)
	}
	return &archive.Role{
		RoleID:       roleID,
		GuildID:      guildID,
		Name:         r.Name,
		Color:        r.Color,
		Colors:       r.Colors,
		Hoist:        r.Hoist,
		Position:     r.Position,
		Mentionable:  r.Mentionable,
		Icon:         r.Icon,
		UnicodeEmoji: r.UnicodeEmoji,
		Permissions:  perms,
		Managed:      r.Managed,
		Tags:         r.Tags,
		Flags:        r.Flags,
		Raw:          clean,
	}, nil
}

// Channel maps a channel or thread payload. The raw permission
// overwrite and thread metadata sub-objects are carried whole.
func Channel(dto *discord.Channel) (*archive.Channel, error) {
	ch, clean, err := cleanDecode(dto.Raw, dto)
	if err != nil {
		return nil, err
	}

	channelID, err := parseID(ch.ID)
	if err != nil {
		return nil, err
	}
	guildID, err := parseOptID(ch.GuildID)
	if err != nil {
		return nil, err
	}
	parentID, err := parseOptID(ch.ParentID)
	if err != nil {
		return nil, err
	}
	lastMessageID, err := parseOptID(ch.LastMessageID)
	if err != nil {
		return nil, err
	}
	ownerID, err := parseOptID(ch.OwnerID)
	if err != nil {
		return nil, err
	}
	applicationID, err := parseOptID(ch.ApplicationID)
	if err != nil {
		return nil, err
	}
	appliedTags, err := parseIDs(ch.AppliedTags)
	if err != nil {
		return nil, err
	}
	lastPin, err := parseOptTime(ch.LastPinTimestamp)
	if err != nil {
		return nil, err
	}

	var sub struct {
		PermissionOverwrites json.RawMessage `json:"permission_overwrites"`
		ThreadMetadata       json.RawMessage `json:"thread_metadata"`
	}
	if err := json.Unmarshal(clean, &sub); err != nil {
		return nil, fmt.Errorf("decode channel sub-objects: %w", err)
	}

	flags := 0
	if ch.Flags != nil {
		flags = *ch.Flags
	}

	return &archive.Channel{
		ChannelID:                     channelID,
		GuildID:                       guildID,
		Type:                          ch.Type,
		Name:                          ch.Name,
		Topic:                         ch.Topic,
		Position:                      ch.Position,
		PermissionOverwrites:          sub.PermissionOverwrites,
		ParentID:                      parentID,
		NSFW:                          ch.NSFW,
		LastMessageID:                 lastMessageID,
		Bitrate:                       ch.Bitrate,
		UserLimit:                     ch.UserLimit,
		RTCRegion:                     ch.RTCRegion,
		VideoQualityMode:              ch.VideoQualityMode,
		RateLimitPerUser:              ch.RateLimitPerUser,
		OwnerID:                       ownerID,
		ThreadMetadata:                sub.ThreadMetadata,
		MessageCount:                  ch.MessageCount,
		MemberCount:                   ch.MemberCount,
		TotalMessageSent:              ch.TotalMessageSent,
		DefaultAutoArchiveDuration:    ch.DefaultAutoArchiveDuration,
		DefaultThreadRateLimitPerUser: ch.DefaultThreadRateLimitPerUser,
		AvailableTags:                 ch.AvailableTags,
		AppliedTags:                   appliedTags,
		DefaultReactionEmoji:          ch.DefaultReactionEmoji,
		DefaultSortOrder:              ch.DefaultSortOrder,
		DefaultForumLayout:            ch.DefaultForumLayout,
		Flags:                         flags,
		Recipients:                    ch.Recipients,
		Icon:                          ch.Icon,
		ApplicationID:                 applicationID,
		Managed:                       ch.Managed,
		LastPinTimestamp:              lastPin,
		Raw:                           clean,
	}, nil
}

// Emoji maps a guild custom emoji. Reaction emoji never pass through
// here; they are folded into the reaction row by Message.
func Emoji(guildID int64, dto *discord.Emoji) (*archive.Emoji, error) {
	e, clean, err := cleanDecode(dto.Raw, dto)
	if err != nil {
		return nil, err
	}
	if e.ID == nil {
		return nil, fmt.Errorf("guild emoji without id")
	}
	emojiID, err := parseID(*e.ID)
	if err != nil {
		return nil, err
	}
	roles, err := parseIDs(e.Roles)
	if err != nil {
		return nil, err
	}
	var userID *int64
	if e.User != nil {
		id, err := parseID(e.User.ID)
		if err != nil {
			return nil, err
		}
		userID = &id
	}
	return &archive.Emoji{
		EmojiID:       emojiID,
		GuildID:       guildID,
		Name:          e.Name,
		Animated:      e.Animated,
		Available:     e.Available,
		Managed:       e.Managed,
		RequireColons: e.RequireColons,
		Roles:         roles,
		UserID:        userID,
		Raw:           clean,
	}, nil
}

// Sticker maps a guild sticker.
func Sticker(dto *discord.Sticker) (*archive.Sticker, error) {
	s, clean, err := cleanDecode(dto.Raw, dto)
	if err != nil {
		return nil, err
	}
	stickerID, err := parseID(s.ID)
	if err != nil {
		return nil, err
	}
	guildID, err := parseOptID(s.GuildID)
	if err != nil {
		return nil, err
	}
	packID, err := parseOptID(s.PackID)
	if err != nil {
		return nil, err
	}
	var userID *int64
	if s.User != nil {
		id, err := parseID(s.User.ID)
		if err != nil {
			return nil, err
		}
		userID = &id
	}
	return &archive.Sticker{
		StickerID:   stickerID,
		GuildID:     guildID,
		PackID:      packID,
		Name:        s.Name,
		Description: s.Description,
		Tags:        s.Tags,
		Type:        s.Type,
		FormatType:  s.FormatType,
		Available:   s.Available,
		UserID:      userID,
		SortValue:   s.SortValue,
		Raw:         clean,
	}, nil
}

// ScheduledEvent maps a guild scheduled event.
func ScheduledEvent(dto *discord.ScheduledEvent) (*archive.ScheduledEvent, error) {
	ev, clean, err := cleanDecode(dto.Raw, dto)
	if err != nil {
		return nil, err
	}
	eventID, err := parseID(ev.ID)
	if err != nil {
		return nil, err
	}
	guildID, err := parseID(ev.GuildID)
	if err != nil {
		return nil, err
	}
	channelID, err := parseOptID(ev.ChannelID)
	if err != nil {
		return nil, err
	}
	creatorID, err := parseOptID(ev.CreatorID)
	if err != nil {
		return nil, err
	}
	entityID, err := parseOptID(ev.EntityID)
	if err != nil {
		return nil, err
	}
	start, err := parseOptTime(ev.ScheduledStartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseOptTime(ev.ScheduledEndTime)
	if err != nil {
		return nil, err
	}
	return &archive.ScheduledEvent{
		EventID:            eventID,
		GuildID:            guildID,
		ChannelID:          channelID,
		CreatorID:          creatorID,
		Name:               ev.Name,
		Description:        ev.Description,
		Image:              ev.Image,
		ScheduledStartTime: start,
		ScheduledEndTime:   end,
		PrivacyLevel:       ev.PrivacyLevel,
		Status:             ev.Status,
		EntityType:         ev.EntityType,
		EntityID:           entityID,
		EntityMetadata:     ev.EntityMetadata,
		UserCount:          ev.UserCount,
		RecurrenceRule:     ev.RecurrenceRule,
		Raw:                clean,
	}, nil
}

// User maps a user payload. Partial users (mention arrays) still map;
// whatever fields are present overwrite the stored snapshot.
func User(dto *discord.User) (*archive.User, error) {
	u, clean, err := cleanDecode(dto.Raw, dto)
	if err != nil {
		return nil, err
	}
	userID, err := parseID(u.ID)
	if err != nil {
		return nil, err
	}
	out := &archive.User{
		UserID:               userID,
		GlobalName:           u.GlobalName,
		Avatar:               u.Avatar,
		AvatarDecorationData: u.AvatarDecorationData,
		Banner:               u.Banner,
		AccentColor:          u.AccentColor,
		Bot:                  u.Bot,
		System:               u.System,
		PublicFlags:          u.PublicFlags,
		PremiumType:          u.PremiumType,
		Raw:                  clean,
	}
	if u.Username != "" {
		out.Username = &u.Username
	}
	if u.Discriminator != "" {
		out.Discriminator = &u.Discriminator
	}
	return out, nil
}

// MessageBundle is everything one message payload persists: the message
// row plus its attachments, reactions, and the users seen on it.
type MessageBundle struct {
	Message     archive.Message
	Attachments []archive.Attachment
	Reactions   []archive.Reaction
	Users       []archive.User
}

// Message maps a message payload into its persistence bundle. Users are
// collected from the author and the mention array so every author_id
// referenced by the row exists before the insert.
func Message(dto *discord.Message) (*MessageBundle, error) {
	m, clean, err := cleanDecode(dto.Raw, dto)
	if err != nil {
		return nil, err
	}
	if m.Author == nil {
		return nil, fmt.Errorf("message %s has no author", m.ID)
	}

	messageID, err := parseID(m.ID)
	if err != nil {
		return nil, err
	}
	channelID, err := parseID(m.ChannelID)
	if err != nil {
		return nil, err
	}
	authorID, err := parseID(m.Author.ID)
	if err != nil {
		return nil, err
	}
	guildID, err := parseOptID(m.GuildID)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTime(m.Timestamp)
	if err != nil {
		return nil, err
	}
	editedAt, err := parseOptTime(m.EditedTimestamp)
	if err != nil {
		return nil, err
	}
	webhookID, err := parseOptID(m.WebhookID)
	if err != nil {
		return nil, err
	}
	applicationID, err := parseOptID(m.ApplicationID)
	if err != nil {
		return nil, err
	}

	mentionIDs := make([]int64, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		id, err := parseID(u.ID)
		if err != nil {
			return nil, err
		}
		mentionIDs = append(mentionIDs, id)
	}
	mentionRoles, err := parseIDs(m.MentionRoles)
	if err != nil {
		return nil, err
	}

	var referencedID *int64
	var reference json.RawMessage
	if m.MessageReference != nil {
		referencedID, err = parseOptID(m.MessageReference.MessageID)
		if err != nil {
			return nil, err
		}
	}

	// Sub-array payloads come from the sanitized blob so each child row
	// stores its own exact slice of it.
	var sub struct {
		Author           json.RawMessage   `json:"author"`
		Mentions         []json.RawMessage `json:"mentions"`
		Attachments      []json.RawMessage `json:"attachments"`
		Reactions        []json.RawMessage `json:"reactions"`
		MessageReference json.RawMessage   `json:"message_reference"`
	}
	if err := json.Unmarshal(clean, &sub); err != nil {
		return nil, fmt.Errorf("decode message sub-objects: %w", err)
	}
	reference = sub.MessageReference

	bundle := &MessageBundle{
		Message: archive.Message{
			MessageID:            messageID,
			ChannelID:            channelID,
			AuthorID:             authorID,
			GuildID:              guildID,
			Content:              m.Content,
			CreatedAt:            createdAt,
			EditedTimestamp:      editedAt,
			Type:                 m.Type,
			TTS:                  m.TTS,
			Flags:                m.Flags,
			Pinned:               m.Pinned,
			MentionEveryone:      m.MentionEveryone,
			Mentions:             mentionIDs,
			MentionRoles:         mentionRoles,
			MentionChannels:      m.MentionChannels,
			WebhookID:            webhookID,
			Application:          m.Application,
			ApplicationID:        applicationID,
			MessageReference:     reference,
			ReferencedMessageID:  referencedID,
			MessageSnapshots:     m.MessageSnapshots,
			InteractionMetadata:  m.InteractionMetadata,
			Thread:               m.Thread,
			Embeds:               m.Embeds,
			Components:           m.Components,
			StickerItems:         m.StickerItems,
			Poll:                 m.Poll,
			Activity:             m.Activity,
			Call:                 m.Call,
			RoleSubscriptionData: m.RoleSubscriptionData,
			Raw:                  clean,
		},
	}

	author := *m.Author
	author.Raw = sub.Author
	authorEntity, err := User(&author)
	if err != nil {
		return nil, err
	}
	bundle.Users = append(bundle.Users, *authorEntity)
	for i := range m.Mentions {
		mention := m.Mentions[i]
		if i < len(sub.Mentions) {
			mention.Raw = sub.Mentions[i]
		}
		entity, err := User(&mention)
		if err != nil {
			return nil, err
		}
		bundle.Users = append(bundle.Users, *entity)
	}

	for i := range m.Attachments {
		a := m.Attachments[i]
		attachmentID, err := parseID(a.ID)
		if err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if i < len(sub.Attachments) {
			raw = sub.Attachments[i]
		}
		bundle.Attachments = append(bundle.Attachments, archive.Attachment{
			AttachmentID: attachmentID,
			MessageID:    messageID,
			Filename:     a.Filename,
			Description:  a.Description,
			ContentType:  a.ContentType,
			Size:         a.Size,
			URL:          a.URL,
			ProxyURL:     a.ProxyURL,
			Height:       a.Height,
			Width:        a.Width,
			DurationSecs: a.DurationSecs,
			Waveform:     a.Waveform,
			Ephemeral:    a.Ephemeral,
			Flags:        a.Flags,
			Title:        a.Title,
			Raw:          raw,
		})
	}

	for i := range m.Reactions {
		r := m.Reactions[i]
		emojiID, err := parseOptID(r.Emoji.ID)
		if err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if i < len(sub.Reactions) {
			raw = sub.Reactions[i]
		}
		bundle.Reactions = append(bundle.Reactions, archive.Reaction{
			MessageID:     messageID,
			EmojiKey:      EmojiKey(r.Emoji),
			EmojiID:       emojiID,
			EmojiName:     r.Emoji.Name,
			EmojiAnimated: r.Emoji.Animated,
			Count:         r.Count,
			CountDetails:  r.CountDetails,
			BurstColors:   r.BurstColors,
			Raw:           raw,
		})
	}

	return bundle, nil
}

// Overwrites converts channel permission overwrites into the
// calculator's numeric form. Malformed entries are dropped rather than
// failing the channel.
func Overwrites(dtos []discord.PermissionOverwrite) []permissions.Overwrite {
	out := make([]permissions.Overwrite, 0, len(dtos))
	for _, o := range dtos {
		id, err := strconv.ParseInt(o.ID, 10, 64)
		if err != nil {
			continue
		}
		allow, err := strconv.ParseUint(o.Allow, 10, 64)
		if err != nil {
			continue
		}
		deny, err := strconv.ParseUint(o.Deny, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, permissions.Overwrite{ID: id, Type: o.Type, Allow: allow, Deny: deny})
	}
	return out
}
