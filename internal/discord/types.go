package discord

import "encoding/json"

// DTO structs for the subset of API fields the pipeline reads directly.
// Every top-level DTO carries its exact wire payload in Raw; persistence
// keeps that blob so schema evolution upstream never loses data.
//
// IDs arrive as decimal strings on the wire and stay strings here; the
// mappers parse them once at the persistence boundary.

// User is a user object. Many endpoints deliver partial users (for
// example inside mention arrays), so only ID is guaranteed.
type User struct {
	ID                   string          `json:"id"`
	Username             string          `json:"username"`
	Discriminator        string          `json:"discriminator"`
	GlobalName           *string         `json:"global_name"`
	Avatar               *string         `json:"avatar"`
	AvatarDecorationData json.RawMessage `json:"avatar_decoration_data"`
	Banner               *string         `json:"banner"`
	AccentColor          *int            `json:"accent_color"`
	Bot                  bool            `json:"bot"`
	System               bool            `json:"system"`
	PublicFlags          int             `json:"public_flags"`
	PremiumType          *int            `json:"premium_type"`

	Raw json.RawMessage `json:"-"`
}

// Member is a guild member record. The pipeline only needs the role list
// of the crawling user to compute permissions.
type Member struct {
	Nick  *string  `json:"nick"`
	Roles []string `json:"roles"`
	User  *User    `json:"user"`

	Raw json.RawMessage `json:"-"`
}

// Role is a guild role.
type Role struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Color        int             `json:"color"`
	Colors       json.RawMessage `json:"colors"`
	Hoist        bool            `json:"hoist"`
	Icon         *string         `json:"icon"`
	UnicodeEmoji *string         `json:"unicode_emoji"`
	Position     int             `json:"position"`
	Permissions  string          `json:"permissions"`
	Managed      bool            `json:"managed"`
	Mentionable  bool            `json:"mentionable"`
	Tags         json.RawMessage `json:"tags"`
	Flags        int             `json:"flags"`

	Raw json.RawMessage `json:"-"`
}

// Emoji is a guild custom emoji, or the emoji half of a reaction
// (where ID is absent for unicode emoji).
type Emoji struct {
	ID            *string  `json:"id"`
	Name          *string  `json:"name"`
	Roles         []string `json:"roles"`
	User          *User    `json:"user"`
	RequireColons *bool    `json:"require_colons"`
	Managed       *bool    `json:"managed"`
	Animated      *bool    `json:"animated"`
	Available     *bool    `json:"available"`

	Raw json.RawMessage `json:"-"`
}

// Sticker is a guild sticker.
type Sticker struct {
	ID          string  `json:"id"`
	PackID      *string `json:"pack_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Tags        string  `json:"tags"`
	Type        int     `json:"type"`
	FormatType  int     `json:"format_type"`
	Available   *bool   `json:"available"`
	GuildID     *string `json:"guild_id"`
	User        *User   `json:"user"`
	SortValue   *int    `json:"sort_value"`

	Raw json.RawMessage `json:"-"`
}

// ScheduledEvent is a guild scheduled event.
type ScheduledEvent struct {
	ID                 string          `json:"id"`
	GuildID            string          `json:"guild_id"`
	ChannelID          *string         `json:"channel_id"`
	CreatorID          *string         `json:"creator_id"`
	Name               string          `json:"name"`
	Description        *string         `json:"description"`
	ScheduledStartTime *string         `json:"scheduled_start_time"`
	ScheduledEndTime   *string         `json:"scheduled_end_time"`
	PrivacyLevel       int             `json:"privacy_level"`
	Status             int             `json:"status"`
	EntityType         int             `json:"entity_type"`
	EntityID           *string         `json:"entity_id"`
	EntityMetadata     json.RawMessage `json:"entity_metadata"`
	UserCount          *int            `json:"user_count"`
	Image              *string         `json:"image"`
	RecurrenceRule     json.RawMessage `json:"recurrence_rule"`

	Raw json.RawMessage `json:"-"`
}

// Guild is a guild object as returned by the guild root endpoint,
// including its full role list.
type Guild struct {
	ID                          string          `json:"id"`
	Name                        string          `json:"name"`
	Icon                        *string         `json:"icon"`
	IconHash                    *string         `json:"icon_hash"`
	Splash                      *string         `json:"splash"`
	DiscoverySplash             *string         `json:"discovery_splash"`
	Banner                      *string         `json:"banner"`
	Description                 *string         `json:"description"`
	OwnerID                     string          `json:"owner_id"`
	AfkChannelID                *string         `json:"afk_channel_id"`
	AfkTimeout                  int             `json:"afk_timeout"`
	WidgetEnabled               *bool           `json:"widget_enabled"`
	WidgetChannelID             *string         `json:"widget_channel_id"`
	SystemChannelID             *string         `json:"system_channel_id"`
	SystemChannelFlags          int             `json:"system_channel_flags"`
	RulesChannelID              *string         `json:"rules_channel_id"`
	PublicUpdatesChannelID      *string         `json:"public_updates_channel_id"`
	SafetyAlertsChannelID       *string         `json:"safety_alerts_channel_id"`
	VerificationLevel           int             `json:"verification_level"`
	DefaultMessageNotifications int             `json:"default_message_notifications"`
	ExplicitContentFilter       int             `json:"explicit_content_filter"`
	MFALevel                    int             `json:"mfa_level"`
	NSFWLevel                   int             `json:"nsfw_level"`
	Features                    []string        `json:"features"`
	PremiumTier                 int             `json:"premium_tier"`
	PremiumSubscriptionCount    *int            `json:"premium_subscription_count"`
	PremiumProgressBarEnabled   bool            `json:"premium_progress_bar_enabled"`
	VanityURLCode               *string         `json:"vanity_url_code"`
	PreferredLocale             string          `json:"preferred_locale"`
	ApplicationID               *string         `json:"application_id"`
	MaxPresences                *int            `json:"max_presences"`
	MaxMembers                  *int            `json:"max_members"`
	MaxVideoChannelUsers        *int            `json:"max_video_channel_users"`
	MaxStageVideoChannelUsers   *int            `json:"max_stage_video_channel_users"`
	ApproximateMemberCount      *int            `json:"approximate_member_count"`
	ApproximatePresenceCount    *int            `json:"approximate_presence_count"`
	WelcomeScreen               json.RawMessage `json:"welcome_screen"`
	IncidentsData               json.RawMessage `json:"incidents_data"`
	Roles                       []Role          `json:"roles"`

	Raw json.RawMessage `json:"-"`
}

// Channel type constants.
const (
	ChannelTypeText               = 0
	ChannelTypeDM                 = 1
	ChannelTypeVoice              = 2
	ChannelTypeGroupDM            = 3
	ChannelTypeCategory           = 4
	ChannelTypeAnnouncement       = 5
	ChannelTypeAnnouncementThread = 10
	ChannelTypePublicThread       = 11
	ChannelTypePrivateThread      = 12
	ChannelTypeStage              = 13
	ChannelTypeDirectory          = 14
	ChannelTypeForum              = 15
	ChannelTypeMedia              = 16
)

// IsTextBased reports whether a channel type carries messages.
// Voice and stage channels have text chat attached.
func IsTextBased(channelType int) bool {
	switch channelType {
	case ChannelTypeText, ChannelTypeDM, ChannelTypeGroupDM,
		ChannelTypeAnnouncement, ChannelTypeAnnouncementThread,
		ChannelTypePublicThread, ChannelTypePrivateThread,
		ChannelTypeVoice, ChannelTypeStage:
		return true
	}
	return false
}

// IsThread reports whether a channel type is a thread.
func IsThread(channelType int) bool {
	switch channelType {
	case ChannelTypeAnnouncementThread, ChannelTypePublicThread, ChannelTypePrivateThread:
		return true
	}
	return false
}

// ChannelTypeName returns a human-readable channel type label for logs.
func ChannelTypeName(channelType int) string {
	switch channelType {
	case ChannelTypeText:
		return "text"
	case ChannelTypeDM:
		return "dm"
	case ChannelTypeVoice:
		return "voice"
	case ChannelTypeGroupDM:
		return "group_dm"
	case ChannelTypeCategory:
		return "category"
	case ChannelTypeAnnouncement:
		return "announcement"
	case ChannelTypeAnnouncementThread:
		return "announcement_thread"
	case ChannelTypePublicThread:
		return "public_thread"
	case ChannelTypePrivateThread:
		return "private_thread"
	case ChannelTypeStage:
		return "stage"
	case ChannelTypeDirectory:
		return "directory"
	case ChannelTypeForum:
		return "forum"
	case ChannelTypeMedia:
		return "media"
	}
	return "unknown"
}

// PermissionOverwrite is a channel permission overwrite.
// Type 0 targets a role, type 1 a member. Allow and deny are decimal
// strings holding 64-bit masks.
type PermissionOverwrite struct {
	ID    string `json:"id"`
	Type  int    `json:"type"`
	Allow string `json:"allow"`
	Deny  string `json:"deny"`
}

// ThreadMetadata is the thread-specific sub-object on thread channels.
// ArchiveTimestamp doubles as the archived-thread pagination cursor.
type ThreadMetadata struct {
	Archived            bool   `json:"archived"`
	AutoArchiveDuration int    `json:"auto_archive_duration"`
	ArchiveTimestamp    string `json:"archive_timestamp"`
	Locked              bool   `json:"locked"`
	Invitable           *bool  `json:"invitable"`
}

// Channel is a guild channel or thread.
type Channel struct {
	ID                            string                `json:"id"`
	Type                          int                   `json:"type"`
	GuildID                       *string               `json:"guild_id"`
	Position                      *int                  `json:"position"`
	PermissionOverwrites          []PermissionOverwrite `json:"permission_overwrites"`
	Name                          *string               `json:"name"`
	Topic                         *string               `json:"topic"`
	NSFW                          *bool                 `json:"nsfw"`
	LastMessageID                 *string               `json:"last_message_id"`
	Bitrate                       *int                  `json:"bitrate"`
	UserLimit                     *int                  `json:"user_limit"`
	RateLimitPerUser              *int                  `json:"rate_limit_per_user"`
	Icon                          *string               `json:"icon"`
	OwnerID                       *string               `json:"owner_id"`
	ApplicationID                 *string               `json:"application_id"`
	Managed                       *bool                 `json:"managed"`
	ParentID                      *string               `json:"parent_id"`
	LastPinTimestamp              *string               `json:"last_pin_timestamp"`
	RTCRegion                     *string               `json:"rtc_region"`
	VideoQualityMode              *int                  `json:"video_quality_mode"`
	MessageCount                  *int                  `json:"message_count"`
	MemberCount                   *int                  `json:"member_count"`
	ThreadMetadata                *ThreadMetadata       `json:"thread_metadata"`
	DefaultAutoArchiveDuration    *int                  `json:"default_auto_archive_duration"`
	Flags                         *int                  `json:"flags"`
	TotalMessageSent              *int                  `json:"total_message_sent"`
	AvailableTags                 json.RawMessage       `json:"available_tags"`
	AppliedTags                   []string              `json:"applied_tags"`
	DefaultReactionEmoji          json.RawMessage       `json:"default_reaction_emoji"`
	DefaultThreadRateLimitPerUser *int                  `json:"default_thread_rate_limit_per_user"`
	DefaultSortOrder              *int                  `json:"default_sort_order"`
	DefaultForumLayout            *int                  `json:"default_forum_layout"`
	Recipients                    json.RawMessage       `json:"recipients"`

	Raw json.RawMessage `json:"-"`
}

// ThreadList is the paginated archived-thread listing response.
type ThreadList struct {
	Threads []Channel `json:"threads"`
	HasMore bool      `json:"has_more"`
}

// Attachment is a message attachment. Only metadata is archived; the
// URLs are snapshots, not durable references.
type Attachment struct {
	ID           string   `json:"id"`
	Filename     string   `json:"filename"`
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	ContentType  *string  `json:"content_type"`
	Size         int      `json:"size"`
	URL          string   `json:"url"`
	ProxyURL     *string  `json:"proxy_url"`
	Height       *int     `json:"height"`
	Width        *int     `json:"width"`
	DurationSecs *float64 `json:"duration_secs"`
	Waveform     *string  `json:"waveform"`
	Ephemeral    *bool    `json:"ephemeral"`
	Flags        *int     `json:"flags"`

	Raw json.RawMessage `json:"-"`
}

// Reaction is an aggregated reaction on a message.
type Reaction struct {
	Count        int             `json:"count"`
	CountDetails json.RawMessage `json:"count_details"`
	Me           bool            `json:"me"`
	Emoji        Emoji           `json:"emoji"`
	BurstColors  json.RawMessage `json:"burst_colors"`

	Raw json.RawMessage `json:"-"`
}

// MessageReference carries reply/crosspost linkage.
type MessageReference struct {
	MessageID *string `json:"message_id"`
	ChannelID *string `json:"channel_id"`
	GuildID   *string `json:"guild_id"`
}

// Message is a channel message.
type Message struct {
	ID                   string            `json:"id"`
	ChannelID            string            `json:"channel_id"`
	GuildID              *string           `json:"guild_id"`
	Author               *User             `json:"author"`
	Content              string            `json:"content"`
	Timestamp            string            `json:"timestamp"`
	EditedTimestamp      *string           `json:"edited_timestamp"`
	TTS                  bool              `json:"tts"`
	MentionEveryone      bool              `json:"mention_everyone"`
	Mentions             []User            `json:"mentions"`
	MentionRoles         []string          `json:"mention_roles"`
	MentionChannels      json.RawMessage   `json:"mention_channels"`
	Attachments          []Attachment      `json:"attachments"`
	Embeds               json.RawMessage   `json:"embeds"`
	Reactions            []Reaction        `json:"reactions"`
	Pinned               bool              `json:"pinned"`
	WebhookID            *string           `json:"webhook_id"`
	Type                 int               `json:"type"`
	Activity             json.RawMessage   `json:"activity"`
	Application          json.RawMessage   `json:"application"`
	ApplicationID        *string           `json:"application_id"`
	Flags                int               `json:"flags"`
	MessageReference     *MessageReference `json:"message_reference"`
	MessageSnapshots     json.RawMessage   `json:"message_snapshots"`
	InteractionMetadata  json.RawMessage   `json:"interaction_metadata"`
	Interaction          json.RawMessage   `json:"interaction"`
	Thread               json.RawMessage   `json:"thread"`
	Components           json.RawMessage   `json:"components"`
	StickerItems         json.RawMessage   `json:"sticker_items"`
	Poll                 json.RawMessage   `json:"poll"`
	Call                 json.RawMessage   `json:"call"`
	RoleSubscriptionData json.RawMessage   `json:"role_subscription_data"`

	Raw json.RawMessage `json:"-"`
}
