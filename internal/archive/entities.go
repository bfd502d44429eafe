// Package archive defines the persistence entities of the message
// archive.
//
// Mutable entities (guild, channel, role, emoji, sticker, scheduled
// event, user) are latest-state snapshots: re-observation overwrites.
// Messages and attachments are append-only. Reactions are keyed by
// (message_id, emoji_key) and have their counts refreshed in place.
//
// Every entity keeps the exact (NUL-sanitized) API payload in Raw so
// later migrations can project new columns out of old crawls.
package archive

import (
	"encoding/json"
	"time"
)

// Guild is a latest-state snapshot of a guild.
type Guild struct {
	GuildID                     int64
	Name                        string
	Icon                        *string
	IconHash                    *string
	Splash                      *string
	DiscoverySplash             *string
	Banner                      *string
	Description                 *string
	OwnerID                     int64
	AfkChannelID                *int64
	AfkTimeout                  int
	WidgetEnabled               *bool
	WidgetChannelID             *int64
	SystemChannelID             *int64
	SystemChannelFlags          int
	RulesChannelID              *int64
	PublicUpdatesChannelID      *int64
	SafetyAlertsChannelID       *int64
	VerificationLevel           int
	DefaultMessageNotifications int
	ExplicitContentFilter       int
	MFALevel                    int
	NSFWLevel                   int
	Features                    []string
	PremiumTier                 int
	PremiumSubscriptionCount    *int
	PremiumProgressBarEnabled   bool
	VanityURLCode               *string
	PreferredLocale             string
	ApplicationID               *int64
	MaxPresences                *int
	MaxMembers                  *int
	MaxVideoChannelUsers        *int
	MaxStageVideoChannelUsers   *int
	ApproximateMemberCount      *int
	ApproximatePresenceCount    *int
	WelcomeScreen               json.RawMessage
	IncidentsData               json.RawMessage
	Raw                         json.RawMessage
}

// Channel is a latest-state snapshot of a channel or thread.
// ParentID is a soft self-reference resolved by the two-pass upsert.
type Channel struct {
	ChannelID                     int64
	GuildID                       *int64
	Type                          int
	Name                          *string
	Topic                         *string
	Position                      *int
	PermissionOverwrites          json.RawMessage
	ParentID                      *int64
	NSFW                          *bool
	LastMessageID                 *int64
	Bitrate                       *int
	UserLimit                     *int
	RTCRegion                     *string
	VideoQualityMode              *int
	RateLimitPerUser              *int
	OwnerID                       *int64
	ThreadMetadata                json.RawMessage
	MessageCount                  *int
	MemberCount                   *int
	TotalMessageSent              *int
	DefaultAutoArchiveDuration    *int
	DefaultThreadRateLimitPerUser *int
	AvailableTags                 json.RawMessage
	AppliedTags                   []int64
	DefaultReactionEmoji          json.RawMessage
	DefaultSortOrder              *int
	DefaultForumLayout            *int
	Flags                         int
	Recipients                    json.RawMessage
	Icon                          *string
	ApplicationID                 *int64
	Managed                       *bool
	LastPinTimestamp              *time.Time
	Raw                           json.RawMessage
}

// Role is a guild role snapshot. CASCADE-deleted with its guild.
type Role struct {
	RoleID       int64
	GuildID      int64
	Name         string
	Color        int
	Colors       json.RawMessage
	Hoist        bool
	Position     int
	Mentionable  bool
	Icon         *string
	UnicodeEmoji *string
	Permissions  uint64
	Managed      bool
	Tags         json.RawMessage
	Flags        int
	Raw          json.RawMessage
}

// Emoji is a guild custom emoji snapshot.
type Emoji struct {
	EmojiID       int64
	GuildID       int64
	Name          *string
	Animated      *bool
	Available     *bool
	Managed       *bool
	RequireColons *bool
	Roles         []int64
	UserID        *int64
	Raw           json.RawMessage
}

// Sticker is a guild sticker snapshot.
type Sticker struct {
	StickerID   int64
	GuildID     *int64
	PackID      *int64
	Name        string
	Description *string
	Tags        string
	Type        int
	FormatType  int
	Available   *bool
	UserID      *int64
	SortValue   *int
	Raw         json.RawMessage
}

// ScheduledEvent is a guild scheduled event snapshot.
type ScheduledEvent struct {
	EventID            int64
	GuildID            int64
	ChannelID          *int64
	CreatorID          *int64
	Name               string
	Description        *string
	Image              *string
	ScheduledStartTime *time.Time
	ScheduledEndTime   *time.Time
	PrivacyLevel       int
	Status             int
	EntityType         int
	EntityID           *int64
	EntityMetadata     json.RawMessage
	UserCount          *int
	RecurrenceRule     json.RawMessage
	Raw                json.RawMessage
}

// User is a latest-state snapshot of a user. Rows created from mention
// arrays may be partial; upserts replace with whatever was seen last.
type User struct {
	UserID               int64
	Username             *string
	Discriminator        *string
	GlobalName           *string
	Avatar               *string
	AvatarDecorationData json.RawMessage
	Banner               *string
	AccentColor          *int
	Bot                  bool
	System               bool
	PublicFlags          int
	PremiumType          *int
	Raw                  json.RawMessage
}

// Message is an append-only message row. Identity columns never change
// after the first insert.
type Message struct {
	MessageID            int64
	ChannelID            int64
	AuthorID             int64
	GuildID              *int64
	Content              string
	CreatedAt            time.Time
	EditedTimestamp      *time.Time
	Type                 int
	TTS                  bool
	Flags                int
	Pinned               bool
	MentionEveryone      bool
	Mentions             []int64
	MentionRoles         []int64
	MentionChannels      json.RawMessage
	WebhookID            *int64
	Application          json.RawMessage
	ApplicationID        *int64
	MessageReference     json.RawMessage
	ReferencedMessageID  *int64
	MessageSnapshots     json.RawMessage
	InteractionMetadata  json.RawMessage
	Thread               json.RawMessage
	Embeds               json.RawMessage
	Components           json.RawMessage
	StickerItems         json.RawMessage
	Poll                 json.RawMessage
	Activity             json.RawMessage
	Call                 json.RawMessage
	RoleSubscriptionData json.RawMessage
	Raw                  json.RawMessage
}

// Attachment is append-only attachment metadata. File contents are not
// archived.
type Attachment struct {
	AttachmentID int64
	MessageID    int64
	Filename     string
	Description  *string
	ContentType  *string
	Size         int
	URL          string
	ProxyURL     *string
	Height       *int
	Width        *int
	DurationSecs *float64
	Waveform     *string
	Ephemeral    *bool
	Flags        *int
	Title        *string
	Raw          json.RawMessage
}

// Reaction is an aggregated reaction keyed by (message_id, emoji_key).
// EmojiKey disambiguates custom emoji ("custom:<id>") from unicode
// emoji ("unicode:<name>"); the reaction mapper is its only producer.
type Reaction struct {
	MessageID     int64
	EmojiKey      string
	EmojiID       *int64
	EmojiName     *string
	EmojiAnimated *bool
	Count         int
	CountDetails  json.RawMessage
	BurstColors   json.RawMessage
	Raw           json.RawMessage
}

// Checkpoint is the per-channel sync state. Oldest only decreases,
// newest only increases, and BackfillComplete is never reset.
type Checkpoint struct {
	ChannelID        int64
	GuildID          int64
	OldestMessageID  *int64
	NewestMessageID  *int64
	BackfillComplete bool
	LastSyncedAt     time.Time
	CreatedAt        time.Time
}
