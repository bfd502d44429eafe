package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// MaxMessageBatch is the largest page size the messages endpoint accepts.
const MaxMessageBatch = 100

// decodeOne unmarshals a single-object response and stores the wire
// payload back on the DTO.
func decodeOne[T any](raw json.RawMessage, setRaw func(*T, json.RawMessage)) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	setRaw(&v, raw)
	return &v, nil
}

// decodeList unmarshals an array response element by element so every
// DTO keeps its own raw payload.
func decodeList[T any](raw json.RawMessage, setRaw func(*T, json.RawMessage)) ([]T, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode response list: %w", err)
	}
	out := make([]T, len(items))
	for i, item := range items {
		if err := json.Unmarshal(item, &out[i]); err != nil {
			return nil, fmt.Errorf("decode response element: %w", err)
		}
		setRaw(&out[i], item)
	}
	return out, nil
}

// GetGuild fetches a guild, including its role list.
func (c *Client) GetGuild(ctx context.Context, guildID int64) (*Guild, error) {
	raw, err := c.Get(ctx, fmt.Sprintf("/guilds/%d", guildID), nil)
	if err != nil {
		return nil, err
	}
	return decodeOne(raw, func(g *Guild, r json.RawMessage) { g.Raw = r })
}

// GetGuildChannels fetches all regular channels in a guild. Threads are
// not included; see the archived-thread endpoints.
func (c *Client) GetGuildChannels(ctx context.Context, guildID int64) ([]Channel, error) {
	raw, err := c.Get(ctx, fmt.Sprintf("/guilds/%d/channels", guildID), nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, func(ch *Channel, r json.RawMessage) { ch.Raw = r })
}

// GetActiveThreads fetches all active threads in a guild.
func (c *Client) GetActiveThreads(ctx context.Context, guildID int64) (*ThreadList, error) {
	raw, err := c.Get(ctx, fmt.Sprintf("/guilds/%d/threads/active", guildID), nil)
	if err != nil {
		return nil, err
	}
	return decodeThreadList(raw)
}

// GetPublicArchivedThreads fetches one page of public archived threads.
// before is an ISO8601 archive timestamp cursor; empty fetches the
// newest page.
func (c *Client) GetPublicArchivedThreads(ctx context.Context, channelID int64, before string) (*ThreadList, error) {
	return c.getArchivedThreads(ctx, channelID, "public", before)
}

// GetPrivateArchivedThreads fetches one page of private archived
// threads. Requires MANAGE_THREADS on the parent channel.
func (c *Client) GetPrivateArchivedThreads(ctx context.Context, channelID int64, before string) (*ThreadList, error) {
	return c.getArchivedThreads(ctx, channelID, "private", before)
}

func (c *Client) getArchivedThreads(ctx context.Context, channelID int64, visibility, before string) (*ThreadList, error) {
	query := url.Values{"limit": {strconv.Itoa(MaxMessageBatch)}}
	if before != "" {
		query.Set("before", before)
	}
	raw, err := c.Get(ctx, fmt.Sprintf("/channels/%d/threads/archived/%s", channelID, visibility), query)
	if err != nil {
		return nil, err
	}
	return decodeThreadList(raw)
}

func decodeThreadList(raw json.RawMessage) (*ThreadList, error) {
	var envelope struct {
		Threads []json.RawMessage `json:"threads"`
		HasMore bool              `json:"has_more"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode thread list: %w", err)
	}
	list := &ThreadList{HasMore: envelope.HasMore, Threads: make([]Channel, len(envelope.Threads))}
	for i, item := range envelope.Threads {
		if err := json.Unmarshal(item, &list.Threads[i]); err != nil {
			return nil, fmt.Errorf("decode thread: %w", err)
		}
		list.Threads[i].Raw = item
	}
	return list, nil
}

// GetChannel fetches a single channel by ID.
func (c *Client) GetChannel(ctx context.Context, channelID int64) (*Channel, error) {
	raw, err := c.Get(ctx, fmt.Sprintf("/channels/%d", channelID), nil)
	if err != nil {
		return nil, err
	}
	return decodeOne(raw, func(ch *Channel, r json.RawMessage) { ch.Raw = r })
}

// MessageQuery selects a message page. At most one of Before, After,
// Around should be set; zero means unset.
type MessageQuery struct {
	Limit  int
	Before int64
	After  int64
	Around int64
}

// GetMessages fetches one page of messages. The server returns them
// newest-first regardless of cursor direction.
func (c *Client) GetMessages(ctx context.Context, channelID int64, q MessageQuery) ([]Message, error) {
	limit := q.Limit
	if limit <= 0 || limit > MaxMessageBatch {
		limit = MaxMessageBatch
	}
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if q.Before != 0 {
		query.Set("before", strconv.FormatInt(q.Before, 10))
	}
	if q.After != 0 {
		query.Set("after", strconv.FormatInt(q.After, 10))
	}
	if q.Around != 0 {
		query.Set("around", strconv.FormatInt(q.Around, 10))
	}

	raw, err := c.Get(ctx, fmt.Sprintf("/channels/%d/messages", channelID), query)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, func(m *Message, r json.RawMessage) { m.Raw = r })
}

// GetUser fetches a user by ID.
func (c *Client) GetUser(ctx context.Context, userID int64) (*User, error) {
	raw, err := c.Get(ctx, fmt.Sprintf("/users/%d", userID), nil)
	if err != nil {
		return nil, err
	}
	return decodeOne(raw, func(u *User, r json.RawMessage) { u.Raw = r })
}

// GetCurrentUser fetches the token owner.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	raw, err := c.Get(ctx, "/users/@me", nil)
	if err != nil {
		return nil, err
	}
	return decodeOne(raw, func(u *User, r json.RawMessage) { u.Raw = r })
}

// GetCurrentUserGuildMember fetches the token owner's member record in
// a guild, which carries its role list.
func (c *Client) GetCurrentUserGuildMember(ctx context.Context, guildID int64) (*Member, error) {
	raw, err := c.Get(ctx, fmt.Sprintf("/users/@me/guilds/%d/member", guildID), nil)
	if err != nil {
		return nil, err
	}
	return decodeOne(raw, func(m *Member, r json.RawMessage) { m.Raw = r })
}

// GetGuildMembers fetches one page of guild members. after is an
// exclusive user ID cursor; zero starts from the beginning.
func (c *Client) GetGuildMembers(ctx context.Context, guildID, after int64, limit int) ([]Member, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if after != 0 {
		query.Set("after", strconv.FormatInt(after, 10))
	}
	raw, err := c.Get(ctx, fmt.Sprintf("/guilds/%d/members", guildID), query)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, func(m *Member, r json.RawMessage) { m.Raw = r })
}

// GetGuildEmojis fetches all custom emojis in a guild.
func (c *Client) GetGuildEmojis(ctx context.Context, guildID int64) ([]Emoji, error) {
	raw, err := c.Get(ctx, fmt.Sprintf("/guilds/%d/emojis", guildID), nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, func(e *Emoji, r json.RawMessage) { e.Raw = r })
}

// GetGuildStickers fetches all stickers in a guild.
func (c *Client) GetGuildStickers(ctx context.Context, guildID int64) ([]Sticker, error) {
	raw, err := c.Get(ctx, fmt.Sprintf("/guilds/%d/stickers", guildID), nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, func(s *Sticker, r json.RawMessage) { s.Raw = r })
}

// GetGuildScheduledEvents fetches all scheduled events in a guild,
// including subscriber counts.
func (c *Client) GetGuildScheduledEvents(ctx context.Context, guildID int64) ([]ScheduledEvent, error) {
	query := url.Values{"with_user_count": {"true"}}
	raw, err := c.Get(ctx, fmt.Sprintf("/guilds/%d/scheduled-events", guildID), query)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, func(e *ScheduledEvent, r json.RawMessage) { e.Raw = r })
}
