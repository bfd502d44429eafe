package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tmserv/guildarchive/internal/archive"
	"github.com/tmserv/guildarchive/internal/mapper"
	"github.com/tmserv/guildarchive/internal/store/migrate"
)

// setupTestStore connects to the database named by TEST_DATABASE_URL
// and applies migrations. Tests are skipped when no database is
// available or when running with -short.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("open migration connection: %v", err)
	}
	defer db.Close()
	if err := migrate.Up(db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	for _, table := range []string{
		"channel_checkpoints", "reactions", "attachments", "messages",
		"users", "scheduled_events", "stickers", "emojis", "roles",
		"channels", "guilds",
	} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clean table %s: %v", table, err)
		}
	}

	return NewStore(pool)
}

func seedChannel(t *testing.T, s *Store, guildID, channelID int64) {
	t.Helper()
	ctx := context.Background()
	g := &archive.Guild{GuildID: guildID, Name: "g", OwnerID: 1, Raw: json.RawMessage(`{}`)}
	if err := s.UpsertGuild(ctx, s.DB, g); err != nil {
		t.Fatalf("seed guild: %v", err)
	}
	gid := guildID
	ch := &archive.Channel{ChannelID: channelID, GuildID: &gid, Type: 0, Raw: json.RawMessage(`{}`)}
	if err := s.UpsertChannel(ctx, s.DB, ch); err != nil {
		t.Fatalf("seed channel: %v", err)
	}
}

func TestCheckpointFrontiers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedChannel(t, s, 1, 10)

	cp, err := s.EnsureCheckpoint(ctx, 10, 1)
	if err != nil {
		t.Fatalf("EnsureCheckpoint() error: %v", err)
	}
	if cp.OldestMessageID != nil || cp.NewestMessageID != nil || cp.BackfillComplete {
		t.Fatalf("fresh checkpoint not empty: %+v", cp)
	}

	// First batch initializes both bounds.
	if err := s.ExtendOldest(ctx, 10, 500, 900); err != nil {
		t.Fatal(err)
	}
	cp, _ = s.GetCheckpoint(ctx, 10)
	if *cp.OldestMessageID != 500 || *cp.NewestMessageID != 900 {
		t.Fatalf("bounds = %v/%v, want 500/900", *cp.OldestMessageID, *cp.NewestMessageID)
	}

	// Oldest only moves down; a replayed higher bound is ignored.
	if err := s.ExtendOldest(ctx, 10, 700, 800); err != nil {
		t.Fatal(err)
	}
	cp, _ = s.GetCheckpoint(ctx, 10)
	if *cp.OldestMessageID != 500 {
		t.Errorf("oldest moved up to %d", *cp.OldestMessageID)
	}
	if err := s.ExtendOldest(ctx, 10, 300, 400); err != nil {
		t.Fatal(err)
	}
	cp, _ = s.GetCheckpoint(ctx, 10)
	if *cp.OldestMessageID != 300 {
		t.Errorf("oldest = %d, want 300", *cp.OldestMessageID)
	}

	// Newest only moves up.
	if err := s.ExtendNewest(ctx, 10, 850); err != nil {
		t.Fatal(err)
	}
	cp, _ = s.GetCheckpoint(ctx, 10)
	if *cp.NewestMessageID != 900 {
		t.Errorf("newest moved down to %d", *cp.NewestMessageID)
	}
	if err := s.ExtendNewest(ctx, 10, 1200); err != nil {
		t.Fatal(err)
	}
	cp, _ = s.GetCheckpoint(ctx, 10)
	if *cp.NewestMessageID != 1200 {
		t.Errorf("newest = %d, want 1200", *cp.NewestMessageID)
	}

	if err := s.MarkBackfillComplete(ctx, 10); err != nil {
		t.Fatal(err)
	}
	cp, _ = s.GetCheckpoint(ctx, 10)
	if !cp.BackfillComplete {
		t.Error("backfill_complete not latched")
	}

	// EnsureCheckpoint never resets existing state.
	cp, err = s.EnsureCheckpoint(ctx, 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !cp.BackfillComplete || *cp.OldestMessageID != 300 {
		t.Errorf("checkpoint reset by EnsureCheckpoint: %+v", cp)
	}
}

func TestGetCheckpointMissing(t *testing.T) {
	s := setupTestStore(t)
	cp, err := s.GetCheckpoint(context.Background(), 999999)
	if err != nil {
		t.Fatalf("GetCheckpoint() error: %v", err)
	}
	if cp != nil {
		t.Errorf("expected nil for unknown channel, got %+v", cp)
	}
}

func TestBackfillCompletionQueries(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedChannel(t, s, 1, 10)
	seedChannel(t, s, 1, 11)

	if _, err := s.EnsureCheckpoint(ctx, 10, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnsureCheckpoint(ctx, 11, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkBackfillComplete(ctx, 10); err != nil {
		t.Fatal(err)
	}

	done, err := s.IsBackfillComplete(ctx, 10)
	if err != nil {
		t.Fatalf("IsBackfillComplete() error: %v", err)
	}
	if !done {
		t.Error("channel 10 should report complete")
	}
	done, err = s.IsBackfillComplete(ctx, 11)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("channel 11 should report incomplete")
	}
	// A channel that was never crawled has not completed anything.
	done, err = s.IsBackfillComplete(ctx, 999999)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("unknown channel should report incomplete")
	}

	pending, err := s.GetIncompleteBackfills(ctx, 1)
	if err != nil {
		t.Fatalf("GetIncompleteBackfills() error: %v", err)
	}
	if len(pending) != 1 || pending[0] != 11 {
		t.Errorf("pending = %v, want [11]", pending)
	}
}

func TestUserUpsertLatestWins(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	username := "alice"
	full := archive.User{UserID: 7, Username: &username, Raw: json.RawMessage(`{}`)}
	if err := s.UpsertUsers(ctx, s.DB, []archive.User{full}); err != nil {
		t.Fatal(err)
	}

	// A later partial sighting replaces every column, including the
	// ones it does not carry.
	partial := archive.User{UserID: 7, Raw: json.RawMessage(`{"id":"7"}`)}
	if err := s.UpsertUsers(ctx, s.DB, []archive.User{partial}); err != nil {
		t.Fatal(err)
	}

	var got *string
	if err := s.DB.QueryRow(ctx,
		`SELECT username FROM users WHERE user_id = 7`).Scan(&got); err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("username = %q, want NULL after partial sighting", *got)
	}
}

func testBundle(messageID, channelID, authorID int64) mapper.MessageBundle {
	username := "author"
	return mapper.MessageBundle{
		Message: archive.Message{
			MessageID: messageID,
			ChannelID: channelID,
			AuthorID:  authorID,
			Content:   "hello",
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
			Raw:       json.RawMessage(`{}`),
		},
		Users: []archive.User{{
			UserID:   authorID,
			Username: &username,
			Raw:      json.RawMessage(`{}`),
		}},
		Reactions: []archive.Reaction{{
			MessageID: messageID,
			EmojiKey:  "unicode:x",
			Count:     1,
		}},
	}
}

func TestPersistBatchIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedChannel(t, s, 1, 10)

	bundles := []mapper.MessageBundle{
		testBundle(100, 10, 7),
		testBundle(101, 10, 7),
	}
	inserted, err := s.PersistBatch(ctx, 1, bundles)
	if err != nil {
		t.Fatalf("PersistBatch() error: %v", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}

	// Replaying an overlapping page inserts only the new row.
	bundles = []mapper.MessageBundle{
		testBundle(101, 10, 7),
		testBundle(102, 10, 7),
	}
	inserted, err = s.PersistBatch(ctx, 1, bundles)
	if err != nil {
		t.Fatalf("PersistBatch() replay error: %v", err)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1", inserted)
	}

	n, err := s.CountMessages(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("message count = %d, want 3", n)
	}
}

func TestReactionCountRefreshed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedChannel(t, s, 1, 10)

	b := testBundle(200, 10, 7)
	if _, err := s.PersistBatch(ctx, 1, []mapper.MessageBundle{b}); err != nil {
		t.Fatal(err)
	}

	// Same message seen again with a higher reaction count: the row is
	// ignored, the reaction is refreshed.
	b = testBundle(200, 10, 7)
	b.Reactions[0].Count = 5
	if _, err := s.PersistBatch(ctx, 1, []mapper.MessageBundle{b}); err != nil {
		t.Fatal(err)
	}

	var count int
	err := s.DB.QueryRow(ctx,
		`SELECT count FROM reactions WHERE message_id = 200 AND emoji_key = 'unicode:x'`,
	).Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("reaction count = %d, want 5", count)
	}
}

func TestChannelParentTwoPass(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	g := &archive.Guild{GuildID: 1, Name: "g", OwnerID: 1, Raw: json.RawMessage(`{}`)}
	if err := s.UpsertGuild(ctx, s.DB, g); err != nil {
		t.Fatal(err)
	}

	gid := int64(1)
	parent := int64(20)
	// Child listed before its category parent.
	channels := []archive.Channel{
		{ChannelID: 21, GuildID: &gid, Type: 0, ParentID: &parent, Raw: json.RawMessage(`{}`)},
		{ChannelID: 20, GuildID: &gid, Type: 4, Raw: json.RawMessage(`{}`)},
	}
	if err := s.UpsertChannels(ctx, s.DB, channels); err != nil {
		t.Fatalf("UpsertChannels() error: %v", err)
	}

	var got *int64
	if err := s.DB.QueryRow(ctx,
		`SELECT parent_id FROM channels WHERE channel_id = 21`).Scan(&got); err != nil {
		t.Fatal(err)
	}
	if got == nil || *got != 20 {
		t.Errorf("parent_id = %v, want 20", got)
	}
}
