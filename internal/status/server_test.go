package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tmserv/guildarchive/internal/store"
)

type fakeProgress struct {
	rows []store.ChannelProgress
	err  error
}

func (f *fakeProgress) GuildProgress(ctx context.Context, guildID int64) ([]store.ChannelProgress, error) {
	return f.rows, f.err
}

func serve(t *testing.T, p ProgressSource, path string) *httptest.ResponseRecorder {
	t.Helper()
	s := &Server{Progress: p}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeProgress{}, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGuildProgress(t *testing.T) {
	name := "general"
	p := &fakeProgress{rows: []store.ChannelProgress{
		{ChannelID: 1, Name: &name, BackfillComplete: true, MessageCount: 42},
		{ChannelID: 2, BackfillComplete: false},
	}}

	rec := serve(t, p, "/guilds/99/progress")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var body struct {
		GuildID          int64                   `json:"guild_id"`
		Channels         []store.ChannelProgress `json:"channels"`
		ChannelsTotal    int                     `json:"channels_total"`
		ChannelsComplete int                     `json:"channels_complete"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.GuildID != 99 || body.ChannelsTotal != 2 || body.ChannelsComplete != 1 {
		t.Errorf("body = %+v", body)
	}
	if len(body.Channels) != 2 || body.Channels[0].MessageCount != 42 {
		t.Errorf("channels = %+v", body.Channels)
	}
}

func TestGuildProgressBadID(t *testing.T) {
	rec := serve(t, &fakeProgress{}, "/guilds/not-a-number/progress")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGuildProgressQueryError(t *testing.T) {
	rec := serve(t, &fakeProgress{err: errors.New("boom")}, "/guilds/1/progress")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
