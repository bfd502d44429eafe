// Package status serves crawl progress over HTTP.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/tmserv/guildarchive/internal/store"
)

// ProgressSource reports per-channel crawl state. *store.Store
// satisfies it.
type ProgressSource interface {
	GuildProgress(ctx context.Context, guildID int64) ([]store.ChannelProgress, error)
}

// Server holds dependencies for HTTP handlers
type Server struct {
	DB       *pgxpool.Pool
	Progress ProgressSource
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// Routes creates the HTTP router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if s.DB != nil {
			if err := s.DB.Ping(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unreachable"})
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})

	r.Get("/guilds/{guildID}/progress", s.handleGuildProgress)

	return r
}

func (s *Server) handleGuildProgress(w http.ResponseWriter, req *http.Request) {
	guildID, err := strconv.ParseInt(chi.URLParam(req, "guildID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid guild id"})
		return
	}

	progress, err := s.Progress.GuildProgress(req.Context(), guildID)
	if err != nil {
		log.Error().Err(err).Int64("guild_id", guildID).Msg("progress query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if progress == nil {
		progress = []store.ChannelProgress{}
	}

	complete := 0
	for _, p := range progress {
		if p.BackfillComplete {
			complete++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"guild_id":          guildID,
		"channels":          progress,
		"channels_total":    len(progress),
		"channels_complete": complete,
	})
}
