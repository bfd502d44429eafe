package store

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tmserv/guildarchive/internal/archive"
)

// UpsertUsers writes user snapshots, latest sighting wins. Within a
// batch a repeated user ID keeps its first occurrence. Mention arrays
// carry partial users, so readers must not assume non-key columns are
// populated.
func (s *Store) UpsertUsers(ctx context.Context, q Querier, users []archive.User) error {
	seen := make(map[int64]bool, len(users))
	for i := range users {
		u := &users[i]
		if seen[u.UserID] {
			continue
		}
		seen[u.UserID] = true

		_, err := q.Exec(ctx, `
			INSERT INTO users (
				user_id, username, discriminator, global_name, avatar,
				avatar_decoration_data, banner, accent_color, bot, system,
				public_flags, premium_type, raw
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (user_id) DO UPDATE SET
				username = EXCLUDED.username,
				discriminator = EXCLUDED.discriminator,
				global_name = EXCLUDED.global_name,
				avatar = EXCLUDED.avatar,
				avatar_decoration_data = EXCLUDED.avatar_decoration_data,
				banner = EXCLUDED.banner,
				accent_color = EXCLUDED.accent_color,
				bot = EXCLUDED.bot,
				system = EXCLUDED.system,
				public_flags = EXCLUDED.public_flags,
				premium_type = EXCLUDED.premium_type,
				raw = EXCLUDED.raw,
				updated_at = now()
		`,
			u.UserID, u.Username, u.Discriminator, u.GlobalName, u.Avatar,
			u.AvatarDecorationData, u.Banner, u.AccentColor, u.Bot, u.System,
			u.PublicFlags, u.PremiumType, u.Raw,
		)
		if err != nil {
			log.Error().Err(err).Int64("user_id", u.UserID).Msg("failed to upsert user")
			return err
		}
	}
	return nil
}
