// Package store is the PostgreSQL persistence layer.
//
// Write semantics differ by entity class: guilds, channels, roles,
// emojis, stickers, events, users, and reactions are upserted with the
// latest payload winning; messages and attachments are insert-or-ignore
// so re-crawled pages never touch existing rows.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by pools and transactions, so
// repository methods run inside or outside a transaction unchanged.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles the repositories over one connection pool.
type Store struct {
	DB *pgxpool.Pool
}

// NewStore creates a new Store
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}
