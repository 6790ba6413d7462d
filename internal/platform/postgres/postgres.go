// Package postgres opens the database connection and applies the schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver
)

// Open connects via the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// CreateSchema applies the schema idempotently. The unique indexes on voter
// email, voter phone, and (voter, category) are load-bearing: they are the
// authoritative duplicate-submission guard.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id            UUID PRIMARY KEY,
			name          TEXT NOT NULL,
			display_order INTEGER NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS categories_name_unique
			ON categories (LOWER(name))`,
		`CREATE TABLE IF NOT EXISTS cards (
			id          UUID PRIMARY KEY,
			category_id UUID NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			subtitle    TEXT NOT NULL DEFAULT '',
			image_url   TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS cards_category_idx ON cards (category_id)`,
		`CREATE TABLE IF NOT EXISTS voters (
			id         UUID PRIMARY KEY,
			full_name  TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			phone      TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			voter_id    UUID NOT NULL REFERENCES voters(id) ON DELETE CASCADE,
			category_id UUID NOT NULL,
			card_id     UUID NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (voter_id, category_id)
		)`,
		`CREATE INDEX IF NOT EXISTS votes_category_idx ON votes (category_id)`,
		`CREATE INDEX IF NOT EXISTS votes_card_idx ON votes (card_id)`,
		`CREATE TABLE IF NOT EXISTS admins (
			id            UUID PRIMARY KEY,
			username      TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS admins_username_unique
			ON admins (LOWER(username))`,
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_outbox (
			id           UUID PRIMARY KEY,
			action       TEXT NOT NULL,
			occurred_at  TIMESTAMPTZ NOT NULL,
			payload      JSONB NOT NULL,
			published_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS audit_outbox_pending_idx
			ON audit_outbox (occurred_at) WHERE published_at IS NULL`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
