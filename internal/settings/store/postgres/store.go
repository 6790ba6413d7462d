// Package postgres persists settings as key/value rows, one per flag.
// Missing rows fall back to the defaults so new flags need no migration.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"votedeck/internal/settings"
	txcontext "votedeck/pkg/platform/tx"
)

const (
	keyVotingEnabled = "voting_enabled"
	keyShowPollCount = "show_poll_count"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Load(ctx context.Context) (settings.Settings, error) {
	current := settings.Defaults()

	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings.Settings{}, fmt.Errorf("scan setting: %w", err)
		}
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return settings.Settings{}, fmt.Errorf("setting %s has non-boolean value %q", key, value)
		}
		switch key {
		case keyVotingEnabled:
			current.VotingEnabled = enabled
		case keyShowPollCount:
			current.ShowPollCount = enabled
		}
	}
	return current, rows.Err()
}

func (s *Store) Save(ctx context.Context, next settings.Settings) error {
	for key, value := range map[string]bool{
		keyVotingEnabled: next.VotingEnabled,
		keyShowPollCount: next.ShowPollCount,
	} {
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO settings (key, value)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
		`, key, strconv.FormatBool(value))
		if err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return nil
}
