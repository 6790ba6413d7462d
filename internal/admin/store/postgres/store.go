// Package postgres implements the admin store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"votedeck/internal/admin/models"
	id "votedeck/pkg/domain"
	"votedeck/pkg/platform/sentinel"
	txcontext "votedeck/pkg/platform/tx"
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
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Create(ctx context.Context, admin *models.Admin) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO admins (id, username, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, admin.ID.String(), admin.Username, admin.PasswordHash, string(admin.Role), admin.CreatedAt, admin.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, adminID id.AdminID) (*models.Admin, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, created_at, updated_at
		FROM admins
		WHERE id = $1
	`, adminID.String())
	return scanAdmin(row)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, created_at, updated_at
		FROM admins
		WHERE LOWER(username) = LOWER($1)
	`, username)
	return scanAdmin(row)
}

func (s *Store) List(ctx context.Context) ([]*models.Admin, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, username, password_hash, role, created_at, updated_at
		FROM admins
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []*models.Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}
	return admins, rows.Err()
}

func (s *Store) Update(ctx context.Context, admin *models.Admin) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE admins
		SET username = $2, password_hash = $3, role = $4, updated_at = $5
		WHERE id = $1
	`, admin.ID.String(), admin.Username, admin.PasswordHash, string(admin.Role), admin.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin: rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, adminID id.AdminID) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM admins WHERE id = $1
	`, adminID.String())
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete admin: rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) CountByRole(ctx context.Context, role models.Role) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM admins WHERE role = $1
	`, string(role)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdmin(row rowScanner) (*models.Admin, error) {
	var admin models.Admin
	var rawID, rawRole string
	err := row.Scan(&rawID, &admin.Username, &admin.PasswordHash, &rawRole, &admin.CreatedAt, &admin.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan admin: %w", err)
	}
	if admin.ID, err = id.ParseAdminID(rawID); err != nil {
		return nil, fmt.Errorf("parse admin id: %w", err)
	}
	admin.Role = models.Role(rawRole)
	return &admin, nil
}
