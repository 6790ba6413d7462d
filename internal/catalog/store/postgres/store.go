// Package postgres implements the catalog store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"votedeck/internal/catalog/models"
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO categories (id, name, display_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, category.ID.String(), category.Name, category.Order, category.CreatedAt, category.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *Store) FindCategory(ctx context.Context, categoryID id.CategoryID) (*models.Category, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, name, display_order, created_at, updated_at
		FROM categories
		WHERE id = $1
	`, categoryID.String())
	return scanCategory(row)
}

func (s *Store) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, name, display_order, created_at, updated_at
		FROM categories
		ORDER BY display_order ASC, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE categories
		SET name = $2, display_order = $3, updated_at = $4
		WHERE id = $1
	`, category.ID.String(), category.Name, category.Order, category.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(result, "update category")
}

func (s *Store) SetCategoryOrder(ctx context.Context, categoryID id.CategoryID, order int) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE categories SET display_order = $2 WHERE id = $1
	`, categoryID.String(), order)
	if err != nil {
		return fmt.Errorf("set category order: %w", err)
	}
	return requireAffected(result, "set category order")
}

func (s *Store) DeleteCategory(ctx context.Context, categoryID id.CategoryID) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM categories WHERE id = $1
	`, categoryID.String())
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(result, "delete category")
}

func (s *Store) CreateCard(ctx context.Context, card *models.Card) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO cards (id, category_id, title, subtitle, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, card.ID.String(), card.CategoryID.String(), card.Title, card.Subtitle, card.ImageURL, card.CreatedAt, card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *Store) FindCard(ctx context.Context, cardID id.CardID) (*models.Card, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, category_id, title, subtitle, image_url, created_at, updated_at
		FROM cards
		WHERE id = $1
	`, cardID.String())
	return scanCard(row)
}

func (s *Store) ListCardsByCategory(ctx context.Context, categoryID id.CategoryID) ([]*models.Card, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, category_id, title, subtitle, image_url, created_at, updated_at
		FROM cards
		WHERE category_id = $1
		ORDER BY created_at ASC, id ASC
	`, categoryID.String())
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (s *Store) UpdateCard(ctx context.Context, card *models.Card) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE cards
		SET title = $2, subtitle = $3, image_url = $4, updated_at = $5
		WHERE id = $1
	`, card.ID.String(), card.Title, card.Subtitle, card.ImageURL, card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return requireAffected(result, "update card")
}

func (s *Store) DeleteCard(ctx context.Context, cardID id.CardID) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM cards WHERE id = $1
	`, cardID.String())
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return requireAffected(result, "delete card")
}

func (s *Store) DeleteCardsByCategory(ctx context.Context, categoryID id.CategoryID) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM cards WHERE category_id = $1
	`, categoryID.String())
	if err != nil {
		return fmt.Errorf("delete cards by category: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var category models.Category
	var rawID string
	err := row.Scan(&rawID, &category.Name, &category.Order, &category.CreatedAt, &category.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan category: %w", err)
	}
	category.ID, err = id.ParseCategoryID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse category id: %w", err)
	}
	return &category, nil
}

func scanCard(row rowScanner) (*models.Card, error) {
	var card models.Card
	var rawID, rawCategoryID string
	err := row.Scan(&rawID, &rawCategoryID, &card.Title, &card.Subtitle, &card.ImageURL, &card.CreatedAt, &card.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan card: %w", err)
	}
	if card.ID, err = id.ParseCardID(rawID); err != nil {
		return nil, fmt.Errorf("parse card id: %w", err)
	}
	if card.CategoryID, err = id.ParseCategoryID(rawCategoryID); err != nil {
		return nil, fmt.Errorf("parse card category id: %w", err)
	}
	return &card, nil
}

func requireAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
