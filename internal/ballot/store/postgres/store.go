// Package postgres implements the ballot store on PostgreSQL. The unique
// constraints on voter email, voter phone, and (voter, category) are the
// authoritative guard against duplicate submissions.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"votedeck/internal/ballot/models"
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

func (s *Store) CreateVoter(ctx context.Context, voter *models.Voter) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO voters (id, full_name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, voter.ID.String(), voter.FullName, voter.Email, voter.Phone, voter.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert voter: %w", err)
	}
	return nil
}

func (s *Store) FindVoterByIdentity(ctx context.Context, email, phone string) (*models.Voter, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, full_name, email, phone, created_at
		FROM voters
		WHERE email = $1 OR phone = $2
	`, email, phone)
	return scanVoter(row)
}

func (s *Store) FindVoter(ctx context.Context, voterID id.VoterID) (*models.Voter, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, full_name, email, phone, created_at
		FROM voters
		WHERE id = $1
	`, voterID.String())
	return scanVoter(row)
}

func (s *Store) SearchVoters(ctx context.Context, query string, offset, limit int) ([]*models.Voter, int, error) {
	pattern := "%" + query + "%"

	var total int
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM voters
		WHERE $1 = '' OR full_name ILIKE $2 OR email ILIKE $2 OR phone LIKE $2
	`, query, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count voters: %w", err)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, full_name, email, phone, created_at
		FROM voters
		WHERE $1 = '' OR full_name ILIKE $2 OR email ILIKE $2 OR phone LIKE $2
		ORDER BY created_at DESC, id ASC
		OFFSET $3 LIMIT $4
	`, query, pattern, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("search voters: %w", err)
	}
	defer rows.Close()

	voters := make([]*models.Voter, 0)
	for rows.Next() {
		voter, err := scanVoter(rows)
		if err != nil {
			return nil, 0, err
		}
		voters = append(voters, voter)
	}
	return voters, total, rows.Err()
}

func (s *Store) DeleteVoter(ctx context.Context, voterID id.VoterID) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM voters WHERE id = $1
	`, voterID.String())
	if err != nil {
		return fmt.Errorf("delete voter: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete voter: rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) CreateVotes(ctx context.Context, votes []models.Vote) error {
	for _, vote := range votes {
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO votes (voter_id, category_id, card_id, created_at)
			VALUES ($1, $2, $3, $4)
		`, vote.VoterID.String(), vote.CategoryID.String(), vote.CardID.String(), vote.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert vote: %w", err)
		}
	}
	return nil
}

func (s *Store) ListVotesByVoter(ctx context.Context, voterID id.VoterID) ([]models.Vote, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT voter_id, category_id, card_id, created_at
		FROM votes
		WHERE voter_id = $1
	`, voterID.String())
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var vote models.Vote
		var rawVoter, rawCategory, rawCard string
		if err := rows.Scan(&rawVoter, &rawCategory, &rawCard, &vote.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		if vote.VoterID, err = id.ParseVoterID(rawVoter); err != nil {
			return nil, err
		}
		if vote.CategoryID, err = id.ParseCategoryID(rawCategory); err != nil {
			return nil, err
		}
		if vote.CardID, err = id.ParseCardID(rawCard); err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	return votes, rows.Err()
}

func (s *Store) CountVoters(ctx context.Context) (int, error) {
	return s.countWhere(ctx, `SELECT COUNT(*) FROM voters`)
}

func (s *Store) CountVotesByCategory(ctx context.Context, categoryID id.CategoryID) (int, error) {
	return s.countWhere(ctx, `SELECT COUNT(*) FROM votes WHERE category_id = $1`, categoryID.String())
}

func (s *Store) CountVotesByCard(ctx context.Context, cardID id.CardID) (int, error) {
	return s.countWhere(ctx, `SELECT COUNT(*) FROM votes WHERE card_id = $1`, cardID.String())
}

func (s *Store) CountVotesByCardGrouped(ctx context.Context, categoryID id.CategoryID) (map[id.CardID]int, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT card_id, COUNT(*)
		FROM votes
		WHERE category_id = $1
		GROUP BY card_id
	`, categoryID.String())
	if err != nil {
		return nil, fmt.Errorf("count votes by card: %w", err)
	}
	defer rows.Close()

	counts := make(map[id.CardID]int)
	for rows.Next() {
		var rawCard string
		var count int
		if err := rows.Scan(&rawCard, &count); err != nil {
			return nil, fmt.Errorf("scan vote count: %w", err)
		}
		cardID, err := id.ParseCardID(rawCard)
		if err != nil {
			return nil, err
		}
		counts[cardID] = count
	}
	return counts, rows.Err()
}

func (s *Store) DeleteVotesByVoter(ctx context.Context, voterID id.VoterID) error {
	_, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM votes WHERE voter_id = $1`, voterID.String())
	if err != nil {
		return fmt.Errorf("delete votes by voter: %w", err)
	}
	return nil
}

func (s *Store) DeleteVotesByCategory(ctx context.Context, categoryID id.CategoryID) error {
	_, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM votes WHERE category_id = $1`, categoryID.String())
	if err != nil {
		return fmt.Errorf("delete votes by category: %w", err)
	}
	return nil
}

func (s *Store) DeleteVotesByCard(ctx context.Context, cardID id.CardID) error {
	_, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM votes WHERE card_id = $1`, cardID.String())
	if err != nil {
		return fmt.Errorf("delete votes by card: %w", err)
	}
	return nil
}

func (s *Store) countWhere(ctx context.Context, query string, args ...any) (int, error) {
	var count int
	if err := s.execer(ctx).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoter(row rowScanner) (*models.Voter, error) {
	var voter models.Voter
	var rawID string
	err := row.Scan(&rawID, &voter.FullName, &voter.Email, &voter.Phone, &voter.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan voter: %w", err)
	}
	voter.ID, err = id.ParseVoterID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse voter id: %w", err)
	}
	return &voter, nil
}
