package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "votedeck/pkg/platform/audit"
	txcontext "votedeck/pkg/platform/tx"
)

// Store implements audit.Store on the audit_outbox table. Rows are written
// pending and marked published by the Kafka relay; when no relay runs the
// table is simply the audit log.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON structure stored in the outbox and published to Kafka.
type payload struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Subject   string `json:"subject,omitempty"`
	Actor     string `json:"actor,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Device    string `json:"device,omitempty"`
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	body, err := json.Marshal(payload{
		ID:        eventID.String(),
		Action:    string(event.Action),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Actor:     event.Actor,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		Device:    event.Device,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_outbox (id, action, occurred_at, payload)
		VALUES ($1, $2, $3, $4)
	`, eventID, string(event.Action), event.Timestamp, body)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload
		FROM audit_outbox
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
		events = append(events, audit.Event{
			Action:    audit.Action(p.Action),
			Timestamp: ts,
			Subject:   p.Subject,
			Actor:     p.Actor,
			Reason:    p.Reason,
			RequestID: p.RequestID,
			ClientIP:  p.ClientIP,
			Device:    p.Device,
		})
	}
	return events, rows.Err()
}

// ListPending returns up to limit unpublished rows, oldest first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]audit.PendingRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY occurred_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox rows: %w", err)
	}
	defer rows.Close()

	var pending []audit.PendingRow
	for rows.Next() {
		var row audit.PendingRow
		if err := rows.Scan(&row.ID, &row.Action, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, row)
	}
	return pending, rows.Err()
}

// MarkPublished stamps a row after a successful broker publish.
func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = $2 WHERE id = $1
	`, id, now)
	if err != nil {
		return fmt.Errorf("mark outbox row published: %w", err)
	}
	return nil
}
