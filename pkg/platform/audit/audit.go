// Package audit captures key domain actions as events. Events are
// transport-agnostic so stores and sinks can fan out: in-memory for tests,
// a postgres outbox for production, optionally relayed to Kafka.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names one auditable domain action.
type Action string

const (
	// Ballot events
	ActionVoteSubmitted Action = "vote_submitted"
	ActionVoteRejected  Action = "vote_rejected"
	ActionVoterDeleted  Action = "voter_deleted"

	// Admin account events
	ActionAdminLogin       Action = "admin_login"
	ActionAdminLoginFailed Action = "admin_login_failed"
	ActionAdminCreated     Action = "admin_created"
	ActionAdminUpdated     Action = "admin_updated"
	ActionAdminDeleted     Action = "admin_deleted"
	ActionPasswordChanged  Action = "password_changed"

	// Catalog events
	ActionCategoryCreated     Action = "category_created"
	ActionCategoryUpdated     Action = "category_updated"
	ActionCategoryDeleted     Action = "category_deleted"
	ActionCategoriesReordered Action = "categories_reordered"
	ActionCardCreated         Action = "card_created"
	ActionCardUpdated         Action = "card_updated"
	ActionCardDeleted         Action = "card_deleted"

	// Settings events
	ActionSettingsUpdated Action = "settings_updated"
)

// Event is emitted from domain logic to capture one action.
type Event struct {
	Action    Action
	Timestamp time.Time
	// Subject identifies the entity acted on (category id, voter id, ...).
	Subject string
	// Actor is the admin username performing the action; empty for public
	// voter actions.
	Actor string
	// Reason carries rejection causes and other short free-text context.
	Reason string
	// Request correlation captured by middleware.
	RequestID string
	ClientIP  string
	Device    string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// PendingRow is one unpublished outbox row, handed from the postgres store
// to the Kafka relay.
type PendingRow struct {
	ID      uuid.UUID
	Action  string
	Payload []byte
}

// Publisher is the write side handed to services.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Discard is a Publisher that drops every event. Useful as a default so
// services never nil-check their publisher.
type Discard struct{}

func (Discard) Emit(context.Context, Event) error { return nil }
