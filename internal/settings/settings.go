// Package settings holds the small runtime configuration admins can flip
// without a deploy: whether voting is open and whether running totals are
// shown publicly.
package settings

import (
	"context"
	"fmt"
	"log/slog"

	dErrors "votedeck/pkg/domain-errors"
	audit "votedeck/pkg/platform/audit"
	"votedeck/pkg/requestcontext"
)

// Settings is the full runtime configuration document.
type Settings struct {
	VotingEnabled bool `json:"voting_enabled"`
	ShowPollCount bool `json:"show_poll_count"`
}

// Defaults is what a fresh installation starts with: voting open, running
// totals hidden.
func Defaults() Settings {
	return Settings{VotingEnabled: true, ShowPollCount: false}
}

// Update carries partial changes; nil leaves a field unchanged.
type Update struct {
	VotingEnabled *bool `json:"voting_enabled"`
	ShowPollCount *bool `json:"show_poll_count"`
}

// Store persists the settings document.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

type Service struct {
	store  Store
	auditP audit.Publisher
	logger *slog.Logger
}

type Option func(*Service)

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.auditP = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	s := &Service{
		store:  store,
		auditP: audit.Discard{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Get(ctx context.Context) (Settings, error) {
	current, err := s.store.Load(ctx)
	if err != nil {
		return Settings{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load settings")
	}
	return current, nil
}

// VotingEnabled satisfies the ballot service's SettingsReader.
func (s *Service) VotingEnabled(ctx context.Context) (bool, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return current.VotingEnabled, nil
}

// Apply merges a partial update and persists the result.
func (s *Service) Apply(ctx context.Context, update Update) (Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	if update.VotingEnabled != nil {
		current.VotingEnabled = *update.VotingEnabled
	}
	if update.ShowPollCount != nil {
		current.ShowPollCount = *update.ShowPollCount
	}
	if err := s.store.Save(ctx, current); err != nil {
		return Settings{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save settings")
	}

	if err := s.auditP.Emit(ctx, audit.Event{
		Action: audit.ActionSettingsUpdated,
		Actor:  requestcontext.Actor(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionSettingsUpdated, "error", err)
	}
	return current, nil
}
