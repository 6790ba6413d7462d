// Package service handles ballot submission: rebuilding the voter's
// selection state, enforcing the one-submission-per-person rule, and
// persisting the completed ballot atomically.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"votedeck/internal/ballot/models"
	catalogmodels "votedeck/internal/catalog/models"
	"votedeck/internal/voting"
	id "votedeck/pkg/domain"
	dErrors "votedeck/pkg/domain-errors"
	audit "votedeck/pkg/platform/audit"
	"votedeck/pkg/platform/sentinel"
	txcontext "votedeck/pkg/platform/tx"
	"votedeck/pkg/requestcontext"
)

// Store is the ballot persistence boundary.
type Store interface {
	CreateVoter(ctx context.Context, voter *models.Voter) error
	FindVoterByIdentity(ctx context.Context, email, phone string) (*models.Voter, error)
	FindVoter(ctx context.Context, voterID id.VoterID) (*models.Voter, error)
	SearchVoters(ctx context.Context, query string, offset, limit int) ([]*models.Voter, int, error)
	DeleteVoter(ctx context.Context, voterID id.VoterID) error

	CreateVotes(ctx context.Context, votes []models.Vote) error
	ListVotesByVoter(ctx context.Context, voterID id.VoterID) ([]models.Vote, error)
	CountVoters(ctx context.Context) (int, error)
	CountVotesByCategory(ctx context.Context, categoryID id.CategoryID) (int, error)
	CountVotesByCard(ctx context.Context, cardID id.CardID) (int, error)
	CountVotesByCardGrouped(ctx context.Context, categoryID id.CategoryID) (map[id.CardID]int, error)
	DeleteVotesByVoter(ctx context.Context, voterID id.VoterID) error
	DeleteVotesByCategory(ctx context.Context, categoryID id.CategoryID) error
	DeleteVotesByCard(ctx context.Context, cardID id.CardID) error
}

// CatalogReader provides the catalog snapshot ballots are validated against.
type CatalogReader interface {
	Snapshot(ctx context.Context) (*catalogmodels.Catalog, error)
}

// SettingsReader gates submission on the voting window.
type SettingsReader interface {
	VotingEnabled(ctx context.Context) (bool, error)
}

// Metrics is the counter surface the service reports to.
type Metrics interface {
	VoteSubmitted()
	VoteRejected(reason string)
}

type nopMetrics struct{}

func (nopMetrics) VoteSubmitted()      {}
func (nopMetrics) VoteRejected(string) {}

type Service struct {
	store    Store
	catalog  CatalogReader
	settings SettingsReader
	runner   txcontext.Runner
	auditP   audit.Publisher
	metrics  Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) { s.runner = runner }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.auditP = p }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, catalog CatalogReader, settings SettingsReader, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ballot store is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings reader is required")
	}
	s := &Service{
		store:    store,
		catalog:  catalog,
		settings: settings,
		runner:   txcontext.NopRunner{},
		auditP:   audit.Discard{},
		metrics:  nopMetrics{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SelectionInput is one raw category/card pair from the client.
type SelectionInput struct {
	CategoryID string `json:"category_id"`
	CardID     string `json:"card_id"`
}

// SubmitInput is the raw submission payload.
type SubmitInput struct {
	FullName   string           `json:"full_name"`
	Email      string           `json:"email"`
	Phone      string           `json:"phone"`
	Selections []SelectionInput `json:"selections"`
}

// Submit validates and persists a complete ballot.
//
// The selection state is rebuilt server side: each pair is applied to a
// fresh session over the current category order, so category membership,
// one-choice-per-category, and completeness are all enforced here
// regardless of what the client claims.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*models.Voter, error) {
	enabled, err := s.settings.VotingEnabled(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read voting settings")
	}
	if !enabled {
		s.metrics.VoteRejected("voting_disabled")
		return nil, dErrors.New(dErrors.CodeUnavailable, "voting is currently closed")
	}

	voter, err := models.NewVoter(id.VoterID(uuid.New()), input.FullName, input.Email, input.Phone, requestcontext.Now(ctx))
	if err != nil {
		s.metrics.VoteRejected("invalid_voter")
		return nil, err
	}

	selections, err := s.buildBallot(ctx, input.Selections)
	if err != nil {
		s.metrics.VoteRejected("invalid_ballot")
		return nil, err
	}

	if existing, err := s.store.FindVoterByIdentity(ctx, voter.Email, voter.Phone); err == nil && existing != nil {
		s.rejectDuplicate(ctx, voter)
		return nil, dErrors.New(dErrors.CodeConflict, "a vote has already been recorded for this email or phone")
	} else if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check voter identity")
	}

	now := requestcontext.Now(ctx)
	votes := make([]models.Vote, len(selections))
	for i, sel := range selections {
		votes[i] = models.Vote{
			VoterID:    voter.ID,
			CategoryID: sel.Category,
			CardID:     sel.Card,
			CreatedAt:  now,
		}
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateVoter(ctx, voter); err != nil {
			return err
		}
		return s.store.CreateVotes(ctx, votes)
	})
	if err != nil {
		// The identity pre-check races with concurrent submissions; the
		// unique constraints are the real guard.
		if errors.Is(err, sentinel.ErrConflict) || errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.rejectDuplicate(ctx, voter)
			return nil, dErrors.New(dErrors.CodeConflict, "a vote has already been recorded for this email or phone")
		}
		s.metrics.VoteRejected("store_failure")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record ballot")
	}

	s.metrics.VoteSubmitted()
	s.emit(ctx, audit.Event{
		Action:  audit.ActionVoteSubmitted,
		Subject: voter.ID.String(),
	})
	return voter, nil
}

// buildBallot replays raw selections through a fresh voting session and
// returns the completed, category-ordered pairs.
func (s *Service) buildBallot(ctx context.Context, raw []SelectionInput) ([]voting.Selection, error) {
	catalog, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	session := voting.NewSession(catalog.OrderedIDs())

	for _, pair := range raw {
		categoryID, err := id.ParseCategoryID(pair.CategoryID)
		if err != nil {
			return nil, err
		}
		cardID, err := id.ParseCardID(pair.CardID)
		if err != nil {
			return nil, err
		}
		if !catalog.CardBelongs(categoryID, cardID) {
			return nil, dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("card %s does not belong to category %s", cardID, categoryID))
		}
		if err := session.Select(categoryID, cardID); err != nil {
			var invalid *voting.InvalidCategoryError
			if errors.As(err, &invalid) {
				return nil, dErrors.New(dErrors.CodeInvalidInput, invalid.Error())
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply selection")
		}
	}

	selections, err := session.ToSubmission()
	if err != nil {
		var incomplete *voting.IncompleteSelectionError
		if errors.As(err, &incomplete) {
			return nil, dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("ballot incomplete: no selection for category %s", incomplete.FirstUnanswered))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize ballot")
	}
	return selections, nil
}

// ProgressInput asks where the voter should be steered next.
type ProgressInput struct {
	Selections []SelectionInput `json:"selections"`
	// After optionally names the category the voter just answered; when set,
	// navigation prefers the next unanswered category after it.
	After string `json:"after,omitempty"`
}

// Progress reports the navigation target for a partially filled ballot:
// the next category still needing an answer, or completion.
func (s *Service) Progress(ctx context.Context, input ProgressInput) (next id.CategoryID, complete bool, err error) {
	catalog, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return id.CategoryID{}, false, err
	}
	session := voting.NewSession(catalog.OrderedIDs())

	for _, pair := range input.Selections {
		categoryID, err := id.ParseCategoryID(pair.CategoryID)
		if err != nil {
			return id.CategoryID{}, false, err
		}
		cardID, err := id.ParseCardID(pair.CardID)
		if err != nil {
			return id.CategoryID{}, false, err
		}
		if !catalog.CardBelongs(categoryID, cardID) {
			return id.CategoryID{}, false, dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("card %s does not belong to category %s", cardID, categoryID))
		}
		if err := session.Select(categoryID, cardID); err != nil {
			var invalid *voting.InvalidCategoryError
			if errors.As(err, &invalid) {
				return id.CategoryID{}, false, dErrors.New(dErrors.CodeInvalidInput, invalid.Error())
			}
			return id.CategoryID{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply selection")
		}
	}

	if input.After != "" {
		afterID, err := id.ParseCategoryID(input.After)
		if err != nil {
			return id.CategoryID{}, false, err
		}
		if nextID, ok := session.NextUnansweredAfter(afterID); ok {
			return nextID, false, nil
		}
	}
	if nextID, ok := session.FirstUnanswered(); ok {
		return nextID, false, nil
	}
	return id.CategoryID{}, true, nil
}

// VoterRow is one voter in the admin search, with their recorded vote count.
type VoterRow struct {
	*models.Voter
	VoteCount int `json:"vote_count"`
}

// VoterPage is one page of the admin voter search.
type VoterPage struct {
	Voters  []VoterRow `json:"voters"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
}

// SearchVoters pages through voters, optionally filtered by a name, email,
// or phone substring.
func (s *Service) SearchVoters(ctx context.Context, query string, page, perPage int) (*VoterPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	voters, total, err := s.store.SearchVoters(ctx, query, (page-1)*perPage, perPage)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search voters")
	}

	rows := make([]VoterRow, 0, len(voters))
	for _, voter := range voters {
		votes, err := s.store.ListVotesByVoter(ctx, voter.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count voter votes")
		}
		rows = append(rows, VoterRow{Voter: voter, VoteCount: len(votes)})
	}
	return &VoterPage{Voters: rows, Total: total, Page: page, PerPage: perPage}, nil
}

// VoterDependencies reports how many votes a voter delete would remove.
func (s *Service) VoterDependencies(ctx context.Context, voterID id.VoterID) (int, error) {
	votes, err := s.store.ListVotesByVoter(ctx, voterID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list voter votes")
	}
	return len(votes), nil
}

// DeleteVoter removes a voter and their votes. A voter with recorded votes
// is a dirty delete and requires password confirmation upstream.
func (s *Service) DeleteVoter(ctx context.Context, voterID id.VoterID, confirmed bool) error {
	voter, err := s.store.FindVoter(ctx, voterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "voter not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to find voter")
	}

	votes, err := s.store.ListVotesByVoter(ctx, voterID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list voter votes")
	}
	if len(votes) > 0 && !confirmed {
		return dErrors.New(dErrors.CodeForbidden, "password required to delete a voter with recorded votes")
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteVotesByVoter(ctx, voterID); err != nil {
			return err
		}
		return s.store.DeleteVoter(ctx, voterID)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete voter")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionVoterDeleted,
		Subject: voter.ID.String(),
		Actor:   requestcontext.Actor(ctx),
	})
	return nil
}

func (s *Service) rejectDuplicate(ctx context.Context, voter *models.Voter) {
	s.metrics.VoteRejected("duplicate_voter")
	s.emit(ctx, audit.Event{
		Action:  audit.ActionVoteRejected,
		Subject: voter.Email,
		Reason:  "duplicate email or phone",
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if err := s.auditP.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
