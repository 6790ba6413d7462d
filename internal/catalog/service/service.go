// Package service orchestrates catalog management: the public catalog
// snapshot, category/card CRUD, reordering, and the password-confirmed
// dirty-delete flow.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"votedeck/internal/catalog/models"
	id "votedeck/pkg/domain"
	dErrors "votedeck/pkg/domain-errors"
	audit "votedeck/pkg/platform/audit"
	"votedeck/pkg/platform/sentinel"
	"votedeck/pkg/requestcontext"
)

// Store is the catalog persistence boundary.
type Store interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	FindCategory(ctx context.Context, categoryID id.CategoryID) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	SetCategoryOrder(ctx context.Context, categoryID id.CategoryID, order int) error
	DeleteCategory(ctx context.Context, categoryID id.CategoryID) error

	CreateCard(ctx context.Context, card *models.Card) error
	FindCard(ctx context.Context, cardID id.CardID) (*models.Card, error)
	ListCardsByCategory(ctx context.Context, categoryID id.CategoryID) ([]*models.Card, error)
	UpdateCard(ctx context.Context, card *models.Card) error
	DeleteCard(ctx context.Context, cardID id.CardID) error
	DeleteCardsByCategory(ctx context.Context, categoryID id.CategoryID) error
}

// VoteCounter is the slice of the ballot store the catalog needs for
// dependency counts and cascade deletes.
type VoteCounter interface {
	CountVotesByCategory(ctx context.Context, categoryID id.CategoryID) (int, error)
	CountVotesByCard(ctx context.Context, cardID id.CardID) (int, error)
	DeleteVotesByCategory(ctx context.Context, categoryID id.CategoryID) error
	DeleteVotesByCard(ctx context.Context, cardID id.CardID) error
}

type Service struct {
	store  Store
	votes  VoteCounter
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

func New(store Store, votes VoteCounter, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	if votes == nil {
		return nil, fmt.Errorf("vote counter is required")
	}
	s := &Service{
		store:  store,
		votes:  votes,
		auditP: audit.Discard{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Snapshot returns the full catalog in display order. Both the public
// categories endpoint and ballot validation read through here.
func (s *Service) Snapshot(ctx context.Context) (*models.Catalog, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list categories")
	}

	catalog := &models.Catalog{Categories: make([]*models.CategoryWithCards, 0, len(categories))}
	for _, category := range categories {
		cards, err := s.store.ListCardsByCategory(ctx, category.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cards")
		}
		catalog.Categories = append(catalog.Categories, &models.CategoryWithCards{
			Category: *category,
			Cards:    cards,
		})
	}
	return catalog, nil
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	existing, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list categories")
	}

	// New categories go to the end of the voting flow.
	category, err := models.NewCategory(id.CategoryID(uuid.New()), name, len(existing), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "category name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create category")
	}

	s.emit(ctx, audit.ActionCategoryCreated, category.ID.String(), "")
	return category, nil
}

func (s *Service) RenameCategory(ctx context.Context, categoryID id.CategoryID, name string) (*models.Category, error) {
	category, err := s.store.FindCategory(ctx, categoryID)
	if err != nil {
		return nil, wrapCategoryErr(err)
	}
	if err := category.Rename(name, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCategory(ctx, category); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "category name must be unique")
		}
		return nil, wrapCategoryErr(err)
	}

	s.emit(ctx, audit.ActionCategoryUpdated, category.ID.String(), "")
	return category, nil
}

// Reorder rewrites the display order: index in ids becomes the new order.
// Every id must name an existing category.
func (s *Service) Reorder(ctx context.Context, ids []id.CategoryID) error {
	if len(ids) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "reorder list must not be empty")
	}
	seen := make(map[id.CategoryID]struct{}, len(ids))
	for _, categoryID := range ids {
		if _, dup := seen[categoryID]; dup {
			return dErrors.New(dErrors.CodeBadRequest, "reorder list contains duplicates")
		}
		seen[categoryID] = struct{}{}
	}

	for index, categoryID := range ids {
		if err := s.store.SetCategoryOrder(ctx, categoryID, index); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "category not found: "+categoryID.String())
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reorder categories")
		}
	}

	s.emit(ctx, audit.ActionCategoriesReordered, "", "")
	return nil
}

// Dependencies summarizes what hangs off an entity, shown to the admin
// before a delete.
type Dependencies struct {
	CardCount int `json:"card_count,omitempty"`
	VoteCount int `json:"vote_count"`
}

func (d Dependencies) Dirty() bool {
	return d.CardCount > 0 || d.VoteCount > 0
}

func (s *Service) CategoryDependencies(ctx context.Context, categoryID id.CategoryID) (Dependencies, error) {
	cards, err := s.store.ListCardsByCategory(ctx, categoryID)
	if err != nil {
		return Dependencies{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cards")
	}
	votes, err := s.votes.CountVotesByCategory(ctx, categoryID)
	if err != nil {
		return Dependencies{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count votes")
	}
	return Dependencies{CardCount: len(cards), VoteCount: votes}, nil
}

func (s *Service) CardDependencies(ctx context.Context, cardID id.CardID) (Dependencies, error) {
	votes, err := s.votes.CountVotesByCard(ctx, cardID)
	if err != nil {
		return Dependencies{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count votes")
	}
	return Dependencies{VoteCount: votes}, nil
}

// DeleteCategory removes a category. A category with cards or votes is a
// "dirty" delete: the caller must have re-verified the acting admin's
// password and pass confirmed=true, and the dependents are cascaded.
func (s *Service) DeleteCategory(ctx context.Context, categoryID id.CategoryID, confirmed bool) error {
	if _, err := s.store.FindCategory(ctx, categoryID); err != nil {
		return wrapCategoryErr(err)
	}

	deps, err := s.CategoryDependencies(ctx, categoryID)
	if err != nil {
		return err
	}
	if deps.Dirty() && !confirmed {
		return dErrors.New(dErrors.CodeForbidden, "password required to delete category with existing data")
	}

	if deps.Dirty() {
		if err := s.votes.DeleteVotesByCategory(ctx, categoryID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete category votes")
		}
		if err := s.store.DeleteCardsByCategory(ctx, categoryID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete category cards")
		}
	}

	if err := s.store.DeleteCategory(ctx, categoryID); err != nil {
		return wrapCategoryErr(err)
	}

	s.emit(ctx, audit.ActionCategoryDeleted, categoryID.String(), "")
	return nil
}

func (s *Service) CreateCard(ctx context.Context, categoryID id.CategoryID, title, subtitle, imageURL string) (*models.Card, error) {
	if _, err := s.store.FindCategory(ctx, categoryID); err != nil {
		return nil, wrapCategoryErr(err)
	}

	card, err := models.NewCard(id.CardID(uuid.New()), categoryID, title, subtitle, imageURL, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateCard(ctx, card); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create card")
	}

	s.emit(ctx, audit.ActionCardCreated, card.ID.String(), "")
	return card, nil
}

func (s *Service) UpdateCard(ctx context.Context, cardID id.CardID, update models.CardUpdate) (*models.Card, error) {
	card, err := s.store.FindCard(ctx, cardID)
	if err != nil {
		return nil, wrapCardErr(err)
	}
	if err := card.Apply(update, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCard(ctx, card); err != nil {
		return nil, wrapCardErr(err)
	}

	s.emit(ctx, audit.ActionCardUpdated, card.ID.String(), "")
	return card, nil
}

// DeleteCard removes a card; a card with votes follows the same
// password-confirmed dirty-delete contract as categories.
func (s *Service) DeleteCard(ctx context.Context, cardID id.CardID, confirmed bool) error {
	if _, err := s.store.FindCard(ctx, cardID); err != nil {
		return wrapCardErr(err)
	}

	deps, err := s.CardDependencies(ctx, cardID)
	if err != nil {
		return err
	}
	if deps.Dirty() && !confirmed {
		return dErrors.New(dErrors.CodeForbidden, "password required to delete card with existing votes")
	}
	if deps.Dirty() {
		if err := s.votes.DeleteVotesByCard(ctx, cardID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete card votes")
		}
	}

	if err := s.store.DeleteCard(ctx, cardID); err != nil {
		return wrapCardErr(err)
	}

	s.emit(ctx, audit.ActionCardDeleted, cardID.String(), "")
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, subject, reason string) {
	if err := s.auditP.Emit(ctx, audit.Event{
		Action:  action,
		Subject: subject,
		Reason:  reason,
		Actor:   requestcontext.Actor(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func wrapCategoryErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "category not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "category store failure")
}

func wrapCardErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "card not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "card store failure")
}
