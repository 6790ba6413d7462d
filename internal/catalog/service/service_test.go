package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"votedeck/internal/catalog/models"
	"votedeck/internal/catalog/store/memory"
	id "votedeck/pkg/domain"
	dErrors "votedeck/pkg/domain-errors"
	audit "votedeck/pkg/platform/audit"
	"votedeck/pkg/requestcontext"
)

// fakeVoteCounter is a hand-rolled VoteCounter double.
type fakeVoteCounter struct {
	categoryVotes map[id.CategoryID]int
	cardVotes     map[id.CardID]int

	deletedCategories []id.CategoryID
	deletedCards      []id.CardID
}

func newFakeVoteCounter() *fakeVoteCounter {
	return &fakeVoteCounter{
		categoryVotes: make(map[id.CategoryID]int),
		cardVotes:     make(map[id.CardID]int),
	}
}

func (f *fakeVoteCounter) CountVotesByCategory(_ context.Context, categoryID id.CategoryID) (int, error) {
	return f.categoryVotes[categoryID], nil
}

func (f *fakeVoteCounter) CountVotesByCard(_ context.Context, cardID id.CardID) (int, error) {
	return f.cardVotes[cardID], nil
}

func (f *fakeVoteCounter) DeleteVotesByCategory(_ context.Context, categoryID id.CategoryID) error {
	f.deletedCategories = append(f.deletedCategories, categoryID)
	delete(f.categoryVotes, categoryID)
	return nil
}

func (f *fakeVoteCounter) DeleteVotesByCard(_ context.Context, cardID id.CardID) error {
	f.deletedCards = append(f.deletedCards, cardID)
	delete(f.cardVotes, cardID)
	return nil
}

type capturingPublisher struct {
	events []audit.Event
}

func (c *capturingPublisher) Emit(_ context.Context, event audit.Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *capturingPublisher) last() audit.Event {
	if len(c.events) == 0 {
		return audit.Event{}
	}
	return c.events[len(c.events)-1]
}

type CatalogServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.InMemoryStore
	votes   *fakeVoteCounter
	auditP  *capturingPublisher
	service *Service
}

func (s *CatalogServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.store = memory.NewInMemoryStore()
	s.votes = newFakeVoteCounter()
	s.auditP = &capturingPublisher{}

	var err error
	s.service, err = New(s.store, s.votes, WithAuditPublisher(s.auditP))
	s.Require().NoError(err)
}

func TestCatalogServiceSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceSuite))
}

func (s *CatalogServiceSuite) mustCreateCategory(name string) *models.Category {
	category, err := s.service.CreateCategory(s.ctx, name)
	s.Require().NoError(err)
	return category
}

func (s *CatalogServiceSuite) mustCreateCard(categoryID id.CategoryID, title string) *models.Card {
	card, err := s.service.CreateCard(s.ctx, categoryID, title, "", "/uploads/x.png")
	s.Require().NoError(err)
	return card
}

func (s *CatalogServiceSuite) TestCreateCategory() {
	s.Run("appends to the end of the order", func() {
		first := s.mustCreateCategory("Best Picture")
		second := s.mustCreateCategory("Best Director")

		s.Equal(0, first.Order)
		s.Equal(1, second.Order)
		s.Equal(audit.ActionCategoryCreated, s.auditP.last().Action)
	})

	s.Run("rejects duplicate names case-insensitively", func() {
		s.mustCreateCategory("Best Song")
		_, err := s.service.CreateCategory(s.ctx, "best song")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects an empty name", func() {
		_, err := s.service.CreateCategory(s.ctx, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *CatalogServiceSuite) TestRenameCategory() {
	category := s.mustCreateCategory("Best Pictur")

	renamed, err := s.service.RenameCategory(s.ctx, category.ID, "Best Picture")
	s.Require().NoError(err)
	s.Equal("Best Picture", renamed.Name)

	s.Run("unknown id is not found", func() {
		_, err := s.service.RenameCategory(s.ctx, id.CategoryID(uuid.New()), "Anything")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CatalogServiceSuite) TestReorder() {
	a := s.mustCreateCategory("A")
	b := s.mustCreateCategory("B")
	c := s.mustCreateCategory("C")

	s.Run("rewrites display order from list position", func() {
		err := s.service.Reorder(s.ctx, []id.CategoryID{c.ID, a.ID, b.ID})
		s.Require().NoError(err)

		catalog, err := s.service.Snapshot(s.ctx)
		s.Require().NoError(err)
		s.Equal([]id.CategoryID{c.ID, a.ID, b.ID}, catalog.OrderedIDs())
	})

	s.Run("rejects unknown ids", func() {
		err := s.service.Reorder(s.ctx, []id.CategoryID{a.ID, id.CategoryID(uuid.New())})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects duplicates", func() {
		err := s.service.Reorder(s.ctx, []id.CategoryID{a.ID, a.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects an empty list", func() {
		err := s.service.Reorder(s.ctx, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *CatalogServiceSuite) TestDeleteCategory() {
	s.Run("clean delete needs no confirmation", func() {
		category := s.mustCreateCategory("Empty")
		err := s.service.DeleteCategory(s.ctx, category.ID, false)
		s.Require().NoError(err)

		_, err = s.store.FindCategory(s.ctx, category.ID)
		s.Error(err)
	})

	s.Run("dirty delete without confirmation is forbidden", func() {
		category := s.mustCreateCategory("With Cards")
		s.mustCreateCard(category.ID, "Option")

		err := s.service.DeleteCategory(s.ctx, category.ID, false)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("confirmed dirty delete cascades cards and votes", func() {
		category := s.mustCreateCategory("Contested")
		card := s.mustCreateCard(category.ID, "Option")
		s.votes.categoryVotes[category.ID] = 3

		err := s.service.DeleteCategory(s.ctx, category.ID, true)
		s.Require().NoError(err)

		s.Contains(s.votes.deletedCategories, category.ID)
		_, err = s.store.FindCard(s.ctx, card.ID)
		s.Error(err)
		s.Equal(audit.ActionCategoryDeleted, s.auditP.last().Action)
	})
}

func (s *CatalogServiceSuite) TestCards() {
	category := s.mustCreateCategory("Best Picture")

	s.Run("create requires an existing category", func() {
		_, err := s.service.CreateCard(s.ctx, id.CategoryID(uuid.New()), "Title", "", "/uploads/a.png")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("update applies partial fields", func() {
		card := s.mustCreateCard(category.ID, "Original")

		subtitle := "Dir. Someone // 2025"
		updated, err := s.service.UpdateCard(s.ctx, card.ID, models.CardUpdate{
			Title:    "Renamed",
			Subtitle: &subtitle,
		})
		s.Require().NoError(err)
		s.Equal("Renamed", updated.Title)
		s.Equal(subtitle, updated.Subtitle)
		s.Equal(card.ImageURL, updated.ImageURL)
	})

	s.Run("dirty card delete follows the confirmation contract", func() {
		card := s.mustCreateCard(category.ID, "Voted On")
		s.votes.cardVotes[card.ID] = 2

		err := s.service.DeleteCard(s.ctx, card.ID, false)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		err = s.service.DeleteCard(s.ctx, card.ID, true)
		s.Require().NoError(err)
		s.Contains(s.votes.deletedCards, card.ID)
	})
}

func (s *CatalogServiceSuite) TestDependencies() {
	category := s.mustCreateCategory("Best Picture")
	card := s.mustCreateCard(category.ID, "Option")
	s.votes.categoryVotes[category.ID] = 5
	s.votes.cardVotes[card.ID] = 5

	catDeps, err := s.service.CategoryDependencies(s.ctx, category.ID)
	s.Require().NoError(err)
	s.Equal(Dependencies{CardCount: 1, VoteCount: 5}, catDeps)
	s.True(catDeps.Dirty())

	cardDeps, err := s.service.CardDependencies(s.ctx, card.ID)
	s.Require().NoError(err)
	s.Equal(Dependencies{VoteCount: 5}, cardDeps)
}

func (s *CatalogServiceSuite) TestSnapshot() {
	a := s.mustCreateCategory("A")
	b := s.mustCreateCategory("B")
	card := s.mustCreateCard(a.ID, "Only Option")

	catalog, err := s.service.Snapshot(s.ctx)
	s.Require().NoError(err)

	s.Require().Len(catalog.Categories, 2)
	s.Equal(a.ID, catalog.Categories[0].ID)
	s.Equal(b.ID, catalog.Categories[1].ID)
	s.True(catalog.CardBelongs(a.ID, card.ID))
	s.False(catalog.CardBelongs(b.ID, card.ID))
}
