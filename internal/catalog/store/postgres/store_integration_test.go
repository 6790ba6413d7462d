//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"votedeck/internal/catalog/models"
	id "votedeck/pkg/domain"
	"votedeck/pkg/platform/sentinel"
	"votedeck/pkg/testutil/containers"
)

type CatalogStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func (s *CatalogStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = New(s.pg.DB)
}

func (s *CatalogStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(context.Background()))
}

func TestCatalogStoreSuite(t *testing.T) {
	suite.Run(t, new(CatalogStoreSuite))
}

func (s *CatalogStoreSuite) newCategory(name string, order int) *models.Category {
	category, err := models.NewCategory(id.CategoryID(uuid.New()), name, order, time.Now().UTC())
	s.Require().NoError(err)
	return category
}

func (s *CatalogStoreSuite) TestCategoryLifecycle() {
	ctx := context.Background()
	category := s.newCategory("Best Picture", 0)
	s.Require().NoError(s.store.CreateCategory(ctx, category))

	s.Run("name uniqueness ignores case", func() {
		dup := s.newCategory("best picture", 1)
		s.ErrorIs(s.store.CreateCategory(ctx, dup), sentinel.ErrAlreadyUsed)
	})

	s.Run("listing follows display order", func() {
		second := s.newCategory("Best Director", 1)
		s.Require().NoError(s.store.CreateCategory(ctx, second))
		s.Require().NoError(s.store.SetCategoryOrder(ctx, second.ID, 0))
		s.Require().NoError(s.store.SetCategoryOrder(ctx, category.ID, 1))

		listed, err := s.store.ListCategories(ctx)
		s.Require().NoError(err)
		s.Require().Len(listed, 2)
		s.Equal("Best Director", listed[0].Name)
		s.Equal("Best Picture", listed[1].Name)
	})

	s.Run("rename persists", func() {
		category.Name = "Picture of the Year"
		s.Require().NoError(s.store.UpdateCategory(ctx, category))
		found, err := s.store.FindCategory(ctx, category.ID)
		s.Require().NoError(err)
		s.Equal("Picture of the Year", found.Name)
	})

	s.Run("delete removes the row", func() {
		s.Require().NoError(s.store.DeleteCategory(ctx, category.ID))
		_, err := s.store.FindCategory(ctx, category.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *CatalogStoreSuite) TestCards() {
	ctx := context.Background()
	category := s.newCategory("Best Picture", 0)
	s.Require().NoError(s.store.CreateCategory(ctx, category))

	card, err := models.NewCard(id.CardID(uuid.New()), category.ID, "The Winner", "a subtitle", "/uploads/a.png", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateCard(ctx, card))

	s.Run("find and update", func() {
		found, err := s.store.FindCard(ctx, card.ID)
		s.Require().NoError(err)
		s.Equal("The Winner", found.Title)

		card.Title = "The Runner-Up"
		s.Require().NoError(s.store.UpdateCard(ctx, card))
		found, err = s.store.FindCard(ctx, card.ID)
		s.Require().NoError(err)
		s.Equal("The Runner-Up", found.Title)
	})

	s.Run("bulk delete by category", func() {
		s.Require().NoError(s.store.DeleteCardsByCategory(ctx, category.ID))
		cards, err := s.store.ListCardsByCategory(ctx, category.ID)
		s.Require().NoError(err)
		s.Empty(cards)
	})

	s.Run("missing rows report not found", func() {
		s.ErrorIs(s.store.DeleteCard(ctx, id.CardID(uuid.New())), sentinel.ErrNotFound)
	})
}
