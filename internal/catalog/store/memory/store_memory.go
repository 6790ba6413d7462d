// Package memory provides an in-memory catalog store for tests and local
// development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"votedeck/internal/catalog/models"
	id "votedeck/pkg/domain"
	"votedeck/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu         sync.RWMutex
	categories map[id.CategoryID]*models.Category
	cards      map[id.CardID]*models.Card
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		categories: make(map[id.CategoryID]*models.Category),
		cards:      make(map[id.CardID]*models.Card),
	}
}

func (s *InMemoryStore) CreateCategory(_ context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return sentinel.ErrAlreadyUsed
		}
	}

	cp := *category
	s.categories[category.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindCategory(_ context.Context, categoryID id.CategoryID) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categories[categoryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *category
	return &cp, nil
}

func (s *InMemoryStore) ListCategories(_ context.Context) ([]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Category, 0, len(s.categories))
	for _, category := range s.categories {
		cp := *category
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) UpdateCategory(_ context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[category.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for otherID, existing := range s.categories {
		if otherID != category.ID && strings.EqualFold(existing.Name, category.Name) {
			return sentinel.ErrAlreadyUsed
		}
	}

	cp := *category
	s.categories[category.ID] = &cp
	return nil
}

func (s *InMemoryStore) SetCategoryOrder(_ context.Context, categoryID id.CategoryID, order int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[categoryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	category.Order = order
	return nil
}

func (s *InMemoryStore) DeleteCategory(_ context.Context, categoryID id.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[categoryID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.categories, categoryID)
	return nil
}

func (s *InMemoryStore) CreateCard(_ context.Context, card *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *card
	s.cards[card.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindCard(_ context.Context, cardID id.CardID) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, ok := s.cards[cardID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *card
	return &cp, nil
}

func (s *InMemoryStore) ListCardsByCategory(_ context.Context, categoryID id.CategoryID) ([]*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Card, 0)
	for _, card := range s.cards {
		if card.CategoryID != categoryID {
			continue
		}
		cp := *card
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemoryStore) UpdateCard(_ context.Context, card *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[card.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *card
	s.cards[card.ID] = &cp
	return nil
}

func (s *InMemoryStore) DeleteCard(_ context.Context, cardID id.CardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[cardID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.cards, cardID)
	return nil
}

func (s *InMemoryStore) DeleteCardsByCategory(_ context.Context, categoryID id.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for cardID, card := range s.cards {
		if card.CategoryID == categoryID {
			delete(s.cards, cardID)
		}
	}
	return nil
}

// Clear resets the store. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = make(map[id.CategoryID]*models.Category)
	s.cards = make(map[id.CardID]*models.Card)
}
