// Package memory provides an in-memory admin store for tests and local
// development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"votedeck/internal/admin/models"
	id "votedeck/pkg/domain"
	"votedeck/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	admins map[id.AdminID]*models.Admin
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{admins: make(map[id.AdminID]*models.Admin)}
}

func (s *InMemoryStore) Create(_ context.Context, admin *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.admins {
		if strings.EqualFold(existing.Username, admin.Username) {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *admin
	s.admins[admin.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, adminID id.AdminID) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin, ok := s.admins[adminID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *admin
	return &cp, nil
}

func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, admin := range s.admins {
		if strings.EqualFold(admin.Username, username) {
			cp := *admin
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Admin, 0, len(s.admins))
	for _, admin := range s.admins {
		cp := *admin
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, admin *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[admin.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *admin
	s.admins[admin.ID] = &cp
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, adminID id.AdminID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[adminID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.admins, adminID)
	return nil
}

func (s *InMemoryStore) CountByRole(_ context.Context, role models.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, admin := range s.admins {
		if admin.Role == role {
			count++
		}
	}
	return count, nil
}

// Clear resets the store. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins = make(map[id.AdminID]*models.Admin)
}
