// Package memory provides an in-memory ballot store for tests and local
// development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"votedeck/internal/ballot/models"
	id "votedeck/pkg/domain"
	"votedeck/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	voters map[id.VoterID]*models.Voter
	votes  []models.Vote
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		voters: make(map[id.VoterID]*models.Voter),
	}
}

func (s *InMemoryStore) CreateVoter(_ context.Context, voter *models.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.voters {
		if existing.Email == voter.Email || existing.Phone == voter.Phone {
			return sentinel.ErrConflict
		}
	}
	cp := *voter
	s.voters[voter.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindVoterByIdentity(_ context.Context, email, phone string) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, voter := range s.voters {
		if voter.Email == email || voter.Phone == phone {
			cp := *voter
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindVoter(_ context.Context, voterID id.VoterID) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	voter, ok := s.voters[voterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *voter
	return &cp, nil
}

func (s *InMemoryStore) SearchVoters(_ context.Context, query string, offset, limit int) ([]*models.Voter, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	matched := make([]*models.Voter, 0, len(s.voters))
	for _, voter := range s.voters {
		if query == "" ||
			strings.Contains(strings.ToLower(voter.FullName), query) ||
			strings.Contains(voter.Email, query) ||
			strings.Contains(voter.Phone, query) {
			cp := *voter
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	if offset >= total {
		return []*models.Voter{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *InMemoryStore) DeleteVoter(_ context.Context, voterID id.VoterID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.voters[voterID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.voters, voterID)
	return nil
}

func (s *InMemoryStore) CreateVotes(_ context.Context, votes []models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, vote := range votes {
		for _, existing := range s.votes {
			if existing.VoterID == vote.VoterID && existing.CategoryID == vote.CategoryID {
				return sentinel.ErrConflict
			}
		}
	}
	s.votes = append(s.votes, votes...)
	return nil
}

func (s *InMemoryStore) ListVotesByVoter(_ context.Context, voterID id.VoterID) ([]models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Vote
	for _, vote := range s.votes {
		if vote.VoterID == voterID {
			out = append(out, vote)
		}
	}
	return out, nil
}

func (s *InMemoryStore) CountVoters(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.voters), nil
}

func (s *InMemoryStore) CountVotesByCategory(_ context.Context, categoryID id.CategoryID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, vote := range s.votes {
		if vote.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) CountVotesByCard(_ context.Context, cardID id.CardID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, vote := range s.votes {
		if vote.CardID == cardID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) CountVotesByCardGrouped(_ context.Context, categoryID id.CategoryID) (map[id.CardID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[id.CardID]int)
	for _, vote := range s.votes {
		if vote.CategoryID == categoryID {
			counts[vote.CardID]++
		}
	}
	return counts, nil
}

func (s *InMemoryStore) DeleteVotesByVoter(_ context.Context, voterID id.VoterID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes = deleteVotes(s.votes, func(v models.Vote) bool { return v.VoterID == voterID })
	return nil
}

func (s *InMemoryStore) DeleteVotesByCategory(_ context.Context, categoryID id.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes = deleteVotes(s.votes, func(v models.Vote) bool { return v.CategoryID == categoryID })
	return nil
}

func (s *InMemoryStore) DeleteVotesByCard(_ context.Context, cardID id.CardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes = deleteVotes(s.votes, func(v models.Vote) bool { return v.CardID == cardID })
	return nil
}

func deleteVotes(votes []models.Vote, match func(models.Vote) bool) []models.Vote {
	kept := votes[:0]
	for _, vote := range votes {
		if !match(vote) {
			kept = append(kept, vote)
		}
	}
	return kept
}

// Clear resets the store. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voters = make(map[id.VoterID]*models.Voter)
	s.votes = nil
}
