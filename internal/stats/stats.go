// Package stats computes the dashboard numbers: voter totals and per-card
// vote counts with percentages. Results are cached briefly because the
// dashboard polls and the counts are GROUP BY queries over the whole vote
// table.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	catalogmodels "votedeck/internal/catalog/models"
	id "votedeck/pkg/domain"
	dErrors "votedeck/pkg/domain-errors"
)

// CardStats is one card's share of a category's votes.
type CardStats struct {
	ID      id.CardID `json:"id"`
	Title   string    `json:"title"`
	Votes   int       `json:"votes"`
	Percent float64   `json:"percent"`
}

// CategoryStats is one category's breakdown.
type CategoryStats struct {
	ID         id.CategoryID `json:"id"`
	Name       string        `json:"name"`
	TotalVotes int           `json:"total_votes"`
	Cards      []CardStats   `json:"cards"`
}

// Dashboard is the full stats document.
type Dashboard struct {
	TotalVoters int             `json:"total_voters"`
	Categories  []CategoryStats `json:"categories"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// VoteSource is the slice of the ballot store the stats need.
type VoteSource interface {
	CountVoters(ctx context.Context) (int, error)
	CountVotesByCardGrouped(ctx context.Context, categoryID id.CategoryID) (map[id.CardID]int, error)
}

// CatalogReader provides the category/card structure counts hang off.
type CatalogReader interface {
	Snapshot(ctx context.Context) (*catalogmodels.Catalog, error)
}

// Cache holds serialized dashboards. A miss returns ErrCacheMiss from the
// implementation's own vocabulary; the service treats any error as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]byte, error) { return nil, fmt.Errorf("no cache") }
func (nopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (nopCache) Delete(context.Context, string) error                     { return nil }

const cacheKey = "stats:dashboard"

type Service struct {
	votes    VoteSource
	catalog  CatalogReader
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

type Option func(*Service)

func WithCache(cache Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(votes VoteSource, catalog CatalogReader, opts ...Option) (*Service, error) {
	if votes == nil {
		return nil, fmt.Errorf("vote source is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader is required")
	}
	s := &Service{
		votes:    votes,
		catalog:  catalog,
		cache:    nopCache{},
		cacheTTL: 15 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dashboard returns the stats document, from cache when fresh. Cache
// failures fall through to a live computation; stats must work when Redis
// is down.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		var dashboard Dashboard
		if err := json.Unmarshal(cached, &dashboard); err == nil {
			return &dashboard, nil
		}
		s.logger.WarnContext(ctx, "discarding undecodable cached dashboard")
	}

	dashboard, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if body, err := json.Marshal(dashboard); err == nil {
		if err := s.cache.Set(ctx, cacheKey, body, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "failed to cache dashboard", "error", err)
		}
	}
	return dashboard, nil
}

// Invalidate drops the cached dashboard. Called after vote-mutating admin
// operations so the dashboard does not show deleted data for a TTL.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate dashboard cache", "error", err)
	}
}

func (s *Service) compute(ctx context.Context) (*Dashboard, error) {
	catalog, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	totalVoters, err := s.votes.CountVoters(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count voters")
	}

	dashboard := &Dashboard{
		TotalVoters: totalVoters,
		Categories:  make([]CategoryStats, 0, len(catalog.Categories)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, category := range catalog.Categories {
		counts, err := s.votes.CountVotesByCardGrouped(ctx, category.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count votes")
		}

		total := 0
		for _, n := range counts {
			total += n
		}

		cs := CategoryStats{
			ID:         category.ID,
			Name:       category.Name,
			TotalVotes: total,
			Cards:      make([]CardStats, 0, len(category.Cards)),
		}
		for _, card := range category.Cards {
			votes := counts[card.ID]
			percent := 0.0
			if total > 0 {
				percent = math.Round(float64(votes)/float64(total)*1000) / 10
			}
			cs.Cards = append(cs.Cards, CardStats{
				ID:      card.ID,
				Title:   card.Title,
				Votes:   votes,
				Percent: percent,
			})
		}
		// Leaders first; ties keep catalog order.
		sort.SliceStable(cs.Cards, func(i, j int) bool {
			return cs.Cards[i].Votes > cs.Cards[j].Votes
		})
		dashboard.Categories = append(dashboard.Categories, cs)
	}
	return dashboard, nil
}
