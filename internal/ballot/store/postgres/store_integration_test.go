//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"votedeck/internal/ballot/models"
	catalogmodels "votedeck/internal/catalog/models"
	catalogpostgres "votedeck/internal/catalog/store/postgres"
	id "votedeck/pkg/domain"
	"votedeck/pkg/platform/sentinel"
	"votedeck/pkg/testutil/containers"
)

type BallotStoreSuite struct {
	suite.Suite
	pg      *containers.PostgresContainer
	store   *Store
	catalog *catalogpostgres.Store

	categoryID id.CategoryID
	cardID     id.CardID
}

func (s *BallotStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = New(s.pg.DB)
	s.catalog = catalogpostgres.New(s.pg.DB)
}

func (s *BallotStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(context.Background()))

	now := time.Now().UTC()
	s.categoryID = id.CategoryID(uuid.New())
	s.cardID = id.CardID(uuid.New())

	category, err := catalogmodels.NewCategory(s.categoryID, "Best Picture", 0, now)
	s.Require().NoError(err)
	s.Require().NoError(s.catalog.CreateCategory(context.Background(), category))

	card, err := catalogmodels.NewCard(s.cardID, s.categoryID, "The Winner", "", "/uploads/x.png", now)
	s.Require().NoError(err)
	s.Require().NoError(s.catalog.CreateCard(context.Background(), card))
}

func TestBallotStoreSuite(t *testing.T) {
	suite.Run(t, new(BallotStoreSuite))
}

func (s *BallotStoreSuite) newVoter(email, phone string) *models.Voter {
	voter, err := models.NewVoter(id.VoterID(uuid.New()), "Ada Lovelace", email, phone, time.Now().UTC())
	s.Require().NoError(err)
	return voter
}

func (s *BallotStoreSuite) TestVoterUniqueness() {
	ctx := context.Background()
	voter := s.newVoter("ada@example.com", "+15551234567")
	s.Require().NoError(s.store.CreateVoter(ctx, voter))

	s.Run("duplicate email", func() {
		dup := s.newVoter("ada@example.com", "+15559999999")
		s.ErrorIs(s.store.CreateVoter(ctx, dup), sentinel.ErrConflict)
	})

	s.Run("duplicate phone", func() {
		dup := s.newVoter("other@example.com", "+15551234567")
		s.ErrorIs(s.store.CreateVoter(ctx, dup), sentinel.ErrConflict)
	})

	s.Run("identity lookup matches either field", func() {
		found, err := s.store.FindVoterByIdentity(ctx, "ada@example.com", "+10000000000")
		s.Require().NoError(err)
		s.Equal(voter.ID, found.ID)

		found, err = s.store.FindVoterByIdentity(ctx, "nobody@example.com", "+15551234567")
		s.Require().NoError(err)
		s.Equal(voter.ID, found.ID)

		_, err = s.store.FindVoterByIdentity(ctx, "nobody@example.com", "+10000000000")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *BallotStoreSuite) TestVotes() {
	ctx := context.Background()
	voter := s.newVoter("ada@example.com", "+15551234567")
	s.Require().NoError(s.store.CreateVoter(ctx, voter))

	vote := models.Vote{
		VoterID:    voter.ID,
		CategoryID: s.categoryID,
		CardID:     s.cardID,
		CreatedAt:  time.Now().UTC(),
	}
	s.Require().NoError(s.store.CreateVotes(ctx, []models.Vote{vote}))

	s.Run("one vote per category is enforced", func() {
		s.ErrorIs(s.store.CreateVotes(ctx, []models.Vote{vote}), sentinel.ErrConflict)
	})

	s.Run("counts line up", func() {
		count, err := s.store.CountVotesByCategory(ctx, s.categoryID)
		s.Require().NoError(err)
		s.Equal(1, count)

		grouped, err := s.store.CountVotesByCardGrouped(ctx, s.categoryID)
		s.Require().NoError(err)
		s.Equal(map[id.CardID]int{s.cardID: 1}, grouped)
	})

	s.Run("cascade by voter", func() {
		s.Require().NoError(s.store.DeleteVotesByVoter(ctx, voter.ID))
		votes, err := s.store.ListVotesByVoter(ctx, voter.ID)
		s.Require().NoError(err)
		s.Empty(votes)
	})
}

func (s *BallotStoreSuite) TestSearchVoters() {
	ctx := context.Background()
	for _, v := range []struct{ email, phone string }{
		{"ada@example.com", "+15550000001"},
		{"grace@example.com", "+15550000002"},
	} {
		s.Require().NoError(s.store.CreateVoter(ctx, s.newVoter(v.email, v.phone)))
	}

	voters, total, err := s.store.SearchVoters(ctx, "grace", 0, 10)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(voters, 1)
	s.Equal("grace@example.com", voters[0].Email)

	_, total, err = s.store.SearchVoters(ctx, "", 0, 10)
	s.Require().NoError(err)
	s.Equal(2, total)
}
