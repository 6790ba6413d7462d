package voting

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "votedeck/pkg/domain"
)

type SessionSuite struct {
	suite.Suite
	categories []id.CategoryID
	cards      map[id.CategoryID][]id.CardID
	session    *Session
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.categories = make([]id.CategoryID, 3)
	s.cards = make(map[id.CategoryID][]id.CardID, 3)
	for i := range s.categories {
		c := id.CategoryID(uuid.New())
		s.categories[i] = c
		s.cards[c] = []id.CardID{id.CardID(uuid.New()), id.CardID(uuid.New())}
	}
	s.session = NewSession(s.categories)
}

func (s *SessionSuite) TestSelect() {
	c1 := s.categories[0]

	s.Run("records a selection", func() {
		s.Require().NoError(s.session.Select(c1, s.cards[c1][0]))

		got, ok := s.session.Selected(c1)
		s.True(ok)
		s.Equal(s.cards[c1][0], got)
	})

	s.Run("replaces instead of accumulating", func() {
		s.Require().NoError(s.session.Select(c1, s.cards[c1][0]))
		s.Require().NoError(s.session.Select(c1, s.cards[c1][1]))

		got, ok := s.session.Selected(c1)
		s.True(ok)
		s.Equal(s.cards[c1][1], got)
		s.Equal(1, s.session.Size())
	})

	s.Run("re-selecting the same card is a no-op", func() {
		s.Require().NoError(s.session.Select(c1, s.cards[c1][0]))
		before := s.session.Size()

		s.Require().NoError(s.session.Select(c1, s.cards[c1][0]))

		s.Equal(before, s.session.Size())
		got, _ := s.session.Selected(c1)
		s.Equal(s.cards[c1][0], got)
	})

	s.Run("unknown category fails without state change", func() {
		unknown := id.CategoryID(uuid.New())
		err := s.session.Select(unknown, id.CardID(uuid.New()))

		var invalid *InvalidCategoryError
		s.Require().ErrorAs(err, &invalid)
		s.Equal(unknown, invalid.Category)
		_, ok := s.session.Selected(unknown)
		s.False(ok)
	})
}

func (s *SessionSuite) TestFirstUnanswered() {
	c1, c2, c3 := s.categories[0], s.categories[1], s.categories[2]

	s.Run("empty session reports the first category", func() {
		first, ok := s.session.FirstUnanswered()
		s.True(ok)
		s.Equal(c1, first)
	})

	s.Run("answering only the middle still reports the first", func() {
		s.Require().NoError(s.session.Select(c2, s.cards[c2][0]))

		first, ok := s.session.FirstUnanswered()
		s.True(ok)
		s.Equal(c1, first)
	})

	s.Run("fully answered reports none", func() {
		for _, c := range s.categories {
			s.Require().NoError(s.session.Select(c, s.cards[c][0]))
		}
		_, ok := s.session.FirstUnanswered()
		s.False(ok)
		_ = c3
	})
}

func (s *SessionSuite) TestNextUnansweredAfter() {
	c1, c2, c3 := s.categories[0], s.categories[1], s.categories[2]

	s.Run("advances to the immediate next gap", func() {
		s.Require().NoError(s.session.Select(c1, s.cards[c1][0]))

		next, ok := s.session.NextUnansweredAfter(c1)
		s.True(ok)
		s.Equal(c2, next)
	})

	s.Run("skips answered categories", func() {
		s.Require().NoError(s.session.Select(c1, s.cards[c1][0]))
		s.Require().NoError(s.session.Select(c2, s.cards[c2][0]))

		next, ok := s.session.NextUnansweredAfter(c1)
		s.True(ok)
		s.Equal(c3, next)
	})

	s.Run("reports none when nothing later is open", func() {
		for _, c := range s.categories {
			s.Require().NoError(s.session.Select(c, s.cards[c][0]))
		}
		_, ok := s.session.NextUnansweredAfter(c1)
		s.False(ok)
	})

	s.Run("does not look backwards past the reference", func() {
		// c1 stays unanswered; the forward scan from c2 must not surface it.
		s.Require().NoError(s.session.Select(c2, s.cards[c2][0]))
		s.Require().NoError(s.session.Select(c3, s.cards[c3][0]))

		_, ok := s.session.NextUnansweredAfter(c2)
		s.False(ok)
	})

	s.Run("unknown reference reports none", func() {
		_, ok := s.session.NextUnansweredAfter(id.CategoryID(uuid.New()))
		s.False(ok)
	})
}

func (s *SessionSuite) TestIsComplete() {
	s.False(s.session.IsComplete())

	for i, c := range s.categories {
		s.Require().NoError(s.session.Select(c, s.cards[c][0]))
		if i < len(s.categories)-1 {
			s.False(s.session.IsComplete())
		}
	}
	s.True(s.session.IsComplete())
}

func (s *SessionSuite) TestToSubmission() {
	s.Run("incomplete session fails naming the first gap", func() {
		s.Require().NoError(s.session.Select(s.categories[1], s.cards[s.categories[1]][0]))

		_, err := s.session.ToSubmission()

		var incomplete *IncompleteSelectionError
		s.Require().ErrorAs(err, &incomplete)
		s.Equal(s.categories[0], incomplete.FirstUnanswered)
	})

	s.Run("complete session yields pairs in catalog order", func() {
		for _, c := range s.categories {
			s.Require().NoError(s.session.Select(c, s.cards[c][1]))
		}

		pairs, err := s.session.ToSubmission()
		s.Require().NoError(err)
		s.Require().Len(pairs, len(s.categories))
		for i, c := range s.categories {
			s.Equal(c, pairs[i].Category)
			s.Equal(s.cards[c][1], pairs[i].Card)
		}
	})

	s.Run("snapshot is immune to later mutation", func() {
		for _, c := range s.categories {
			s.Require().NoError(s.session.Select(c, s.cards[c][0]))
		}
		pairs, err := s.session.ToSubmission()
		s.Require().NoError(err)

		c1 := s.categories[0]
		s.Require().NoError(s.session.Select(c1, s.cards[c1][1]))
		s.session.Reset()

		s.Equal(s.cards[c1][0], pairs[0].Card)
	})
}

func (s *SessionSuite) TestReset() {
	for _, c := range s.categories {
		s.Require().NoError(s.session.Select(c, s.cards[c][0]))
	}
	s.Require().True(s.session.IsComplete())

	s.session.Reset()

	s.False(s.session.IsComplete())
	s.Equal(0, s.session.Size())
	first, ok := s.session.FirstUnanswered()
	s.True(ok)
	s.Equal(s.categories[0], first)
}

// TestSelect_OnePerCategoryProperty drives random selection sequences and
// checks the core invariant after every step: at most one entry per category,
// and every entry's card was the most recent pick for that category.
func TestSelect_OnePerCategoryProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	categories := make([]id.CategoryID, 5)
	cards := make(map[id.CategoryID][]id.CardID, len(categories))
	for i := range categories {
		c := id.CategoryID(uuid.New())
		categories[i] = c
		for range 4 {
			cards[c] = append(cards[c], id.CardID(uuid.New()))
		}
	}

	session := NewSession(categories)
	lastPick := make(map[id.CategoryID]id.CardID)

	for step := 0; step < 500; step++ {
		c := categories[rng.Intn(len(categories))]
		card := cards[c][rng.Intn(len(cards[c]))]

		if err := session.Select(c, card); err != nil {
			t.Fatalf("step %d: unexpected error: %v", step, err)
		}
		lastPick[c] = card

		if session.Size() != len(lastPick) {
			t.Fatalf("step %d: size %d, want %d", step, session.Size(), len(lastPick))
		}
		for cat, want := range lastPick {
			got, ok := session.Selected(cat)
			if !ok || got != want {
				t.Fatalf("step %d: category %s holds %s, want %s", step, cat, got, want)
			}
		}
	}
}

func TestNewSession_DeduplicatesOrder(t *testing.T) {
	c1 := id.CategoryID(uuid.New())
	c2 := id.CategoryID(uuid.New())

	session := NewSession([]id.CategoryID{c1, c2, c1})

	if err := session.Select(c1, id.CardID(uuid.New())); err != nil {
		t.Fatalf("select: %v", err)
	}
	next, ok := session.NextUnansweredAfter(c1)
	if !ok || next != c2 {
		t.Fatalf("next after c1 = %v, %v; want c2", next, ok)
	}
}
