// Package voting implements the per-visitor selection state machine.
//
// A Session tracks at most one selected card per category and answers two
// questions for its caller: "is every category satisfied?" and "which
// category should the visitor address next?". It performs no I/O and holds
// no display concerns; the transport layer translates clicks and ballots
// into calls and renders the results.
package voting

import (
	"fmt"

	id "votedeck/pkg/domain"
)

// Selection is one (category, card) pair of a submitted ballot.
type Selection struct {
	Category id.CategoryID
	Card     id.CardID
}

// InvalidCategoryError reports a Select call against a category the session's
// catalog does not contain. The call fails; the session is unchanged.
type InvalidCategoryError struct {
	Category id.CategoryID
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("unknown category %s", e.Category)
}

// IncompleteSelectionError reports a ToSubmission call while at least one
// category is unanswered. FirstUnanswered is the gap in catalog order the
// caller should direct the visitor to.
type IncompleteSelectionError struct {
	FirstUnanswered id.CategoryID
}

func (e *IncompleteSelectionError) Error() string {
	return fmt.Sprintf("category %s has no selection", e.FirstUnanswered)
}

// Session owns the selection mapping for one visitor.
//
// Invariants:
//   - At most one selected card per category.
//   - Replacing a selection clears the prior card first; the category is
//     never observably in a two-card state.
//   - Selections are only cleared by explicit replacement or Reset.
//
// Each category independently moves Unanswered -> Answered(card), with a
// replace self-transition Answered(a) -> Answered(b) and no way back to
// Unanswered short of a full Reset.
//
// A Session is single-writer by contract: all mutations happen synchronously
// on one request/event at a time, so it carries no lock.
type Session struct {
	order      []id.CategoryID
	positions  map[id.CategoryID]int
	selections map[id.CategoryID]id.CardID
}

// NewSession creates an empty session against the authoritative category
// order. Duplicate IDs keep their first position.
func NewSession(ordered []id.CategoryID) *Session {
	positions := make(map[id.CategoryID]int, len(ordered))
	order := make([]id.CategoryID, 0, len(ordered))
	for _, categoryID := range ordered {
		if _, seen := positions[categoryID]; seen {
			continue
		}
		positions[categoryID] = len(order)
		order = append(order, categoryID)
	}
	return &Session{
		order:      order,
		positions:  positions,
		selections: make(map[id.CategoryID]id.CardID, len(order)),
	}
}

// Select records cardID as the choice for categoryID, replacing any prior
// choice. Selecting the already-selected card is a no-op, guarding against
// duplicate click delivery. The caller is responsible for ensuring the card
// belongs to the category; the session only validates the category itself.
func (s *Session) Select(categoryID id.CategoryID, cardID id.CardID) error {
	if _, ok := s.positions[categoryID]; !ok {
		return &InvalidCategoryError{Category: categoryID}
	}
	if current, ok := s.selections[categoryID]; ok && current == cardID {
		return nil
	}
	// Replacement is a single map write: the old entry is gone the moment
	// the new one lands, so no intermediate two-card state exists.
	s.selections[categoryID] = cardID
	return nil
}

// Selected returns the current choice for a category, if any.
func (s *Session) Selected(categoryID id.CategoryID) (id.CardID, bool) {
	cardID, ok := s.selections[categoryID]
	return cardID, ok
}

// FirstUnanswered returns the first category in catalog order with no
// selection. ok is false when every category is answered.
func (s *Session) FirstUnanswered() (categoryID id.CategoryID, ok bool) {
	for _, c := range s.order {
		if _, answered := s.selections[c]; !answered {
			return c, true
		}
	}
	return id.CategoryID{}, false
}

// NextUnansweredAfter returns the first unanswered category strictly after
// the reference category's position. ok is false when no later category is
// unanswered or the reference is unknown; the caller decides the fallback
// (typically the submission prompt).
//
// The scan is forward-only: a gap before the reference is deliberately not
// reported here. Only FirstUnanswered surfaces the globally-first gap, at
// submission time.
func (s *Session) NextUnansweredAfter(categoryID id.CategoryID) (next id.CategoryID, ok bool) {
	pos, known := s.positions[categoryID]
	if !known {
		return id.CategoryID{}, false
	}
	for _, c := range s.order[pos+1:] {
		if _, answered := s.selections[c]; !answered {
			return c, true
		}
	}
	return id.CategoryID{}, false
}

// IsComplete reports whether every catalog category has a selection.
func (s *Session) IsComplete() bool {
	return len(s.selections) == len(s.order)
}

// Size returns the number of answered categories.
func (s *Session) Size() int {
	return len(s.selections)
}

// ToSubmission renders the selections as ordered (category, card) pairs in
// catalog order. The returned slice is a snapshot: later Select or Reset
// calls do not mutate it. Returns IncompleteSelectionError when any category
// is unanswered.
func (s *Session) ToSubmission() ([]Selection, error) {
	if first, missing := s.FirstUnanswered(); missing {
		return nil, &IncompleteSelectionError{FirstUnanswered: first}
	}
	out := make([]Selection, 0, len(s.order))
	for _, c := range s.order {
		out = append(out, Selection{Category: c, Card: s.selections[c]})
	}
	return out, nil
}

// Reset clears every selection, returning the whole session to Unanswered.
// Called only after a confirmed successful submission, never implicitly.
func (s *Session) Reset() {
	s.selections = make(map[id.CategoryID]id.CardID, len(s.order))
}
