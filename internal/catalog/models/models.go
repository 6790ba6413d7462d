// Package models holds the catalog aggregates: categories and the cards
// visitors choose between.
package models

import (
	"strings"
	"time"

	id "votedeck/pkg/domain"
	dErrors "votedeck/pkg/domain-errors"
)

// Category groups a set of selectable cards. Exactly one card may be chosen
// per category when voting.
//
// Invariants:
//   - Name is non-empty, at most 128 characters, unique case-insensitively.
//   - Order is the position in the public voting flow; the reorder operation
//     rewrites it for every category at once.
type Category struct {
	ID        id.CategoryID `json:"id"`
	Name      string        `json:"name"`
	Order     int           `json:"order"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func NewCategory(categoryID id.CategoryID, name string, order int, now time.Time) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "category name is required")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "category name must be 128 characters or less")
	}
	return &Category{
		ID:        categoryID,
		Name:      name,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Rename validates and applies a new name.
func (c *Category) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "category name is required")
	}
	if len(name) > 128 {
		return dErrors.New(dErrors.CodeInvalidInput, "category name must be 128 characters or less")
	}
	c.Name = name
	c.UpdatedAt = now
	return nil
}

// Card is one selectable option within a category. Display fields are opaque
// to the voting logic; the subtitle's "//" line-break convention belongs to
// the frontend.
type Card struct {
	ID         id.CardID     `json:"id"`
	CategoryID id.CategoryID `json:"category_id"`
	Title      string        `json:"title"`
	Subtitle   string        `json:"subtitle,omitempty"`
	ImageURL   string        `json:"image_url"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func NewCard(cardID id.CardID, categoryID id.CategoryID, title, subtitle, imageURL string, now time.Time) (*Card, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "card title is required")
	}
	if len(title) > 256 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "card title must be 256 characters or less")
	}
	if strings.TrimSpace(imageURL) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "card image_url is required")
	}
	if categoryID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "card category id is required")
	}
	return &Card{
		ID:         cardID,
		CategoryID: categoryID,
		Title:      title,
		Subtitle:   strings.TrimSpace(subtitle),
		ImageURL:   strings.TrimSpace(imageURL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CardUpdate carries the mutable card fields. Nil means "leave unchanged",
// matching the partial-update semantics of the admin API.
type CardUpdate struct {
	Title    string
	Subtitle *string
	ImageURL *string
}

// Apply validates and applies the update.
func (c *Card) Apply(update CardUpdate, now time.Time) error {
	title := strings.TrimSpace(update.Title)
	if title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "card title is required")
	}
	if len(title) > 256 {
		return dErrors.New(dErrors.CodeInvalidInput, "card title must be 256 characters or less")
	}
	c.Title = title
	if update.Subtitle != nil {
		c.Subtitle = strings.TrimSpace(*update.Subtitle)
	}
	if update.ImageURL != nil {
		img := strings.TrimSpace(*update.ImageURL)
		if img == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "card image_url must not be empty")
		}
		c.ImageURL = img
	}
	c.UpdatedAt = now
	return nil
}

// CategoryWithCards is the public catalog view: a category plus its cards.
type CategoryWithCards struct {
	Category
	Cards []*Card `json:"cards"`
}

// Catalog is an ordered snapshot of every category with its cards, as served
// to the public voting page and used to validate ballots.
type Catalog struct {
	Categories []*CategoryWithCards
}

// OrderedIDs returns category IDs in display order, the authoritative order
// for the voting session.
func (c *Catalog) OrderedIDs() []id.CategoryID {
	ids := make([]id.CategoryID, len(c.Categories))
	for i, cat := range c.Categories {
		ids[i] = cat.ID
	}
	return ids
}

// CardBelongs reports whether the card is one of the category's options.
// The voting session trusts its caller on card membership; this is where
// that trust is earned.
func (c *Catalog) CardBelongs(categoryID id.CategoryID, cardID id.CardID) bool {
	for _, cat := range c.Categories {
		if cat.ID != categoryID {
			continue
		}
		for _, card := range cat.Cards {
			if card.ID == cardID {
				return true
			}
		}
		return false
	}
	return false
}
