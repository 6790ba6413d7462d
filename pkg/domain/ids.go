// Package domain holds typed identifiers shared across services.
//
// Each entity gets its own uuid-backed type so a CardID can never be passed
// where a CategoryID is expected. Parse functions enforce the trust boundary
// invariant: IDs must be valid, non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "votedeck/pkg/domain-errors"
)

type (
	// CategoryID identifies a poll category.
	CategoryID uuid.UUID
	// CardID identifies a selectable card within a category.
	CardID uuid.UUID
	// VoterID identifies a visitor who submitted a ballot.
	VoterID uuid.UUID
	// AdminID identifies an admin account.
	AdminID uuid.UUID
)

func parse(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return u, nil
}

func ParseCategoryID(s string) (CategoryID, error) {
	u, err := parse(s, "category")
	return CategoryID(u), err
}

func ParseCardID(s string) (CardID, error) {
	u, err := parse(s, "card")
	return CardID(u), err
}

func ParseVoterID(s string) (VoterID, error) {
	u, err := parse(s, "voter")
	return VoterID(u), err
}

func ParseAdminID(s string) (AdminID, error) {
	u, err := parse(s, "admin")
	return AdminID(u), err
}

func (id CategoryID) String() string { return uuid.UUID(id).String() }
func (id CardID) String() string     { return uuid.UUID(id).String() }
func (id VoterID) String() string    { return uuid.UUID(id).String() }
func (id AdminID) String() string    { return uuid.UUID(id).String() }

func (id CategoryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CardID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id VoterID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AdminID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText implementations keep JSON payloads as plain UUID strings.

func (id CategoryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id CardID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id VoterID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id AdminID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }

func (id *CategoryID) UnmarshalText(b []byte) error {
	parsed, err := ParseCategoryID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CardID) UnmarshalText(b []byte) error {
	parsed, err := ParseCardID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *VoterID) UnmarshalText(b []byte) error {
	parsed, err := ParseVoterID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AdminID) UnmarshalText(b []byte) error {
	parsed, err := ParseAdminID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
