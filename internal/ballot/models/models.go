// Package models holds the ballot aggregates: the voter identity and the
// votes a submission records.
package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/asaskevich/govalidator"

	id "votedeck/pkg/domain"
	dErrors "votedeck/pkg/domain-errors"
)

// Voter identifies one submission. Email and phone are both unique across
// all voters; matching either one marks a repeat submission.
type Voter struct {
	ID        id.VoterID `json:"id"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewVoter validates identity fields. Email is lowercased; phone keeps an
// optional leading + and digits only, 10 to 15 of them.
func NewVoter(voterID id.VoterID, fullName, email, phone string, now time.Time) (*Voter, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "full name is required")
	}
	if len(fullName) > 128 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "full name must be 128 characters or less")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !govalidator.IsEmail(email) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a valid email address is required")
	}

	normalizedPhone, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	return &Voter{
		ID:        voterID,
		FullName:  fullName,
		Email:     email,
		Phone:     normalizedPhone,
		CreatedAt: now,
	}, nil
}

// NormalizePhone strips separators and validates length. Formatting
// characters are accepted on input so "+1 (555) 123-4567" and
// "+15551234567" are the same phone for duplicate detection.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// separator, dropped
		default:
			return "", dErrors.New(dErrors.CodeInvalidInput, "phone number contains invalid characters")
		}
	}

	digits := strings.TrimPrefix(b.String(), "+")
	if len(digits) < 10 || len(digits) > 15 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "phone number must have 10 to 15 digits")
	}
	return b.String(), nil
}

// Vote is one recorded selection: this voter chose this card in this
// category. A voter has exactly one vote per category.
type Vote struct {
	VoterID    id.VoterID    `json:"voter_id"`
	CategoryID id.CategoryID `json:"category_id"`
	CardID     id.CardID     `json:"card_id"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Submission is a validated, complete ballot ready to persist atomically.
type Submission struct {
	Voter *Voter
	Votes []Vote
}
