// Package models holds the admin account aggregate.
package models

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	id "votedeck/pkg/domain"
	dErrors "votedeck/pkg/domain-errors"
)

// Role controls what an admin may do. Viewers see everything but change
// nothing.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "view_admin"
)

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleViewer:
		return RoleViewer, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "role must be admin or view_admin")
	}
}

// CanWrite reports whether the role may mutate state.
func (r Role) CanWrite() bool {
	return r == RoleAdmin
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)

// Admin is a management account. Passwords are stored as bcrypt hashes and
// never leave this package in clear text.
type Admin struct {
	ID           id.AdminID `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func NewAdmin(adminID id.AdminID, username, password string, role Role, now time.Time) (*Admin, error) {
	username = strings.TrimSpace(username)
	if !usernameRe.MatchString(username) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "username must be 3 to 64 characters of letters, digits, dot, dash, or underscore")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	return &Admin{
		ID:           adminID,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// VerifyPassword checks a clear-text password against the stored hash.
func (a *Admin) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

// SetPassword validates and rehashes the password.
func (a *Admin) SetPassword(password string, now time.Time) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	a.UpdatedAt = now
	return nil
}

// SetRole changes the account role.
func (a *Admin) SetRole(role Role, now time.Time) {
	a.Role = role
	a.UpdatedAt = now
}

func hashPassword(password string) (string, error) {
	if len(password) < 6 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password must be at least 6 characters")
	}
	if len(password) > 72 {
		// bcrypt truncates beyond 72 bytes
		return "", dErrors.New(dErrors.CodeInvalidInput, "password must be at most 72 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return string(hash), nil
}
