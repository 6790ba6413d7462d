// Package service manages admin accounts: login, account CRUD, password
// changes, and the password re-verification used by dirty deletes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"votedeck/internal/admin/models"
	id "votedeck/pkg/domain"
	dErrors "votedeck/pkg/domain-errors"
	audit "votedeck/pkg/platform/audit"
	"votedeck/pkg/platform/sentinel"
	"votedeck/pkg/requestcontext"
)

// Store is the admin persistence boundary.
type Store interface {
	Create(ctx context.Context, admin *models.Admin) error
	FindByID(ctx context.Context, adminID id.AdminID) (*models.Admin, error)
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	List(ctx context.Context) ([]*models.Admin, error)
	Update(ctx context.Context, admin *models.Admin) error
	Delete(ctx context.Context, adminID id.AdminID) error
	CountByRole(ctx context.Context, role models.Role) (int, error)
}

// TokenIssuer abstracts the JWT service for tests.
type TokenIssuer interface {
	Generate(adminID id.AdminID, username, role string, now time.Time) (string, error)
	TTL() time.Duration
}

type Service struct {
	store  Store
	tokens TokenIssuer
	auditP audit.Publisher
	logger *slog.Logger
}

type Option func(*Service)

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.auditP = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("admin store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	s := &Service{
		store:  store,
		tokens: tokens,
		auditP: audit.Discard{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoginResult carries the issued token and its lifetime.
type LoginResult struct {
	Token     string        `json:"access_token"`
	TokenType string        `json:"token_type"`
	ExpiresIn time.Duration `json:"-"`
	Admin     *models.Admin `json:"admin"`
}

// Login verifies credentials and issues a session token. Unknown username
// and wrong password produce the same error.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	admin, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emitLoginFailure(ctx, username)
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up admin")
	}
	if !admin.VerifyPassword(password) {
		s.emitLoginFailure(ctx, username)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
	}

	token, err := s.tokens.Generate(admin.ID, admin.Username, string(admin.Role), requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.emit(ctx, audit.Event{
		Action: audit.ActionAdminLogin,
		Actor:  admin.Username,
	})
	return &LoginResult{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: s.tokens.TTL(),
		Admin:     admin,
	}, nil
}

// VerifyPassword re-checks the acting admin's password. Dirty deletes call
// this before passing confirmed=true downstream.
func (s *Service) VerifyPassword(ctx context.Context, adminID id.AdminID, password string) error {
	admin, err := s.store.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "unknown admin")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up admin")
	}
	if !admin.VerifyPassword(password) {
		return dErrors.New(dErrors.CodeForbidden, "password verification failed")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, username, password string, role models.Role) (*models.Admin, error) {
	admin, err := models.NewAdmin(id.AdminID(uuid.New()), username, password, role, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, admin); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "username is already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionAdminCreated,
		Subject: admin.Username,
		Actor:   requestcontext.Actor(ctx),
	})
	return admin, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Admin, error) {
	admins, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list admins")
	}
	return admins, nil
}

// UpdateRole changes an account's role. The last full admin cannot be
// demoted; the system must always keep one account able to write.
func (s *Service) UpdateRole(ctx context.Context, adminID id.AdminID, role models.Role) (*models.Admin, error) {
	admin, err := s.findAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}

	if admin.Role == models.RoleAdmin && role != models.RoleAdmin {
		if err := s.requireAnotherFullAdmin(ctx); err != nil {
			return nil, err
		}
	}

	admin.SetRole(role, requestcontext.Now(ctx))
	if err := s.store.Update(ctx, admin); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update admin")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionAdminUpdated,
		Subject: admin.Username,
		Actor:   requestcontext.Actor(ctx),
	})
	return admin, nil
}

// ChangePassword sets a new password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, adminID id.AdminID, current, next, confirm string) error {
	if next != confirm {
		return dErrors.New(dErrors.CodeInvalidInput, "password confirmation does not match")
	}

	admin, err := s.findAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	if !admin.VerifyPassword(current) {
		return dErrors.New(dErrors.CodeForbidden, "current password is incorrect")
	}
	if err := admin.SetPassword(next, requestcontext.Now(ctx)); err != nil {
		return err
	}
	if err := s.store.Update(ctx, admin); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update admin")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionPasswordChanged,
		Subject: admin.Username,
		Actor:   requestcontext.Actor(ctx),
	})
	return nil
}

// Delete removes an account. Self-deletion and deleting the last full
// admin are both refused.
func (s *Service) Delete(ctx context.Context, actorID, adminID id.AdminID) error {
	if actorID == adminID {
		return dErrors.New(dErrors.CodeForbidden, "an admin cannot delete their own account")
	}

	admin, err := s.findAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.Role == models.RoleAdmin {
		if err := s.requireAnotherFullAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.store.Delete(ctx, adminID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete admin")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionAdminDeleted,
		Subject: admin.Username,
		Actor:   requestcontext.Actor(ctx),
	})
	return nil
}

// EnsureBootstrapAdmin creates the initial account when no admins exist.
// Called once at startup; a populated store is left untouched.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	admins, err := s.store.List(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list admins")
	}
	if len(admins) > 0 {
		return nil
	}

	admin, err := models.NewAdmin(id.AdminID(uuid.New()), username, password, models.RoleAdmin, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := s.store.Create(ctx, admin); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create bootstrap admin")
	}
	s.logger.Info("bootstrap admin created", "username", username)
	return nil
}

func (s *Service) findAdmin(ctx context.Context, adminID id.AdminID) (*models.Admin, error) {
	admin, err := s.store.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "admin not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find admin")
	}
	return admin, nil
}

func (s *Service) requireAnotherFullAdmin(ctx context.Context) error {
	count, err := s.store.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count admins")
	}
	if count <= 1 {
		return dErrors.New(dErrors.CodeInvariantViolation, "at least one admin account must remain")
	}
	return nil
}

func (s *Service) emitLoginFailure(ctx context.Context, username string) {
	s.emit(ctx, audit.Event{
		Action:  audit.ActionAdminLoginFailed,
		Subject: username,
		Reason:  "bad credentials",
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if err := s.auditP.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
