package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"votedeck/internal/admin/models"
	"votedeck/internal/admin/store/memory"
	"votedeck/internal/jwttoken"
	id "votedeck/pkg/domain"
	dErrors "votedeck/pkg/domain-errors"
	audit "votedeck/pkg/platform/audit"
	"votedeck/pkg/requestcontext"
)

type capturingPublisher struct {
	events []audit.Event
}

func (c *capturingPublisher) Emit(_ context.Context, event audit.Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *capturingPublisher) last() audit.Event {
	if len(c.events) == 0 {
		return audit.Event{}
	}
	return c.events[len(c.events)-1]
}

type AdminServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.InMemoryStore
	tokens  *jwttoken.Service
	auditP  *capturingPublisher
	service *Service
}

func (s *AdminServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.store = memory.NewInMemoryStore()
	s.auditP = &capturingPublisher{}

	var err error
	s.tokens, err = jwttoken.New("0123456789abcdef0123456789abcdef")
	s.Require().NoError(err)

	s.service, err = New(s.store, s.tokens, WithAuditPublisher(s.auditP))
	s.Require().NoError(err)
}

func TestAdminServiceSuite(t *testing.T) {
	suite.Run(t, new(AdminServiceSuite))
}

func (s *AdminServiceSuite) mustCreate(username string, role models.Role) *models.Admin {
	admin, err := s.service.Create(s.ctx, username, "hunter22", role)
	s.Require().NoError(err)
	return admin
}

func (s *AdminServiceSuite) TestLogin() {
	s.mustCreate("root", models.RoleAdmin)

	s.Run("valid credentials issue a token", func() {
		// Token validity is checked against the real clock.
		ctx := context.Background()
		result, err := s.service.Login(ctx, "root", "hunter22")
		s.Require().NoError(err)
		s.Equal("bearer", result.TokenType)
		s.Equal("root", result.Admin.Username)

		claims, err := s.tokens.Validate(result.Token)
		s.Require().NoError(err)
		s.Equal("root", claims.Username)
		s.Equal("admin", claims.Role)
	})

	s.Run("wrong password and unknown user look identical", func() {
		_, err1 := s.service.Login(s.ctx, "root", "wrong")
		_, err2 := s.service.Login(s.ctx, "ghost", "hunter22")

		s.True(dErrors.HasCode(err1, dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(err2, dErrors.CodeUnauthorized))
		s.Equal(err1.Error(), err2.Error())
		s.Equal(audit.ActionAdminLoginFailed, s.auditP.last().Action)
	})
}

func (s *AdminServiceSuite) TestCreate() {
	s.Run("rejects duplicate usernames", func() {
		s.mustCreate("root", models.RoleAdmin)
		_, err := s.service.Create(s.ctx, "ROOT", "hunter22", models.RoleAdmin)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects short passwords", func() {
		_, err := s.service.Create(s.ctx, "short", "12345", models.RoleAdmin)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects bad usernames", func() {
		_, err := s.service.Create(s.ctx, "no spaces here", "hunter22", models.RoleAdmin)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *AdminServiceSuite) TestChangePassword() {
	admin := s.mustCreate("root", models.RoleAdmin)

	s.Run("mismatched confirmation", func() {
		err := s.service.ChangePassword(s.ctx, admin.ID, "hunter22", "newpass1", "newpass2")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("wrong current password", func() {
		err := s.service.ChangePassword(s.ctx, admin.ID, "nope", "newpass1", "newpass1")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("successful change invalidates the old password", func() {
		err := s.service.ChangePassword(s.ctx, admin.ID, "hunter22", "newpass1", "newpass1")
		s.Require().NoError(err)

		s.Error(s.service.VerifyPassword(s.ctx, admin.ID, "hunter22"))
		s.NoError(s.service.VerifyPassword(s.ctx, admin.ID, "newpass1"))
	})
}

func (s *AdminServiceSuite) TestDelete() {
	root := s.mustCreate("root", models.RoleAdmin)

	s.Run("self-deletion is refused", func() {
		err := s.service.Delete(s.ctx, root.ID, root.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("the last full admin cannot be deleted", func() {
		viewer := s.mustCreate("viewer", models.RoleViewer)
		err := s.service.Delete(s.ctx, viewer.ID, root.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("with a second admin the delete goes through", func() {
		second := s.mustCreate("second", models.RoleAdmin)
		err := s.service.Delete(s.ctx, root.ID, second.ID)
		s.Require().NoError(err)
		s.Equal(audit.ActionAdminDeleted, s.auditP.last().Action)
	})
}

func (s *AdminServiceSuite) TestUpdateRole() {
	root := s.mustCreate("root", models.RoleAdmin)

	s.Run("the last full admin cannot be demoted", func() {
		_, err := s.service.UpdateRole(s.ctx, root.ID, models.RoleViewer)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("demotion works with another admin present", func() {
		s.mustCreate("second", models.RoleAdmin)
		updated, err := s.service.UpdateRole(s.ctx, root.ID, models.RoleViewer)
		s.Require().NoError(err)
		s.Equal(models.RoleViewer, updated.Role)
	})

	s.Run("unknown admin is not found", func() {
		_, err := s.service.UpdateRole(s.ctx, id.AdminID(uuid.New()), models.RoleAdmin)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AdminServiceSuite) TestEnsureBootstrapAdmin() {
	s.Run("creates the first account", func() {
		err := s.service.EnsureBootstrapAdmin(s.ctx, "root", "hunter22")
		s.Require().NoError(err)

		admins, err := s.service.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(admins, 1)
		s.Equal(models.RoleAdmin, admins[0].Role)
	})

	s.Run("leaves a populated store untouched", func() {
		err := s.service.EnsureBootstrapAdmin(s.ctx, "other", "hunter22")
		s.Require().NoError(err)

		admins, err := s.service.List(s.ctx)
		s.Require().NoError(err)
		s.Len(admins, 1)
	})
}
