// Package httptransport wires the HTTP surface: the public voting API, the
// admin API behind JWT auth, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	adminservice "votedeck/internal/admin/service"
	ballotservice "votedeck/internal/ballot/service"
	catalogservice "votedeck/internal/catalog/service"
	"votedeck/internal/platform/middleware"
	"votedeck/internal/settings"
	"votedeck/internal/stats"
	"votedeck/internal/upload"
	audit "votedeck/pkg/platform/audit"
)

// AuditReader exposes recent audit events to the admin API.
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Handler is the thin HTTP layer. It delegates to domain services without
// embedding business logic so transport concerns remain isolated.
type Handler struct {
	catalog  *catalogservice.Service
	ballots  *ballotservice.Service
	admins   *adminservice.Service
	settings *settings.Service
	stats    *stats.Service
	uploads  *upload.Service
	auditLog AuditReader
	logger   *slog.Logger
}

// Deps carries everything the router needs.
type Deps struct {
	Catalog  *catalogservice.Service
	Ballots  *ballotservice.Service
	Admins   *adminservice.Service
	Settings *settings.Service
	Stats    *stats.Service
	Uploads  *upload.Service
	AuditLog AuditReader
	Tokens   middleware.TokenValidator
	Metrics  middleware.HTTPMetrics

	// MetricsHandler serves the Prometheus scrape endpoint.
	MetricsHandler http.Handler

	// SubmitLimiter throttles public ballot submission by client IP.
	SubmitLimiter middleware.Limiter

	Logger *slog.Logger
}

// NewRouter builds the full route tree with its middleware chains.
func NewRouter(deps Deps) http.Handler {
	h := &Handler{
		catalog:  deps.Catalog,
		ballots:  deps.Ballots,
		admins:   deps.Admins,
		settings: deps.Settings,
		stats:    deps.Stats,
		uploads:  deps.Uploads,
		auditLog: deps.AuditLog,
		logger:   deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger, deps.Metrics))

	r.Get("/healthz", h.handleHealth)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	if deps.Uploads != nil {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.Uploads.Dir())))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		// Public voting surface.
		r.Get("/categories", h.handleListCategories)
		r.Get("/status", h.handleStatus)
		r.Post("/vote/progress", h.handleVoteProgress)
		r.Group(func(r chi.Router) {
			if deps.SubmitLimiter != nil {
				r.Use(middleware.RateLimit(deps.SubmitLimiter, deps.Logger))
			}
			r.Post("/vote", h.handleSubmitVote)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/token", h.handleLogin)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(deps.Tokens, deps.Logger))

				// Read surface, open to both roles.
				r.Get("/dashboard-stats", h.handleDashboardStats)
				r.Get("/categories", h.handleAdminListCategories)
				r.Get("/categories/{categoryID}/dependencies", h.handleCategoryDependencies)
				r.Get("/cards/{cardID}/dependencies", h.handleCardDependencies)
				r.Get("/users", h.handleSearchVoters)
				r.Get("/settings", h.handleGetSettings)
				r.Get("/accounts", h.handleListAdmins)
				r.Get("/audit", h.handleListAudit)

				// Any admin may rotate their own password.
				r.Put("/password", h.handleChangePassword)

				// Mutations need the full admin role.
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireWriteRole)

					r.Post("/categories", h.handleCreateCategory)
					r.Put("/categories/reorder", h.handleReorderCategories)
					r.Put("/categories/{categoryID}", h.handleRenameCategory)
					r.Delete("/categories/{categoryID}", h.handleDeleteCategory)

					r.Post("/cards", h.handleCreateCard)
					r.Put("/cards/{cardID}", h.handleUpdateCard)
					r.Delete("/cards/{cardID}", h.handleDeleteCard)

					r.Delete("/users/{voterID}", h.handleDeleteVoter)
					r.Put("/settings", h.handleUpdateSettings)

					r.Post("/accounts", h.handleCreateAdmin)
					r.Put("/accounts/{adminID}", h.handleUpdateAdminRole)
					r.Delete("/accounts/{adminID}", h.handleDeleteAdmin)

					r.Post("/upload", h.handleUpload)
				})
			})
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
