package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	adminmodels "votedeck/internal/admin/models"
	catalogmodels "votedeck/internal/catalog/models"
	"votedeck/internal/platform/middleware"
	"votedeck/internal/settings"
	id "votedeck/pkg/domain"
	dErrors "votedeck/pkg/domain-errors"
	"votedeck/pkg/platform/httputil"
)

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	username, password, err := loginCredentials(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.admins.Login(r.Context(), username, password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": result.Token,
		"token_type":   result.TokenType,
		"expires_in":   int(result.ExpiresIn.Seconds()),
		"admin": map[string]any{
			"id":       result.Admin.ID,
			"username": result.Admin.Username,
			"role":     result.Admin.Role,
		},
	})
}

// loginCredentials reads the token endpoint's form credentials. A JSON body
// is accepted as well for clients that do not speak the form flow.
func loginCredentials(r *http.Request) (username, password string, err error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var input struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return "", "", dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON")
		}
		return input.Username, input.Password, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", "", dErrors.New(dErrors.CodeBadRequest, "request body must be form encoded")
	}
	return r.PostFormValue("username"), r.PostFormValue("password"), nil
}

func (h *Handler) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.stats.Dashboard(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) handleAdminListCategories(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"categories": catalog.Categories,
	})
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), input.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, category)
}

func (h *Handler) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := id.ParseCategoryID(chi.URLParam(r, "categoryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	category, err := h.catalog.RenameCategory(r.Context(), categoryID, input.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, category)
}

func (h *Handler) handleReorderCategories(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CategoryIDs []string `json:"category_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	ids := make([]id.CategoryID, 0, len(input.CategoryIDs))
	for _, raw := range input.CategoryIDs {
		categoryID, err := id.ParseCategoryID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		ids = append(ids, categoryID)
	}

	if err := h.catalog.Reorder(r.Context(), ids); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCategoryDependencies(w http.ResponseWriter, r *http.Request) {
	categoryID, err := id.ParseCategoryID(chi.URLParam(r, "categoryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	deps, err := h.catalog.CategoryDependencies(r.Context(), categoryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deps)
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := id.ParseCategoryID(chi.URLParam(r, "categoryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	confirmed, err := h.confirmWithPassword(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), categoryID, confirmed); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.stats.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CategoryID string `json:"category_id"`
		Title      string `json:"title"`
		Subtitle   string `json:"subtitle"`
		ImageURL   string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	categoryID, err := id.ParseCategoryID(input.CategoryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	card, err := h.catalog.CreateCard(r.Context(), categoryID, input.Title, input.Subtitle, input.ImageURL)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, card)
}

func (h *Handler) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := id.ParseCardID(chi.URLParam(r, "cardID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var input struct {
		Title    string  `json:"title"`
		Subtitle *string `json:"subtitle"`
		ImageURL *string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	card, err := h.catalog.UpdateCard(r.Context(), cardID, catalogmodels.CardUpdate{
		Title:    input.Title,
		Subtitle: input.Subtitle,
		ImageURL: input.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) handleCardDependencies(w http.ResponseWriter, r *http.Request) {
	cardID, err := id.ParseCardID(chi.URLParam(r, "cardID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	deps, err := h.catalog.CardDependencies(r.Context(), cardID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deps)
}

func (h *Handler) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := id.ParseCardID(chi.URLParam(r, "cardID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	confirmed, err := h.confirmWithPassword(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.catalog.DeleteCard(r.Context(), cardID, confirmed); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.stats.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearchVoters(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, err := h.ballots.SearchVoters(r.Context(), r.URL.Query().Get("q"), page, perPage)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDeleteVoter(w http.ResponseWriter, r *http.Request) {
	voterID, err := id.ParseVoterID(chi.URLParam(r, "voterID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	confirmed, err := h.confirmWithPassword(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.ballots.DeleteVoter(r.Context(), voterID, confirmed); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.stats.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	current, err := h.settings.Get(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, current)
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var input settings.Update
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	updated, err := h.settings.Apply(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admins.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"admins": admins})
}

func (h *Handler) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	role, err := adminmodels.ParseRole(input.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	admin, err := h.admins.Create(r.Context(), input.Username, input.Password, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, admin)
}

func (h *Handler) handleUpdateAdminRole(w http.ResponseWriter, r *http.Request) {
	adminID, err := id.ParseAdminID(chi.URLParam(r, "adminID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var input struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	role, err := adminmodels.ParseRole(input.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	admin, err := h.admins.UpdateRole(r.Context(), adminID, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, admin)
}

func (h *Handler) handleDeleteAdmin(w http.ResponseWriter, r *http.Request) {
	adminID, err := id.ParseAdminID(chi.URLParam(r, "adminID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	actorID, err := id.ParseAdminID(middleware.AdminID(r.Context()))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid session"))
		return
	}

	if err := h.admins.Delete(r.Context(), actorID, adminID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	adminID, err := id.ParseAdminID(middleware.AdminID(r.Context()))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid session"))
		return
	}

	if err := h.admins.ChangePassword(r.Context(), adminID, input.CurrentPassword, input.NewPassword, input.ConfirmPassword); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.auditLog.ListRecent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// confirmWithPassword implements the dirty-delete contract: a delete of an
// entity with dependent data must carry the acting admin's password. An
// absent or empty password is passed through as unconfirmed so the service
// can decide whether confirmation was needed at all.
func (h *Handler) confirmWithPassword(r *http.Request) (bool, error) {
	var input struct {
		Password string `json:"password"`
	}
	// Delete requests may legitimately have no body.
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Password == "" {
		return false, nil
	}

	adminID, err := id.ParseAdminID(middleware.AdminID(r.Context()))
	if err != nil {
		return false, dErrors.New(dErrors.CodeUnauthorized, "invalid session")
	}
	if err := h.admins.VerifyPassword(r.Context(), adminID, input.Password); err != nil {
		return false, err
	}
	return true, nil
}
