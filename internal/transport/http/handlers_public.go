package httptransport

import (
	"encoding/json"
	"net/http"

	ballotservice "votedeck/internal/ballot/service"
	dErrors "votedeck/pkg/domain-errors"
	"votedeck/pkg/platform/httputil"
)

// handleListCategories serves the catalog the voting page renders, in
// display order.
func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"categories": catalog.Categories,
	})
}

// handleStatus tells the frontend whether voting is open and, when the
// poll-count flag is on, how many ballots are in.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	current, err := h.settings.Get(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body := map[string]any{
		"voting_enabled": current.VotingEnabled,
	}
	if current.ShowPollCount {
		dashboard, err := h.stats.Dashboard(r.Context())
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		body["total_voters"] = dashboard.TotalVoters
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

func (h *Handler) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Phone string `json:"phone"`
		} `json:"user"`
		Votes []ballotservice.SelectionInput `json:"votes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	voter, err := h.ballots.Submit(r.Context(), ballotservice.SubmitInput{
		FullName:   body.User.Name,
		Email:      body.User.Email,
		Phone:      body.User.Phone,
		Selections: body.Votes,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":      voter.ID,
		"message": "vote recorded",
	})
}

// handleVoteProgress answers "where should the voter go next" for a
// partially filled ballot.
func (h *Handler) handleVoteProgress(w http.ResponseWriter, r *http.Request) {
	var input ballotservice.ProgressInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	next, complete, err := h.ballots.Progress(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body := map[string]any{"complete": complete}
	if !complete {
		body["next_category_id"] = next
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}
