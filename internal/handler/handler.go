// Package handler exposes the campaign scheduler over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/salesloop-backend/internal/engine"
	appErrors "github.com/unclebandit/salesloop-backend/internal/errors"
	"github.com/unclebandit/salesloop-backend/internal/model"
	"github.com/unclebandit/salesloop-backend/internal/repository"
)

// Handler holds the dependencies for the HTTP surface.
type Handler struct {
	Campaigns repository.CampaignRepositoryInterface
	Steps     repository.StepRepositoryInterface
	Runner    *engine.Runner
	Approvals *engine.Approvals
	Enqueuer  *engine.Enqueuer
	Log       *zap.Logger
}

// Routes mounts everything on a fresh chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/campaigns", h.CreateCampaign)
	r.Get("/campaigns/{id}", h.GetCampaign)
	r.Put("/campaigns/{id}/status", h.UpdateCampaignStatus)
	r.Post("/campaigns/{id}/execute", h.ExecuteCampaign)
	r.Post("/campaigns/{id}/schedule", h.ScheduleCampaign)

	r.Get("/approvals", h.ListApprovals)
	r.Post("/steps/{id}/approve", h.ApproveStep)
	r.Post("/steps/{id}/reject", h.RejectStep)

	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Warn("response encoding failed", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var cnf *appErrors.ErrCampaignNotFound
	var snf *appErrors.ErrStepNotFound
	var val *appErrors.ErrValidation
	switch {
	case errors.As(err, &cnf), errors.As(err, &snf):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &val):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// CreateCampaign registers a new campaign in draft status.
func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name           string `json:"name"`
		WorkspaceID    string `json:"workspace_id"`
		SearchQuery    string `json:"search_query"`
		DeployedByUser bool   `json:"deployed_by_user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.Name == "" || body.WorkspaceID == "" {
		http.Error(w, "name and workspace_id are required", http.StatusBadRequest)
		return
	}

	campaign := &model.Campaign{
		Name:           body.Name,
		WorkspaceID:    body.WorkspaceID,
		SearchQuery:    body.SearchQuery,
		DeployedByUser: body.DeployedByUser,
		Status:         model.CampaignDraft,
	}
	if err := h.Campaigns.Create(r.Context(), campaign); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, campaign)
}

// GetCampaign returns a campaign with its per-status step counts.
func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := h.Campaigns.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	stats, err := h.Steps.GetStatusStats(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaign":   campaign,
		"step_stats": stats,
	})
}

// UpdateCampaignStatus moves a campaign through its lifecycle. Pausing is
// the operator backstop when a campaign keeps deferring on a broken target.
func (h *Handler) UpdateCampaignStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		Status model.CampaignStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !body.Status.Valid() {
		http.Error(w, "invalid status: "+string(body.Status), http.StatusBadRequest)
		return
	}

	if _, err := h.Campaigns.GetByID(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Campaigns.UpdateStatus(r.Context(), id, body.Status); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"campaign_id": id, "status": body.Status})
}

// ExecuteCampaign runs all due steps of the campaign right now.
func (h *Handler) ExecuteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		UserID        string `json:"user_id"`
		ForceApproval bool   `json:"force_approval"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	result, err := h.Runner.ExecuteCampaign(r.Context(), id, body.UserID, engine.Options{ForceApproval: body.ForceApproval})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ScheduleCampaign enqueues sequence steps for the given contacts.
func (h *Handler) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		ContactIDs []int64              `json:"contact_ids"`
		Templates  []model.StepTemplate `json:"templates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(body.ContactIDs) == 0 {
		http.Error(w, "contact_ids is required", http.StatusBadRequest)
		return
	}

	campaign, err := h.Campaigns.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	n, err := h.Enqueuer.ScheduleSteps(r.Context(), id, campaign.WorkspaceID, body.ContactIDs, body.Templates)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id": id,
		"scheduled":   n,
	})
}

// ListApprovals returns the unresolved approval queue for a workspace.
func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		http.Error(w, "workspace_id is required", http.StatusBadRequest)
		return
	}

	items, err := h.Approvals.List(r.Context(), workspaceID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  items,
		"count": len(items),
	})
}

// ApproveStep releases a parked step for execution on the next tick.
func (h *Handler) ApproveStep(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid step id", http.StatusBadRequest)
		return
	}

	var body struct {
		ApproverID string `json:"approver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.ApproverID == "" {
		http.Error(w, "approver_id is required", http.StatusBadRequest)
		return
	}

	if err := h.Approvals.Approve(r.Context(), id, body.ApproverID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"step_id": id, "status": "approved"})
}

// RejectStep cancels a parked step.
func (h *Handler) RejectStep(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid step id", http.StatusBadRequest)
		return
	}

	var body struct {
		RejectorID string `json:"rejector_id"`
		Reason     string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.RejectorID == "" {
		http.Error(w, "rejector_id is required", http.StatusBadRequest)
		return
	}

	if err := h.Approvals.Reject(r.Context(), id, body.RejectorID, body.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"step_id": id, "status": "rejected"})
}
