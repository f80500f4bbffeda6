package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/localsupportslocal/backend/internal/middleware"
	"github.com/localsupportslocal/backend/internal/models"
	"github.com/localsupportslocal/backend/internal/realtor"
)

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type decisionRequest struct {
	Reason string `json:"reason"`
}

// ListPending handles GET /admin/realtors/pending.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor := middleware.RealtorFromCtx(r.Context())
	realtors, err := h.svc.ListPending(r.Context(), actor.ID)
	if err != nil {
		h.writeError(w, err, "list pending realtors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"realtors": toResponses(realtors)})
}

// List handles GET /admin/realtors?status=pending|approved|denied.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.RealtorFromCtx(r.Context())
	status := r.URL.Query().Get("status")
	realtors, err := h.svc.List(r.Context(), actor.ID, status)
	if err != nil {
		h.writeError(w, err, "list realtors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"realtors": toResponses(realtors)})
}

// Approve handles POST /admin/realtors/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, DecisionApprove)
}

// Deny handles POST /admin/realtors/{id}/deny.
func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, DecisionDeny)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, decision string) {
	actor := middleware.RealtorFromCtx(r.Context())
	targetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid realtor id"}`, http.StatusBadRequest)
		return
	}
	var req decisionRequest
	if r.Body != nil {
		// Reason is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	updated, err := h.svc.Decide(r.Context(), actor.ID, targetID, decision, req.Reason)
	if err != nil {
		h.writeError(w, err, "decide admission")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"realtor": realtor.ToResponse(updated)})
}

// SendReminders handles POST /admin/reminders.
func (h *Handler) SendReminders(w http.ResponseWriter, r *http.Request) {
	actor := middleware.RealtorFromCtx(r.Context())
	count, err := h.svc.SendMonthlyReminders(r.Context(), actor.ID)
	if err != nil {
		h.writeError(w, err, "send monthly reminders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders_sent": count})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrForbidden):
		http.Error(w, `{"error":"admin access required"}`, http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, `{"error":"realtor not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrNotPending):
		http.Error(w, `{"error":"realtor is not pending approval"}`, http.StatusConflict)
	case errors.Is(err, ErrBadDecision):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
	default:
		h.log.Error(op+" failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func toResponses(realtors []*models.Realtor) []realtor.RealtorResponse {
	out := make([]realtor.RealtorResponse, 0, len(realtors))
	for _, m := range realtors {
		out = append(out, realtor.ToResponse(m))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
