package settlement

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/localsupportslocal/backend/internal/middleware"
	"github.com/localsupportslocal/backend/internal/models"
)

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type recordRequest struct {
	PeriodID  string `json:"report_id"`
	Method    string `json:"payment_method"`
	Reference string `json:"reference"`
}

type shareRequest struct {
	Shared bool `json:"shared"`
}

type settlementResponse struct {
	ID          string  `json:"id"`
	PeriodID    string  `json:"report_id"`
	Amount      float64 `json:"amount"`
	Method      string  `json:"payment_method,omitempty"`
	Reference   string  `json:"reference,omitempty"`
	Status      string  `json:"status"`
	Shared      bool    `json:"shared"`
	PeriodLabel string  `json:"period_label,omitempty"`
	PaidAt      string  `json:"paid_at"`
}

// Record handles POST /payments.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	periodID, err := uuid.Parse(req.PeriodID)
	if err != nil {
		http.Error(w, `{"error":"invalid report id"}`, http.StatusBadRequest)
		return
	}
	settlement, err := h.svc.Record(r.Context(), realtor.ID, periodID, req.Method, req.Reference)
	if err != nil {
		switch {
		// A period owned by someone else is indistinguishable from a missing
		// one so the endpoint does not leak other realtors' data.
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
			http.Error(w, `{"error":"report not found"}`, http.StatusNotFound)
		case errors.Is(err, ErrAlreadySettled):
			http.Error(w, `{"error":"report is already settled"}`, http.StatusConflict)
		default:
			h.log.Error("record settlement failed", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"payment": toResponse(settlement, "")})
}

// History handles GET /payments/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	entries, err := h.svc.History(r.Context(), realtor.ID)
	if err != nil {
		h.log.Error("settlement history failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	out := make([]settlementResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toResponse(e.Settlement, models.PeriodLabel(e.Month, e.Year)))
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": out})
}

// Unsettled handles GET /payments/unsettled.
func (h *Handler) Unsettled(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	reports, err := h.svc.Unsettled(r.Context(), realtor.ID)
	if err != nil {
		h.log.Error("unsettled periods failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(reports))
	for _, p := range reports {
		out = append(out, map[string]any{
			"report_id":       p.ID.String(),
			"period_label":    p.Label(),
			"donation_amount": models.Dollars(p.ObligationCents),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"unsettled": out})
}

// Stats handles GET /payments/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	stats, err := h.svc.Stats(r.Context(), realtor.ID)
	if err != nil {
		h.log.Error("settlement stats failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	monthly := make([]map[string]any, 0, len(stats.Monthly))
	for _, m := range stats.Monthly {
		monthly = append(monthly, map[string]any{
			"period_label": models.PeriodLabel(m.Month, m.Year),
			"amount":       models.Dollars(m.AmountCents),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_donated": models.Dollars(stats.TotalCents),
		"year_to_date":  models.Dollars(stats.YearToDateCents),
		"payment_count": stats.Count,
		"monthly":       monthly,
	})
}

// SetShared handles PUT /payments/{id}/share.
func (h *Handler) SetShared(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	settlementID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid payment id"}`, http.StatusBadRequest)
		return
	}
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.svc.SetShared(r.Context(), realtor.ID, settlementID, req.Shared); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, `{"error":"payment not found"}`, http.StatusNotFound)
			return
		}
		h.log.Error("share payment failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shared": req.Shared})
}

func toResponse(s *models.Settlement, label string) settlementResponse {
	return settlementResponse{
		ID:          s.ID.String(),
		PeriodID:    s.PeriodID.String(),
		Amount:      models.Dollars(s.AmountCents),
		Method:      s.Method,
		Reference:   s.Reference,
		Status:      s.Status,
		Shared:      s.Shared,
		PeriodLabel: label,
		PaidAt:      s.PaidAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
