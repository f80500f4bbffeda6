package period

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

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

type submitRequest struct {
	Month       *int `json:"month"`
	Year        *int `json:"year"`
	ClosedCount int  `json:"transaction_count"`
}

type reportResponse struct {
	ID          string  `json:"id"`
	Month       int     `json:"month"`
	Year        int     `json:"year"`
	PeriodLabel string  `json:"period_label"`
	ClosedCount int     `json:"transaction_count"`
	Obligation  float64 `json:"donation_amount"`
	Status      string  `json:"status"`
	SubmittedAt string  `json:"submitted_at"`
}

// Submit handles POST /transactions. Month and year are optional; when
// omitted the report is for the previous calendar month.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	report, err := h.svc.Submit(r.Context(), realtor.ID, SubmitInput{
		Month:       req.Month,
		Year:        req.Year,
		ClosedCount: req.ClosedCount,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrBadMonth), errors.Is(err, ErrBadYear), errors.Is(err, ErrNegativeCount):
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		case errors.Is(err, ErrDuplicatePeriod):
			http.Error(w, `{"error":"report already submitted for this period"}`, http.StatusConflict)
		default:
			h.log.Error("submit period failed", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"report": toResponse(report)})
}

// History handles GET /transactions/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	reports, err := h.svc.History(r.Context(), realtor.ID)
	if err != nil {
		h.log.Error("period history failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": toResponses(reports)})
}

// Pending handles GET /transactions/pending.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	reports, unreported, err := h.svc.Pending(r.Context(), realtor.ID)
	if err != nil {
		h.log.Error("pending periods failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	resp := map[string]any{"reports": toResponses(reports)}
	if unreported != nil {
		resp["unreported_period"] = map[string]any{
			"month":        unreported.Month,
			"year":         unreported.Year,
			"period_label": unreported.Label(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toResponse(p *models.PeriodReport) reportResponse {
	return reportResponse{
		ID:          p.ID.String(),
		Month:       p.Month,
		Year:        p.Year,
		PeriodLabel: p.Label(),
		ClosedCount: p.ClosedCount,
		Obligation:  models.Dollars(p.ObligationCents),
		Status:      p.Status,
		SubmittedAt: p.SubmittedAt.Format(time.RFC3339),
	}
}

func toResponses(reports []*models.PeriodReport) []reportResponse {
	out := make([]reportResponse, 0, len(reports))
	for _, p := range reports {
		out = append(out, toResponse(p))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
