package grants

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/localsupportslocal/backend/internal/middleware"
	"github.com/localsupportslocal/backend/internal/models"
)

type Handler struct {
	svc      Service
	validate *validator.Validate
	log      *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), log: log}
}

type submitRequest struct {
	ApplicationType       string `json:"application_type" validate:"required,oneof=self someone_else"`
	ApplicantFirstName    string `json:"applicant_first_name" validate:"required"`
	ApplicantLastName     string `json:"applicant_last_name" validate:"required"`
	ApplicantAddress      string `json:"applicant_address" validate:"required"`
	ApplicantEmail        string `json:"applicant_email" validate:"required,email"`
	ApplicantPhone        string `json:"applicant_phone" validate:"required"`
	ApplicantBirthday     string `json:"applicant_birthday" validate:"required"`
	ApplicantStory        string `json:"applicant_story" validate:"required"`
	SubmitterFirstName    string `json:"submitter_first_name"`
	SubmitterLastName     string `json:"submitter_last_name"`
	SubmitterAddress      string `json:"submitter_address"`
	SubmitterEmail        string `json:"submitter_email" validate:"omitempty,email"`
	SubmitterPhone        string `json:"submitter_phone"`
	SubmitterRelationship string `json:"submitter_relationship"`
}

type reviewRequest struct {
	Status string `json:"status"`
	Notes  string `json:"admin_notes"`
}

type applicationResponse struct {
	ID                    string `json:"id"`
	ApplicationType       string `json:"application_type"`
	ApplicantFirstName    string `json:"applicant_first_name"`
	ApplicantLastName     string `json:"applicant_last_name"`
	ApplicantAddress      string `json:"applicant_address"`
	ApplicantEmail        string `json:"applicant_email"`
	ApplicantPhone        string `json:"applicant_phone"`
	ApplicantBirthday     string `json:"applicant_birthday"`
	ApplicantStory        string `json:"applicant_story"`
	SubmitterFirstName    string `json:"submitter_first_name,omitempty"`
	SubmitterLastName     string `json:"submitter_last_name,omitempty"`
	SubmitterAddress      string `json:"submitter_address,omitempty"`
	SubmitterEmail        string `json:"submitter_email,omitempty"`
	SubmitterPhone        string `json:"submitter_phone,omitempty"`
	SubmitterRelationship string `json:"submitter_relationship,omitempty"`
	Status                string `json:"status"`
	AdminNotes            string `json:"admin_notes,omitempty"`
	ReviewedBy            string `json:"reviewed_by,omitempty"`
	ReviewedAt            string `json:"reviewed_at,omitempty"`
	CreatedAt             string `json:"created_at"`
}

// Submit handles POST /applications. Public, no authentication.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, `{"error":"`+validationMessage(err)+`"}`, http.StatusBadRequest)
		return
	}
	birthday, err := time.Parse("2006-01-02", req.ApplicantBirthday)
	if err != nil {
		http.Error(w, `{"error":"applicant_birthday must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	app, err := h.svc.Submit(r.Context(), SubmitInput{
		ApplicationType:       req.ApplicationType,
		ApplicantFirstName:    req.ApplicantFirstName,
		ApplicantLastName:     req.ApplicantLastName,
		ApplicantAddress:      req.ApplicantAddress,
		ApplicantEmail:        req.ApplicantEmail,
		ApplicantPhone:        req.ApplicantPhone,
		ApplicantBirthday:     birthday,
		ApplicantStory:        req.ApplicantStory,
		SubmitterFirstName:    req.SubmitterFirstName,
		SubmitterLastName:     req.SubmitterLastName,
		SubmitterAddress:      req.SubmitterAddress,
		SubmitterEmail:        req.SubmitterEmail,
		SubmitterPhone:        req.SubmitterPhone,
		SubmitterRelationship: req.SubmitterRelationship,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrBadType), errors.Is(err, ErrMissingFields),
			errors.Is(err, ErrStoryTooLong), errors.Is(err, ErrMissingSubmitter):
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		default:
			h.log.Error("submit application failed", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"application": toResponse(app)})
}

// List handles GET /admin/applications?status=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.RealtorFromCtx(r.Context())
	apps, err := h.svc.List(r.Context(), actor.ID, r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, err, "list applications")
		return
	}
	out := make([]applicationResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, toResponse(app))
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": out})
}

// Get handles GET /admin/applications/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.RealtorFromCtx(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid application id"}`, http.StatusBadRequest)
		return
	}
	app, err := h.svc.Get(r.Context(), actor.ID, id)
	if err != nil {
		h.writeError(w, err, "get application")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"application": toResponse(app)})
}

// Review handles PUT /admin/applications/{id}.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	actor := middleware.RealtorFromCtx(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid application id"}`, http.StatusBadRequest)
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	app, err := h.svc.Review(r.Context(), actor.ID, id, req.Status, req.Notes)
	if err != nil {
		h.writeError(w, err, "review application")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"application": toResponse(app)})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrForbidden):
		http.Error(w, `{"error":"admin access required"}`, http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, `{"error":"application not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrBadStatus):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
	case errors.Is(err, ErrAlreadyDecided):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusConflict)
	default:
		h.log.Error(op+" failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func toResponse(g *models.GrantApplication) applicationResponse {
	resp := applicationResponse{
		ID:                    g.ID.String(),
		ApplicationType:       g.ApplicationType,
		ApplicantFirstName:    g.ApplicantFirstName,
		ApplicantLastName:     g.ApplicantLastName,
		ApplicantAddress:      g.ApplicantAddress,
		ApplicantEmail:        g.ApplicantEmail,
		ApplicantPhone:        g.ApplicantPhone,
		ApplicantBirthday:     g.ApplicantBirthday.Format("2006-01-02"),
		ApplicantStory:        g.ApplicantStory,
		SubmitterFirstName:    g.SubmitterFirstName,
		SubmitterLastName:     g.SubmitterLastName,
		SubmitterAddress:      g.SubmitterAddress,
		SubmitterEmail:        g.SubmitterEmail,
		SubmitterPhone:        g.SubmitterPhone,
		SubmitterRelationship: g.SubmitterRelationship,
		Status:                g.Status,
		AdminNotes:            g.AdminNotes,
		CreatedAt:             g.CreatedAt.Format(time.RFC3339),
	}
	if g.ReviewedBy != nil {
		resp.ReviewedBy = g.ReviewedBy.String()
	}
	if g.ReviewedAt != nil {
		resp.ReviewedAt = g.ReviewedAt.Format(time.RFC3339)
	}
	return resp
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field() + " is invalid"
	}
	return "invalid request"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
