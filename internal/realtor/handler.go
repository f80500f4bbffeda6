package realtor

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/localsupportslocal/backend/internal/middleware"
	"github.com/localsupportslocal/backend/internal/models"
)

// HeadshotStore persists an uploaded headshot and returns a retrievable URL.
type HeadshotStore interface {
	SaveHeadshot(realtorID, filename string, src io.Reader) (string, error)
}

// Request/response structs use snake_case JSON matching the existing frontend.

type RegisterRequest struct {
	Email         string  `json:"email" validate:"required,email"`
	Password      string  `json:"password" validate:"required,min=8"`
	FirstName     string  `json:"first_name" validate:"required"`
	LastName      string  `json:"last_name" validate:"required"`
	Phone         string  `json:"phone"`
	Brokerage     string  `json:"brokerage"`
	LicenseNumber string  `json:"license_number"`
	Bio           string  `json:"bio"`
	PledgeRate    float64 `json:"donation_amount_per_transaction" validate:"gte=0"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	FirstName     *string  `json:"first_name"`
	LastName      *string  `json:"last_name"`
	Phone         *string  `json:"phone"`
	Brokerage     *string  `json:"brokerage"`
	LicenseNumber *string  `json:"license_number"`
	Bio           *string  `json:"bio"`
	PledgeRate    *float64 `json:"donation_amount_per_transaction"`
}

type RealtorResponse struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Phone          string  `json:"phone,omitempty"`
	Brokerage      string  `json:"brokerage,omitempty"`
	LicenseNumber  string  `json:"license_number,omitempty"`
	PledgeRate     float64 `json:"donation_amount_per_transaction"`
	HeadshotURL    string  `json:"headshot_url,omitempty"`
	Bio            string  `json:"bio,omitempty"`
	IsActive       bool    `json:"is_active"`
	IsAdmin        bool    `json:"is_admin"`
	IsApproved     bool    `json:"is_approved"`
	ApprovalStatus string  `json:"approval_status"`
	ApprovedAt     *string `json:"approved_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type AuthResponse struct {
	Realtor RealtorResponse `json:"realtor"`
	Token   string          `json:"access_token"`
}

type Handler struct {
	svc      Service
	files    HeadshotStore
	validate *validator.Validate
	log      *slog.Logger
}

func NewHandler(svc Service, files HeadshotStore, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, files: files, validate: validator.New(), log: log}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, `{"error":"`+validationMessage(err)+`"}`, http.StatusBadRequest)
		return
	}
	realtor, token, err := h.svc.Register(r.Context(), RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Brokerage:       req.Brokerage,
		LicenseNumber:   req.LicenseNumber,
		Bio:             req.Bio,
		PledgeRateCents: models.CentsFromDollars(req.PledgeRate),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			http.Error(w, `{"error":"email already registered"}`, http.StatusConflict)
		case errors.Is(err, ErrMissingFields), errors.Is(err, ErrNegativeRate):
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		default:
			h.log.Error("register failed", "error", err)
			http.Error(w, `{"error":"registration failed"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{Realtor: ToResponse(realtor), Token: token})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, `{"error":"email and password are required"}`, http.StatusBadRequest)
		return
	}
	realtor, token, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, `{"error":"invalid email or password"}`, http.StatusUnauthorized)
			return
		}
		h.log.Error("login failed", "error", err)
		http.Error(w, `{"error":"login failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Realtor: ToResponse(realtor), Token: token})
}

// Verify handles GET /auth/verify: echoes the authenticated account.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	if realtor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "realtor": ToResponse(realtor)})
}

// GetProfile handles GET /realtors/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	if realtor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, ToResponse(realtor))
}

// UpdateProfile handles PUT /realtors/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	if realtor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	patch := ProfilePatch{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Brokerage:     req.Brokerage,
		LicenseNumber: req.LicenseNumber,
		Bio:           req.Bio,
	}
	if req.PledgeRate != nil {
		cents := models.CentsFromDollars(*req.PledgeRate)
		patch.PledgeRateCents = &cents
	}
	updated, err := h.svc.UpdateProfile(r.Context(), realtor.ID, patch)
	if err != nil {
		if errors.Is(err, ErrNegativeRate) {
			http.Error(w, `{"error":"pledge rate must be non-negative"}`, http.StatusBadRequest)
			return
		}
		h.log.Error("update profile failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"realtor": ToResponse(updated)})
}

// UploadHeadshot handles POST /realtors/upload-headshot (multipart form,
// field "file"). The file store owns naming and placement; only the returned
// URL is kept on the account.
func (h *Handler) UploadHeadshot(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	if realtor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"no file provided"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.files.SaveHeadshot(realtor.ID.String(), header.Filename, file)
	if err != nil {
		h.log.Error("save headshot failed", "error", err)
		http.Error(w, `{"error":"upload failed"}`, http.StatusBadRequest)
		return
	}
	updated, err := h.svc.SetHeadshot(r.Context(), realtor.ID, url)
	if err != nil {
		h.log.Error("set headshot failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"headshot_url": updated.HeadshotURL})
}

// ToResponse converts a realtor row into its JSON shape. Stored cents become
// decimal dollars at the boundary.
func ToResponse(m *models.Realtor) RealtorResponse {
	resp := RealtorResponse{
		ID:             m.ID.String(),
		Email:          m.Email,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		Phone:          m.Phone,
		Brokerage:      m.Brokerage,
		LicenseNumber:  m.LicenseNumber,
		PledgeRate:     models.Dollars(m.PledgeRateCents),
		HeadshotURL:    m.HeadshotURL,
		Bio:            m.Bio,
		IsActive:       m.IsActive,
		IsAdmin:        m.IsAdmin,
		IsApproved:     m.IsApproved,
		ApprovalStatus: m.ApprovalStatus,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      m.UpdatedAt.Format(time.RFC3339),
	}
	if m.ApprovedAt != nil {
		s := m.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
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
