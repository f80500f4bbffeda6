package notification

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/localsupportslocal/backend/internal/middleware"
	"github.com/localsupportslocal/backend/internal/models"
)

type NotificationResponse struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Subject   string  `json:"subject"`
	Message   string  `json:"message"`
	ActionURL string  `json:"action_url,omitempty"`
	IsRead    bool    `json:"is_read"`
	EmailSent bool    `json:"email_sent"`
	SentAt    string  `json:"sent_at"`
	ReadAt    *string `json:"read_at,omitempty"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// List handles GET /notifications?unread_only=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	if realtor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	unreadOnly := r.URL.Query().Get("unread_only") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.svc.List(r.Context(), realtor.ID, unreadOnly, limit)
	if err != nil {
		h.log.Error("list notifications", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	out := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, toResponse(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

// MarkRead handles POST /notifications/{id}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	if realtor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid notification id"}`, http.StatusBadRequest)
		return
	}
	n, err := h.svc.MarkRead(r.Context(), realtor.ID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, `{"error":"notification not found"}`, http.StatusNotFound)
			return
		}
		h.log.Error("mark notification read", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notification": toResponse(n)})
}

// MarkAllRead handles POST /notifications/mark-all-read.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	if realtor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	count, err := h.svc.MarkAllRead(r.Context(), realtor.ID)
	if err != nil {
		h.log.Error("mark all notifications read", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"marked_read": count})
}

// UnreadCount handles GET /notifications/unread-count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	realtor := middleware.RealtorFromCtx(r.Context())
	if realtor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	count, err := h.svc.UnreadCount(r.Context(), realtor.ID)
	if err != nil {
		h.log.Error("unread count", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unread_count": count})
}

func toResponse(n *models.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID.String(),
		Type:      n.Type,
		Subject:   n.Subject,
		Message:   n.Message,
		ActionURL: n.ActionURL,
		IsRead:    n.IsRead,
		EmailSent: n.EmailSent,
		SentAt:    n.SentAt.Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		s := n.ReadAt.Format(time.RFC3339)
		resp.ReadAt = &s
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
