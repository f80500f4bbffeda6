package router

import (
	"net/http"

	"github.com/localsupportslocal/backend/internal/admin"
	"github.com/localsupportslocal/backend/internal/grants"
	"github.com/localsupportslocal/backend/internal/middleware"
	"github.com/localsupportslocal/backend/internal/notification"
	"github.com/localsupportslocal/backend/internal/period"
	"github.com/localsupportslocal/backend/internal/realtor"
	"github.com/localsupportslocal/backend/internal/settlement"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Realtor      *realtor.Handler
	Admin        *admin.Handler
	Period       *period.Handler
	Settlement   *settlement.Handler
	Notification *notification.Handler
	Grants       *grants.Handler
}

// New returns an http.Handler serving the API under /api/v1. Authenticated
// routes pass through the realtor auth middleware; reporting and payment
// routes additionally require an approved account, admin routes an admin one.
func New(h Handlers, authMW func(http.Handler) http.Handler, uploadDir string) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	authed := func(fn http.HandlerFunc) http.Handler {
		return authMW(fn)
	}
	approved := func(fn http.HandlerFunc) http.Handler {
		return authMW(middleware.RequireApproved(fn))
	}
	adminOnly := func(fn http.HandlerFunc) http.Handler {
		return authMW(middleware.RequireAdmin(fn))
	}

	// Public.
	mux.HandleFunc("POST "+base+"/auth/register", h.Realtor.Register)
	mux.HandleFunc("POST "+base+"/auth/login", h.Realtor.Login)
	mux.HandleFunc("POST "+base+"/applications", h.Grants.Submit)

	// Any authenticated realtor, approved or not.
	mux.Handle("GET "+base+"/auth/verify", authed(h.Realtor.Verify))
	mux.Handle("GET "+base+"/profile", authed(h.Realtor.GetProfile))
	mux.Handle("PUT "+base+"/profile", authed(h.Realtor.UpdateProfile))
	mux.Handle("POST "+base+"/profile/headshot", authed(h.Realtor.UploadHeadshot))
	mux.Handle("GET "+base+"/notifications", authed(h.Notification.List))
	mux.Handle("GET "+base+"/notifications/unread-count", authed(h.Notification.UnreadCount))
	mux.Handle("PUT "+base+"/notifications/{id}/read", authed(h.Notification.MarkRead))
	mux.Handle("PUT "+base+"/notifications/read-all", authed(h.Notification.MarkAllRead))

	// Approved realtors only.
	mux.Handle("POST "+base+"/transactions", approved(h.Period.Submit))
	mux.Handle("GET "+base+"/transactions/history", approved(h.Period.History))
	mux.Handle("GET "+base+"/transactions/pending", approved(h.Period.Pending))
	mux.Handle("POST "+base+"/payments", approved(h.Settlement.Record))
	mux.Handle("GET "+base+"/payments/history", approved(h.Settlement.History))
	mux.Handle("GET "+base+"/payments/unsettled", approved(h.Settlement.Unsettled))
	mux.Handle("GET "+base+"/payments/stats", approved(h.Settlement.Stats))
	mux.Handle("PUT "+base+"/payments/{id}/share", approved(h.Settlement.SetShared))

	// Admins only.
	mux.Handle("GET "+base+"/admin/realtors", adminOnly(h.Admin.List))
	mux.Handle("GET "+base+"/admin/realtors/pending", adminOnly(h.Admin.ListPending))
	mux.Handle("POST "+base+"/admin/realtors/{id}/approve", adminOnly(h.Admin.Approve))
	mux.Handle("POST "+base+"/admin/realtors/{id}/deny", adminOnly(h.Admin.Deny))
	mux.Handle("POST "+base+"/admin/reminders", adminOnly(h.Admin.SendReminders))
	mux.Handle("GET "+base+"/admin/applications", adminOnly(h.Grants.List))
	mux.Handle("GET "+base+"/admin/applications/{id}", adminOnly(h.Grants.Get))
	mux.Handle("PUT "+base+"/admin/applications/{id}", adminOnly(h.Grants.Review))

	// Uploaded headshots are served directly off local disk.
	mux.Handle("GET /uploads/headshots/", http.StripPrefix("/uploads/headshots/", http.FileServer(http.Dir(uploadDir))))

	return mux
}
