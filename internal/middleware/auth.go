package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/localsupportslocal/backend/internal/models"
)

type contextKey string

const ctxRealtorKey contextKey = "realtor"

// TokenVerifier resolves a bearer token to a realtor id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (uuid.UUID, error)
}

// RealtorLookup loads the caller's account row.
type RealtorLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Realtor, error)
}

// RealtorAuth authenticates requests by validating the Bearer token and
// loading the realtor row fresh on every call, so privilege changes (approval,
// deactivation, admin revocation) take effect immediately rather than at the
// token's expiry.
func RealtorAuth(verifier TokenVerifier, realtors RealtorLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			id, err := verifier.VerifyToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			realtor, err := realtors.GetByID(r.Context(), id)
			if err != nil || realtor == nil || !realtor.IsActive {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxRealtorKey, realtor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireApproved gates a handler to realtors whose admission is approved.
func RequireApproved(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		realtor := RealtorFromCtx(r.Context())
		if realtor == nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if realtor.ApprovalStatus != models.ApprovalApproved {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin gates a handler to admin accounts.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		realtor := RealtorFromCtx(r.Context())
		if realtor == nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if !realtor.IsAdmin {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RealtorFromCtx returns the authenticated realtor or nil.
func RealtorFromCtx(ctx context.Context) *models.Realtor {
	realtor, _ := ctx.Value(ctxRealtorKey).(*models.Realtor)
	return realtor
}

// WithRealtor returns a context carrying the given realtor.
func WithRealtor(ctx context.Context, realtor *models.Realtor) context.Context {
	return context.WithValue(ctx, ctxRealtorKey, realtor)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
