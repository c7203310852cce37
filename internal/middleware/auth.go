package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go-account-service/internal/model"
)

// AccessTokenCookie is the cookie the login handler sets; RequireAuth falls
// back to it when no bearer header is present.
const AccessTokenCookie = "accessToken"

type tokenVerifier interface {
	VerifyAccess(token string) (*model.AuthClaims, error)
}

type identityResolver interface {
	ResolveIdentity(ctx context.Context, userID string) (model.PublicUser, error)
}

type contextKey string

const identityContextKey contextKey = "identity"

type AuthMiddleware struct {
	verifier tokenVerifier
	resolver identityResolver
}

func NewAuthMiddleware(verifier tokenVerifier, resolver identityResolver) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, resolver: resolver}
}

// RequireAuth verifies the access token and resolves it to the stored user.
// Expired or invalid tokens fail here with 401, before any role gate runs.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeAuthFailure(w, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := m.verifier.VerifyAccess(token)
		if err != nil {
			writeAuthFailure(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		identity, err := m.resolver.ResolveIdentity(r.Context(), claims.UserID)
		if err != nil {
			writeAuthFailure(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole passes only when the authenticated identity's role equals the
// required one. Matching is exact: admin does not satisfy a mod gate. Every
// failure, a missing identity included, collapses to 403 so this layer never
// distinguishes "not logged in" from "wrong role".
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || identity.Role != role {
				writeAuthFailure(w, http.StatusForbidden, "you are not allowed to do this action")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func IdentityFromContext(ctx context.Context) (model.PublicUser, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.PublicUser)
	return identity, ok
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" && strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}

	return ""
}

func writeAuthFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		StatusCode: status,
		Message:    message,
	})
}
