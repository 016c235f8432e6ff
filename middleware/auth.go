// Package middleware holds the HTTP middleware chain: facilitator
// authentication, request ids, and request logging with metrics.
package middleware

import (
	"net/http"
	"strings"

	"github.com/akinalp/emocircle/handlers"
	"github.com/akinalp/emocircle/pkg"
	"github.com/akinalp/emocircle/services"
)

// AuthMiddleware guards facilitator routes.
type AuthMiddleware struct {
	identity services.IdentityService
}

// NewAuthMiddleware builds the middleware.
func NewAuthMiddleware(identity services.IdentityService) *AuthMiddleware {
	return &AuthMiddleware{identity: identity}
}

// Require accepts "Authorization: Bearer <token>" and stores the token's
// facilitator id in the request context.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}

		claims, err := m.identity.ValidateToken(tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		ctx := handlers.WithFacilitator(r.Context(), claims.FacilitatorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
