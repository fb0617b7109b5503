package middleware

import (
	"context"
	"net/http"
	"strings"

	"collection-backend/internal/apperr"
	"collection-backend/internal/auth"
	"collection-backend/internal/logger"
	"collection-backend/pkg/utils"
)

// IdentityResolver maps a token's employee to the identity passed to the core.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, employeeID int64) (auth.Identity, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	resolver   IdentityResolver
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, resolver IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		resolver:   resolver,
	}
}

// Authenticate validates the bearer token and stores the caller's identity in
// the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.ErrorJSON(w, http.StatusUnauthorized, "missing_token", "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorJSON(w, http.StatusUnauthorized, "invalid_token", "Invalid authorization format")
			return
		}

		claims, err := m.jwtManager.ValidateToken(parts[1])
		if err != nil {
			utils.ErrorJSON(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}

		// Role and active flag come from the employee record, not the token
		identity, err := m.resolver.ResolveIdentity(r.Context(), claims.EmployeeID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindUnauthorized {
				utils.ErrorJSON(w, http.StatusUnauthorized, "invalid_token", err.Error())
				return
			}
			utils.Error(w, r, err)
			return
		}

		ctx := auth.WithIdentity(r.Context(), identity)
		l := logger.FromContext(ctx).With().
			Int64("employee_id", identity.EmployeeID).
			Str("role", string(identity.Role)).
			Logger()
		ctx = logger.WithContext(ctx, l)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated callers that satisfy none of roles.
// It must run after Authenticate.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.FromContext(r.Context())
			if !ok {
				utils.ErrorJSON(w, http.StatusUnauthorized, "missing_token", "Authorization required")
				return
			}
			if err := identity.Require(roles...); err != nil {
				utils.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
