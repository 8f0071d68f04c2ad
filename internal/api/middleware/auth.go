package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SemenBogdanov/dpms-system/internal/api/shared"
	"github.com/SemenBogdanov/dpms-system/internal/service"
	"github.com/SemenBogdanov/dpms-system/internal/service/auth"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// AuthMiddleware provides JWT authentication for routes. It resolves the
// token into a full Actor: identity and role come from the token, the
// league is read fresh so a promotion applies on the next request, not on
// the next login.
type AuthMiddleware struct {
	jwtService auth.JWTService
	users      store.UserStore
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService, users store.UserStore) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		users:      users,
	}
}

// Authenticate validates JWT tokens from the Authorization header and
// adds the resolved actor to the request context for authorized requests.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), parts[1])
		if err != nil {
			switch err {
			case auth.ErrExpiredToken:
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case auth.ErrInvalidToken, auth.ErrWrongTokenType:
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				slog.Error("failed to validate token", "error", err)
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		user, err := m.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			if store.IsNotFoundError(err) {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
				return
			}
			slog.Error("failed to resolve actor", "error", err)
			shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			return
		}
		if !user.IsActive {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Account is deactivated")
			return
		}

		actor := service.Actor{ID: user.ID, Role: user.Role, League: user.League}
		ctx := context.WithValue(r.Context(), shared.ActorContextKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetActor extracts the resolved actor from the request context.
// Returns the actor and a boolean indicating if it was found.
func GetActor(r *http.Request) (service.Actor, bool) {
	actor, ok := r.Context().Value(shared.ActorContextKey).(service.Actor)
	return actor, ok
}
