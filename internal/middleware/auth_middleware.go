package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"englishqa/internal/auth"
	"englishqa/internal/models"
	"englishqa/internal/utils"
)

// ContextKey is the type for context keys set by middleware
type ContextKey string

const (
	// UserKey holds the authenticated *models.User
	UserKey ContextKey = "user"
)

// UserStore loads user rows for authentication.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequireUser validates the bearer token, loads the account, and rejects
// inactive users. The full user row is placed on the request context so
// handlers see a balance no older than the request itself.
func RequireUser(users UserStore, jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.Header.Get("Authorization")
			if tokenString == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
				return
			}
			tokenString = strings.TrimPrefix(tokenString, "Bearer ")

			claims, err := auth.ValidateJWT(tokenString, jwtSecret)
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token subject")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "Unknown user")
				return
			}
			if !user.IsActive {
				utils.RespondWithError(w, http.StatusForbidden, "Account is deactivated")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin users. Must run after RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
			return
		}
		if !user.IsAdmin {
			utils.RespondWithError(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUser retrieves the authenticated user from the request context
func GetUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok
}
