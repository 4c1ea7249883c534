package middleware

import (
	"net/http"

	"englishqa/internal/ratelimit"
	"englishqa/internal/utils"
)

// RateLimit throttles requests per authenticated user. Must run after
// RequireUser. Limiter failures fail open: a Redis outage should not take
// the gateway down with it.
func RateLimit(limiter ratelimit.Limiter, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
				return
			}

			allowed, err := limiter.Allow(r.Context(), user.ID.String(), limit)
			if err != nil {
				allowed = true
			}
			if !allowed {
				utils.RespondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded, slow down")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
