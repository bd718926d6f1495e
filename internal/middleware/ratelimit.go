package middleware

import (
	"net/http"

	"github.com/folio-dev/folio/internal/middleware/ratelimiter"
	"github.com/folio-dev/folio/internal/utils"
)

// RateLimit rejects requests whose identity exhausted its token bucket with 429.
// Compatible with mux's Use, so one limiter set on a subrouter covers all its endpoints combined.
func RateLimit(url *ratelimiter.UserRateLimiter, getIdentity func(r *http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := getIdentity(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if !url.Allow(identity) {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
