package middleware

import (
	"errors"
	"net/http"
	"strconv"

	goShield "github.com/MrEthical07/goShield"
)

// RateLimit enforces one named bucket on every request passing through it.
// Rejections carry 429 with Retry-After; limiter backend failures follow
// the bucket's fail-open or fail-closed policy inside the Engine.
func RateLimit(engine *goShield.Engine, bucket string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			result, err := engine.AllowRequest(r.Context(), bucket)
			if err != nil {
				var rl *goShield.RateLimitError
				if errors.As(err, &rl) {
					seconds := int(rl.RetryAfter.Seconds())
					if seconds < 1 {
						seconds = 1
					}
					w.Header().Set("Retry-After", strconv.Itoa(seconds))
					http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
					return
				}
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
