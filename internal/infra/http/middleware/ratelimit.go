package middleware

import (
	"net/http"
	"strconv"

	"github.com/openctemio/teams/internal/infra/redis"
	"github.com/openctemio/teams/internal/metrics"
	"github.com/openctemio/teams/pkg/apierror"
	"github.com/openctemio/teams/pkg/logger"
)

// RateLimit enforces a per-client request budget backed by the shared
// Redis limiter, so the limit holds across replicas. The limiter failing
// is treated as open: a broken Redis should not take the API down with it.
func RateLimit(limiter *redis.RateLimiter, log *logger.Logger) func(http.Handler) http.Handler {
	l := log.With("component", "ratelimit")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if p := GetPrincipal(r.Context()); p != nil {
				key = p.ID.String()
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				l.WithContext(r.Context()).Warn("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				metrics.RateLimitRejections.Inc()
				w.Header().Set("Retry-After", strconv.FormatInt(result.RetryAt.Unix(), 10))
				apierror.RateLimitExceeded().
					WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
