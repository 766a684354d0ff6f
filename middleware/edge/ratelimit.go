package edge

import (
	"net/http"
	"time"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"
)

type RateLimitOptions struct {
	Limiter *application.Limiter
	Stats   domain.StatsStore
}

// RateLimitMiddleware aplica o rate limit por tier e traduz o resultado para
// status/headers HTTP.
//
// Em toda resposta que passa, X-RateLimit-Remaining/X-RateLimit-Reset
// refletem a restrição mais apertada em vigor. No bloqueio, 429 com corpo
// JSON, Retry-After e Remaining zerado.
func RateLimitMiddleware(opts RateLimitOptions) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			identifier := Identifier(r)
			tier := domain.TierForPath(r.URL.Path)
			res := opts.Limiter.CheckMultiple(r.Context(), identifier, tier)

			if opts.Stats != nil {
				outcome := domain.OutcomeAllowed
				if !res.Allowed {
					outcome = domain.OutcomeRateLimited
				}
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     identifier,
					Tier:    tier,
					Outcome: outcome,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				})
			}

			w.Header().Set("X-RateLimit-Remaining", formatInt64(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", formatInt64(res.ResetAt))

			if !res.Allowed {
				retry := int(res.RetryAfter / time.Second)
				if retry <= 0 {
					retry = 1
				}
				w.Header().Set("Retry-After", formatInt(retry))
				writeJSONError(w, http.StatusTooManyRequests, errorBody{
					Error:      "rate_limited",
					Message:    "too many requests",
					RetryAfter: retry,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
