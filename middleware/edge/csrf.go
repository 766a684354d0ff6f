package edge

import (
	"net/http"
	"time"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"

	"github.com/rs/zerolog"
)

type CSRFOptions struct {
	Policy application.CSRFPolicy
	Stats  domain.StatsStore
	Logger zerolog.Logger
}

// CSRFMiddleware valida o par double-submit (header x cookie) em métodos
// mutantes. Token ausente ou divergente encerra com 403; nunca é suavizado.
func CSRFMiddleware(opts CSRFOptions) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !opts.Policy.RequiresCheck(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get(opts.Policy.HeaderName)
			var cookieToken string
			if c, err := r.Cookie(opts.Policy.CookieName); err == nil {
				cookieToken = c.Value
			}

			if !application.TokensMatch(headerToken, cookieToken) {
				opts.Logger.Warn().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("ip", ClientIP(r)).
					Msg("csrf validation failed")
				if opts.Stats != nil {
					_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
						Key:     Identifier(r),
						Tier:    domain.TierForPath(r.URL.Path),
						Outcome: domain.OutcomeCSRFReject,
						Method:  r.Method,
						Path:    r.URL.Path,
						At:      time.Now(),
					})
				}
				writeJSONError(w, http.StatusForbidden, errorBody{
					Error:   "csrf_validation_failed",
					Message: "missing or invalid CSRF token",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
