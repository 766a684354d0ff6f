package edge

import (
	"net/http"
	"time"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"
)

type HostRouteOptions struct {
	Policy application.RoutePolicy
	Stats  domain.StatsStore
}

// HostRouteMiddleware aplica a tabela de roteamento por host+path e encerra
// com 307/308 quando a URL não é a canônica.
func HostRouteMiddleware(opts HostRouteOptions) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec := opts.Policy.Decide(r.Host, r.URL.Path)
			if !dec.Redirect {
				next.ServeHTTP(w, r)
				return
			}

			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     Identifier(r),
					Tier:    domain.TierForPath(r.URL.Path),
					Outcome: domain.OutcomeRedirected,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				})
			}

			http.Redirect(w, r, dec.Location, dec.Status)
		})
	}
}
