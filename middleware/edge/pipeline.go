package edge

import (
	"net/http"
	"time"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"

	"github.com/rs/zerolog"
)

// Options reúne a configuração do pipeline completo de borda.
//
// Tudo aqui é montado uma vez na inicialização e injetado; o pipeline não lê
// ambiente nem guarda estado global.
type Options struct {
	Limiter *application.Limiter
	CSP     domain.CSPConfig
	CSRF    application.CSRFPolicy
	Routes  application.RoutePolicy
	Stats   domain.StatsStore

	// Nonce é a fonte do token da CSP (padrão infra.NewNonce).
	Nonce func() (string, error)

	// BypassPaths pulam o pipeline inteiro. O endpoint que recebe os reports
	// da CSP precisa estar aqui para não depender da política que reporta.
	BypassPaths []string

	// MaxInFlight/AcquireTimeout configuram o estágio opcional de
	// concorrência na frente do rate limit. Zero desliga.
	MaxInFlight    int
	AcquireTimeout time.Duration

	Logger zerolog.Logger
}

// DefaultBypassPaths são os paths que ficam fora do pipeline.
func DefaultBypassPaths() []string {
	return []string{"/api/csp-report", "/healthz", "/metrics"}
}

// Pipeline compõe os estágios na ordem fixa:
//
//	bypass -> in-flight -> rate limit -> headers+CSP -> CSRF -> roteamento -> next
//
// Cada estágio pode encerrar a requisição (503, 429, 403 ou redirect); o que
// sobrevive chega ao próximo handler com os headers anexados.
func Pipeline(opts Options) func(next http.Handler) http.Handler {
	bypass := opts.BypassPaths
	if bypass == nil {
		bypass = DefaultBypassPaths()
	}
	bypassSet := make(map[string]struct{}, len(bypass))
	for _, p := range bypass {
		bypassSet[p] = struct{}{}
	}

	if opts.CSRF.HeaderName == "" {
		opts.CSRF.HeaderName = application.DefaultCSRFHeader
	}
	if opts.CSRF.CookieName == "" {
		opts.CSRF.CookieName = application.DefaultCSRFCookie
	}

	return func(next http.Handler) http.Handler {
		chain := HostRouteMiddleware(HostRouteOptions{
			Policy: opts.Routes,
			Stats:  opts.Stats,
		})(next)
		chain = CSRFMiddleware(CSRFOptions{
			Policy: opts.CSRF,
			Stats:  opts.Stats,
			Logger: opts.Logger,
		})(chain)
		chain = SecurityHeadersMiddleware(HeadersOptions{
			CSP:    opts.CSP,
			Nonce:  opts.Nonce,
			Logger: opts.Logger,
		})(chain)
		chain = RateLimitMiddleware(RateLimitOptions{
			Limiter: opts.Limiter,
			Stats:   opts.Stats,
		})(chain)
		chain = InFlightMiddleware(InFlightOptions{
			Max:            opts.MaxInFlight,
			AcquireTimeout: opts.AcquireTimeout,
		})(chain)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := bypassSet[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			chain.ServeHTTP(w, r)
		})
	}
}
