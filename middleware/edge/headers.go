package edge

import (
	"net/http"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"

	"github.com/rs/zerolog"
)

type HeadersOptions struct {
	CSP domain.CSPConfig
	// Nonce é a fonte do token por requisição (padrão infra.NewNonce).
	Nonce  func() (string, error)
	Logger zerolog.Logger
}

// SecurityHeadersMiddleware anexa os headers de segurança e a CSP com um
// nonce novo a cada requisição.
//
// O nonce também segue para o upstream no header X-Nonce da requisição, para
// que a aplicação carimbe os script/style inline que a política permite.
// Falha na fonte de aleatoriedade não bloqueia a requisição: a CSP sai sem o
// token de nonce e o incidente vai para o log.
func SecurityHeadersMiddleware(opts HeadersOptions) func(next http.Handler) http.Handler {
	if opts.Nonce == nil {
		opts.Nonce = infra.NewNonce
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce, err := opts.Nonce()
			if err != nil {
				opts.Logger.Error().Err(err).Msg("nonce generation failed, CSP without nonce")
				nonce = ""
			}

			h := w.Header()
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")
			h.Set(application.CSPHeaderName(opts.CSP), application.BuildCSPHeader(opts.CSP, nonce))

			if nonce != "" {
				h.Set("X-Nonce", nonce)
				r.Header.Set("X-Nonce", nonce)
			}

			next.ServeHTTP(w, r)
		})
	}
}
