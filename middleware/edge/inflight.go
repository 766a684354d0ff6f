package edge

import (
	"context"
	"net/http"
	"time"
)

type InFlightOptions struct {
	// Max é o teto de requisições simultâneas dentro do pipeline. Zero
	// desliga o estágio.
	Max int
	// AcquireTimeout limita a espera por uma vaga; <= 0 espera até o
	// cancelamento da requisição.
	AcquireTimeout time.Duration
}

// InFlightMiddleware limita quantas requisições atravessam o pipeline ao
// mesmo tempo, com um semáforo de channel. Sem vaga dentro do prazo, 503.
func InFlightMiddleware(opts InFlightOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	sem := make(chan struct{}, opts.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if opts.AcquireTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.AcquireTimeout)
				defer cancel()
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusServiceUnavailable, errorBody{
					Error:      "server_busy",
					Message:    "too many concurrent requests",
					RetryAfter: 1,
				})
				return
			}
			defer func() { <-sem }()

			next.ServeHTTP(w, r)
		})
	}
}
