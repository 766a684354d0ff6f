package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edge-gateway/middleware/edge"
	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/infra"

	"github.com/rs/zerolog"
)

func main() {
	// Exemplo: injetando o pipeline diretamente no seu webserver (sem proxy),
	// com o store em memória. Útil para desenvolvimento local.
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := infra.NewLocalCounterStore()
	store.StartJanitor(ctx)

	limiter := application.NewLimiter(store, application.WithLogger(logger))

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// o nonce chega no header da requisição para carimbar tags inline.
		nonce := r.Header.Get("X-Nonce")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<script nonce=%q>console.log('inline permitido')</script>\n", nonce)
	})

	h := edge.Pipeline(edge.Options{
		Limiter: limiter,
		CSRF:    application.NewCSRFPolicy(),
		Routes:  application.NewRoutePolicy("example.com"),
		Logger:  logger,
	})(mux)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("example server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}
