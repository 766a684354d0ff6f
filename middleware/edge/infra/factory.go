package infra

import (
	"context"
	"time"

	"edge-gateway/middleware/edge/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StoreConfig descreve o backend de contadores disponível na inicialização.
type StoreConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// CallTimeout limita cada chamada ao Redis (padrão do RedisCounterStore).
	CallTimeout time.Duration
	// SweepEvery é o intervalo da varredura do store local.
	SweepEvery time.Duration
}

// NewCounterStore escolhe a implementação do CounterStore uma única vez:
// Redis quando há endereço configurado, local caso contrário. Depois dessa
// escolha nenhum código volta a ramificar sobre a configuração.
//
// Um ping que falha na subida não é fatal: a política de disponibilidade é
// fail-open, então o gateway sobe e cada checagem trata a falha do backend.
func NewCounterStore(ctx context.Context, cfg StoreConfig, log zerolog.Logger) (domain.CounterStore, func()) {
	if cfg.RedisAddr == "" {
		local := NewLocalCounterStore(WithSweepEvery(cfg.SweepEvery))
		local.StartJanitor(ctx)
		log.Info().Msg("counter store: in-memory (single instance only)")
		return local, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err := rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).
			Msg("counter store: redis unreachable at startup, requests will fail open")
	} else {
		log.Info().Str("addr", cfg.RedisAddr).Msg("counter store: redis")
	}

	var opts []RedisCounterOption
	if cfg.CallTimeout > 0 {
		opts = append(opts, WithCallTimeout(cfg.CallTimeout))
	}
	store := NewRedisCounterStore(rdb, opts...)
	return store, func() { _ = rdb.Close() }
}
