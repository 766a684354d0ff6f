package infra

import (
	"context"
	"fmt"
	"time"

	"edge-gateway/middleware/edge/domain"

	"github.com/redis/go-redis/v9"
)

// incrExpireLua incrementa e, se for o primeiro escritor da janela, define o
// TTL na mesma operação. Fecha a fresta do par INCR+EXPIRE em duas viagens.
const incrExpireLua = `
local current = redis.call("INCR", KEYS[1])
if tonumber(current) == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`

// RedisCounterStore implementa domain.CounterStore sobre Redis.
//
// É a implementação para deploy horizontal: réplicas independentes do gateway
// compartilham os mesmos contadores. O INCR é atômico no backend; o par
// Increment+Expire, quando usado em duas chamadas, não é (ver Limiter).
type RedisCounterStore struct {
	rdb         *redis.Client
	callTimeout time.Duration
	incrScript  *redis.Script
}

type RedisCounterOption func(*RedisCounterStore)

// WithCallTimeout limita cada chamada ao Redis. Timeout estourado é tratado
// como qualquer outra falha do store (fail-open na camada de aplicação).
func WithCallTimeout(d time.Duration) RedisCounterOption {
	return func(s *RedisCounterStore) { s.callTimeout = d }
}

func NewRedisCounterStore(rdb *redis.Client, opts ...RedisCounterOption) *RedisCounterStore {
	s := &RedisCounterStore{
		rdb:         rdb,
		callTimeout: 500 * time.Millisecond,
		incrScript:  redis.NewScript(incrExpireLua),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisCounterStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

// Increment implementa domain.CounterStore.
func (s *RedisCounterStore) Increment(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, storeErr("incr", err)
	}
	return count, nil
}

// Expire implementa domain.CounterStore.
func (s *RedisCounterStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return storeErr("expire", err)
	}
	return nil
}

// IncrementTTL implementa domain.TTLCounterStore via script Lua pré-compilado.
func (s *RedisCounterStore) IncrementTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.incrScript.Run(ctx, s.rdb, []string{key}, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, storeErr("incr+pexpire", err)
	}
	count, ok := res.(int64)
	if !ok {
		return 0, storeErr("incr+pexpire", fmt.Errorf("unexpected reply %T", res))
	}
	return count, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}
