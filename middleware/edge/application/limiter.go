package application

import (
	"context"
	"strconv"
	"time"

	"edge-gateway/middleware/edge/domain"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Limiter concentra a regra de rate limit por tier.
//
// Ele não sabe nada sobre HTTP (headers/status): recebe um identificador e um
// tier, consulta o CounterStore para cada restrição configurada e combina os
// resultados. A primeira violação encontrada vence; se todas passam, devolve
// o resultado com o menor Remaining (a restrição mais apertada em vigor).
type Limiter struct {
	store  domain.CounterStore
	limits map[domain.Tier][]domain.LimitConfig

	keyPrefix  string
	failClosed map[domain.Tier]bool
	atomicTTL  bool

	log zerolog.Logger
	// warnGate limita a frequência dos warnings de fail-open para não inundar
	// o log durante uma indisponibilidade do backend.
	warnGate *rate.Limiter
	now      func() time.Time
}

type LimiterOption func(*Limiter)

// WithTierLimits substitui a tabela padrão de restrições por tier.
func WithTierLimits(limits map[domain.Tier][]domain.LimitConfig) LimiterOption {
	return func(l *Limiter) {
		if limits != nil {
			l.limits = limits
		}
	}
}

// WithKeyPrefix define o prefixo das chaves de contador (padrão "edge:rl").
func WithKeyPrefix(prefix string) LimiterOption {
	return func(l *Limiter) { l.keyPrefix = prefix }
}

// WithFailClosed marca tiers que devem negar (e não permitir) quando o
// backend de contadores estiver indisponível. Pensado para o tier auth.
func WithFailClosed(tiers ...domain.Tier) LimiterOption {
	return func(l *Limiter) {
		for _, t := range tiers {
			l.failClosed[t] = true
		}
	}
}

// WithAtomicExpiry usa IncrementTTL (incremento+TTL em uma operação) quando o
// store oferecer essa capacidade. Desligado, o Limiter faz o par de chamadas
// de referência: Increment e, se o contador voltou 1, Expire.
func WithAtomicExpiry(enabled bool) LimiterOption {
	return func(l *Limiter) { l.atomicTTL = enabled }
}

// WithLogger injeta o logger estruturado usado nos avisos de fail-open.
func WithLogger(log zerolog.Logger) LimiterOption {
	return func(l *Limiter) { l.log = log }
}

// WithClock troca a fonte de tempo (testes).
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLimiter(store domain.CounterStore, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		store:      store,
		limits:     domain.DefaultTierLimits(),
		keyPrefix:  "edge:rl",
		failClosed: make(map[domain.Tier]bool),
		log:        zerolog.Nop(),
		warnGate:   rate.NewLimiter(rate.Every(time.Second), 3),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckMultiple avalia todas as restrições do tier para o identificador.
//
// Erros do store seguem a política de disponibilidade: fail-open (permite e
// loga) por padrão, fail-closed para tiers marcados via WithFailClosed.
func (l *Limiter) CheckMultiple(ctx context.Context, identifier string, tier domain.Tier) domain.Result {
	configs := l.limits[tier]
	now := l.now()

	if len(configs) == 0 {
		return domain.Result{Allowed: true, ResetAt: now.Unix()}
	}

	best := domain.Result{Allowed: true, Remaining: -1}
	for _, cfg := range configs {
		res, err := l.checkOne(ctx, identifier, cfg, now)
		if err != nil {
			if l.failClosed[tier] {
				return l.denyOnFailure(identifier, tier, cfg, now, err)
			}
			l.warnStoreFailure(identifier, tier, err)
			continue
		}
		if !res.Allowed {
			return res
		}
		if best.Remaining < 0 || res.Remaining < best.Remaining {
			best = res
		}
	}

	if best.Remaining < 0 {
		// todas as restrições falharam no store: fail-open com a previsão
		// mais conservadora possível a partir da primeira restrição.
		first := configs[0]
		return domain.Result{
			Allowed:   true,
			Remaining: first.Limit,
			ResetAt:   windowEnd(now, first.Window).Unix(),
		}
	}
	return best
}

func (l *Limiter) checkOne(ctx context.Context, identifier string, cfg domain.LimitConfig, now time.Time) (domain.Result, error) {
	windowMs := cfg.Window.Milliseconds()
	idx := now.UnixMilli() / windowMs
	key := l.keyPrefix + ":" + identifier + ":" + strconv.FormatInt(windowMs, 10) + ":" + strconv.FormatInt(idx, 10)

	count, err := l.increment(ctx, key, cfg.Window)
	if err != nil {
		return domain.Result{}, err
	}

	resetMs := (idx + 1) * windowMs
	resetAt := resetMs / 1000

	if count > cfg.Limit {
		retry := time.Duration(resetMs-now.UnixMilli()) * time.Millisecond
		if rem := retry % time.Second; rem != 0 {
			retry += time.Second - rem
		}
		if retry <= 0 {
			retry = time.Second
		}
		return domain.Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retry,
		}, nil
	}

	return domain.Result{
		Allowed:   true,
		Remaining: cfg.Limit - count,
		ResetAt:   resetAt,
	}, nil
}

// increment executa a contabilidade no store.
//
// O par Increment+Expire não é atômico: uma queda entre as duas chamadas pode
// deixar a chave sem TTL (vazamento benigno, limitado pela troca natural de
// janela). Com WithAtomicExpiry e um store que suporte IncrementTTL, as duas
// operações viram uma só.
func (l *Limiter) increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if l.atomicTTL {
		if ts, ok := l.store.(domain.TTLCounterStore); ok {
			return ts.IncrementTTL(ctx, key, window)
		}
	}

	count, err := l.store.Increment(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// primeiro escritor da janela define o TTL; falha aqui não invalida a
		// contagem, só adia a expiração para a troca de janela.
		if err := l.store.Expire(ctx, key, window); err != nil {
			l.warnStoreFailure(key, "", err)
		}
	}
	return count, nil
}

func (l *Limiter) denyOnFailure(identifier string, tier domain.Tier, cfg domain.LimitConfig, now time.Time, err error) domain.Result {
	l.log.Warn().
		Err(err).
		Str("identifier", identifier).
		Str("tier", string(tier)).
		Msg("counter store unavailable, failing closed")
	return domain.Result{
		Allowed:    false,
		Remaining:  0,
		ResetAt:    windowEnd(now, cfg.Window).Unix(),
		RetryAfter: cfg.Window,
	}
}

func (l *Limiter) warnStoreFailure(identifier string, tier domain.Tier, err error) {
	if !l.warnGate.Allow() {
		return
	}
	l.log.Warn().
		Err(err).
		Str("identifier", identifier).
		Str("tier", string(tier)).
		Msg("counter store unavailable, failing open")
}

func windowEnd(now time.Time, window time.Duration) time.Time {
	windowMs := window.Milliseconds()
	idx := now.UnixMilli() / windowMs
	return time.UnixMilli((idx + 1) * windowMs)
}
