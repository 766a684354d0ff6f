package domain

// Camada de domínio do rate limit por tier.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"errors"
	"time"
)

// Tier é uma classe de tráfego derivada do prefixo do path da requisição.
type Tier string

const (
	TierAuth Tier = "auth"
	TierAPI  Tier = "api"
	TierWeb  Tier = "web"
)

// TierForPath classifica o path em um tier.
//
// /api/auth* é o mais restrito; o restante de /api/* fica no tier api;
// todo o resto (páginas, assets) cai no tier web.
func TierForPath(path string) Tier {
	switch {
	case hasPrefix(path, "/api/auth"):
		return TierAuth
	case hasPrefix(path, "/api/"):
		return TierAPI
	default:
		return TierWeb
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// LimitConfig descreve uma restrição individual: no máximo Limit requisições
// dentro de Window. Imutável depois de criada.
type LimitConfig struct {
	Limit  int64
	Window time.Duration
}

// DefaultTierLimits retorna a tabela padrão de restrições por tier.
//
// Cada tier carrega uma lista ordenada; a primeira violação encontrada vence.
// Retorna sempre um mapa novo para que chamadores possam ajustar sem
// compartilhar estado.
func DefaultTierLimits() map[Tier][]LimitConfig {
	return map[Tier][]LimitConfig{
		TierAuth: {
			{Limit: 5, Window: time.Minute},
			{Limit: 20, Window: time.Hour},
		},
		TierAPI: {
			{Limit: 100, Window: time.Minute},
			{Limit: 1000, Window: time.Hour},
		},
		TierWeb: {
			{Limit: 300, Window: time.Minute},
		},
	}
}

// Result é o resultado de uma checagem de rate limit.
//
// Invariante: quando Allowed=false, Remaining é 0 e RetryAfter > 0.
type Result struct {
	Allowed   bool
	Remaining int64
	// ResetAt é o fim da janela em epoch seconds (para X-RateLimit-Reset).
	ResetAt int64
	// RetryAfter é a recomendação para o header Retry-After quando bloquear.
	RetryAfter time.Duration
}

// CounterStore abstrai contadores do tipo "incrementa e expira".
//
// Increment devolve o valor pós-incremento da chave; Expire define/renova o
// TTL. A implementação distribuída (Redis) faz duas chamadas de rede
// sequenciais; a local faz a contabilidade em memória sob mutex.
type CounterStore interface {
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// TTLCounterStore é uma capacidade opcional: incremento com expiração em uma
// única operação atômica. Consumidores devem detectar via type assertion e
// cair para Increment+Expire quando ausente.
type TTLCounterStore interface {
	IncrementTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// ErrStoreUnavailable indica que o backend de contadores não respondeu.
// A camada de aplicação decide entre fail-open e fail-closed.
var ErrStoreUnavailable = errors.New("counter store unavailable")
