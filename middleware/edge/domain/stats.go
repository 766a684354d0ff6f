package domain

import (
	"context"
	"time"
)

// StatsOutcome identifica o desfecho de uma requisição no pipeline.
type StatsOutcome string

const (
	OutcomeAllowed     StatsOutcome = "allowed"
	OutcomeRateLimited StatsOutcome = "rate_limited"
	OutcomeCSRFReject  StatsOutcome = "csrf_rejected"
	OutcomeRedirected  StatsOutcome = "redirected"
)

// StatsEvent representa uma decisão do pipeline de borda.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings
// genéricas. Cuidado com cardinalidade ao persistir Key/Path sem controle.
type StatsEvent struct {
	Key     string
	Tier    Tier
	Outcome StatsOutcome

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do pipeline.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// O middleware deve tratar erro como best-effort (não derrubar request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
