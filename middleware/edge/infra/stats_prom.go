package infra

import (
	"context"

	"edge-gateway/middleware/edge/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PromStatsStore expõe as decisões do pipeline como contadores Prometheus.
type PromStatsStore struct {
	decisions *prometheus.CounterVec
}

// NewPromStatsStore registra as métricas no Registerer informado
// (normalmente prometheus.DefaultRegisterer).
func NewPromStatsStore(reg prometheus.Registerer) *PromStatsStore {
	v := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edge",
		Subsystem: "pipeline",
		Name:      "decisions_total",
		Help:      "Pipeline decisions by outcome and tier.",
	}, []string{"outcome", "tier"})
	reg.MustRegister(v)
	return &PromStatsStore{decisions: v}
}

func (s *PromStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.decisions.WithLabelValues(string(ev.Outcome), string(ev.Tier)).Inc()
	return nil
}

// MultiStats encadeia vários StatsStore; erros individuais não interrompem
// os demais (best-effort).
func MultiStats(stores ...domain.StatsStore) domain.StatsStore {
	return multiStats(stores)
}

type multiStats []domain.StatsStore

func (m multiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var firstErr error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
