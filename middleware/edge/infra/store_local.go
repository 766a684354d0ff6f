package infra

import (
	"context"
	"sync"
	"time"
)

// LocalCounterStore implementa domain.CounterStore em memória.
//
// É o fallback quando não há Redis configurado: aproximação best-effort de
// instância única, sem consistência entre réplicas. Não use em deploy
// horizontal sem o backend distribuído.
//
// Entradas expiradas são invalidadas de forma preguiçosa na leitura e
// removidas por uma varredura periódica determinística (ticker), nunca por
// sorteio no caminho quente.
type LocalCounterStore struct {
	mu      sync.Mutex
	entries map[string]*localEntry

	sweepEvery time.Duration
	now        func() time.Time
}

type localEntry struct {
	count       int64
	windowStart time.Time
	// expiresAt zero significa TTL ainda não definido (Expire não chamado).
	expiresAt time.Time
}

type LocalCounterOption func(*LocalCounterStore)

// WithSweepEvery ajusta o intervalo da varredura de entradas expiradas.
func WithSweepEvery(d time.Duration) LocalCounterOption {
	return func(s *LocalCounterStore) { s.sweepEvery = d }
}

// WithLocalClock troca a fonte de tempo (testes).
func WithLocalClock(now func() time.Time) LocalCounterOption {
	return func(s *LocalCounterStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewLocalCounterStore(opts ...LocalCounterOption) *LocalCounterStore {
	s := &LocalCounterStore{
		entries:    make(map[string]*localEntry),
		sweepEvery: time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment implementa domain.CounterStore.
func (s *LocalCounterStore) Increment(_ context.Context, key string) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil || e.expired(now) {
		e = &localEntry{count: 1, windowStart: now}
		s.entries[key] = e
		return 1, nil
	}
	e.count++
	return e.count, nil
}

// Expire implementa domain.CounterStore.
func (s *LocalCounterStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.entries[key]; e != nil {
		e.expiresAt = now.Add(ttl)
	}
	return nil
}

// IncrementTTL implementa domain.TTLCounterStore: a contabilidade e o TTL do
// primeiro escritor acontecem sob o mesmo lock.
func (s *LocalCounterStore) IncrementTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil || e.expired(now) {
		e = &localEntry{count: 1, windowStart: now, expiresAt: now.Add(ttl)}
		s.entries[key] = e
		return 1, nil
	}
	e.count++
	return e.count, nil
}

func (e *localEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Sweep remove todas as entradas já expiradas.
func (s *LocalCounterStore) Sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
		}
	}
}

// Len devolve o número de entradas vivas (observabilidade/testes).
func (s *LocalCounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor inicia uma goroutine que varre entradas expiradas
// periodicamente. Pare cancelando o contexto.
func (s *LocalCounterStore) StartJanitor(ctx context.Context) {
	if s.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(s.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}
