package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errStore struct{}

func (errStore) Increment(context.Context, string) (int64, error) {
	return 0, domain.ErrStoreUnavailable
}

func (errStore) Expire(context.Context, string, time.Duration) error {
	return domain.ErrStoreUnavailable
}

// ttlSpyStore registra se IncrementTTL foi usado no lugar do par
// Increment+Expire.
type ttlSpyStore struct {
	mu       sync.Mutex
	atomic   int
	twoStep  int
	counters map[string]int64
}

func newTTLSpyStore() *ttlSpyStore {
	return &ttlSpyStore{counters: make(map[string]int64)}
}

func (s *ttlSpyStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.twoStep++
	s.counters[key]++
	return s.counters[key], nil
}

func (s *ttlSpyStore) Expire(context.Context, string, time.Duration) error { return nil }

func (s *ttlSpyStore) IncrementTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.atomic++
	s.counters[key]++
	return s.counters[key], nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLimiter_SixthAuthRequestIsDenied(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 10, 0, time.UTC)
	store := infra.NewLocalCounterStore(infra.WithLocalClock(fixedClock(now)))
	l := NewLimiter(store, WithClock(fixedClock(now)))

	id := "192.168.1.100:/api/auth/login"
	for i := 1; i <= 5; i++ {
		res := l.CheckMultiple(context.Background(), id, domain.TierAuth)
		require.True(t, res.Allowed, "request %d should pass", i)
		assert.Equal(t, int64(5-i), res.Remaining, "request %d remaining", i)
	}

	res := l.CheckMultiple(context.Background(), id, domain.TierAuth)
	require.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.Greater(t, res.ResetAt, now.Unix())
}

func TestLimiter_IdentifiersAreIndependent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 10, 0, time.UTC)
	store := infra.NewLocalCounterStore(infra.WithLocalClock(fixedClock(now)))
	l := NewLimiter(store, WithClock(fixedClock(now)))

	for i := 0; i < 6; i++ {
		l.CheckMultiple(context.Background(), "10.0.0.1:/api/auth/login", domain.TierAuth)
	}
	require.False(t, l.CheckMultiple(context.Background(), "10.0.0.1:/api/auth/login", domain.TierAuth).Allowed)

	// outro IP no mesmo path não é afetado pelo esgotamento do primeiro.
	res := l.CheckMultiple(context.Background(), "10.0.0.2:/api/auth/login", domain.TierAuth)
	require.True(t, res.Allowed)
	assert.Equal(t, int64(4), res.Remaining)
}

func TestLimiter_ReturnsSmallestRemaining(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 10, 0, time.UTC)
	store := infra.NewLocalCounterStore(infra.WithLocalClock(fixedClock(now)))
	l := NewLimiter(store,
		WithClock(fixedClock(now)),
		WithTierLimits(map[domain.Tier][]domain.LimitConfig{
			domain.TierAPI: {
				{Limit: 100, Window: time.Hour},
				{Limit: 3, Window: time.Minute},
			},
		}),
	)

	res := l.CheckMultiple(context.Background(), "k", domain.TierAPI)
	require.True(t, res.Allowed)
	// a previsão é sempre a da restrição mais apertada (3/min), não 99.
	assert.Equal(t, int64(2), res.Remaining)
}

func TestLimiter_FirstViolationWins(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 10, 0, time.UTC)
	store := infra.NewLocalCounterStore(infra.WithLocalClock(fixedClock(now)))
	l := NewLimiter(store,
		WithClock(fixedClock(now)),
		WithTierLimits(map[domain.Tier][]domain.LimitConfig{
			domain.TierWeb: {
				{Limit: 2, Window: time.Minute},
				{Limit: 100, Window: time.Hour},
			},
		}),
	)

	l.CheckMultiple(context.Background(), "k", domain.TierWeb)
	l.CheckMultiple(context.Background(), "k", domain.TierWeb)
	res := l.CheckMultiple(context.Background(), "k", domain.TierWeb)
	require.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	// Retry-After aponta para o fim da janela de 1min violada, não da de 1h.
	assert.LessOrEqual(t, res.RetryAfter, time.Minute)
}

func TestLimiter_WindowRollsOver(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 59, 0, time.UTC)
	clock := &now
	nowFn := func() time.Time { return *clock }

	store := infra.NewLocalCounterStore(infra.WithLocalClock(nowFn))
	l := NewLimiter(store,
		WithClock(nowFn),
		WithTierLimits(map[domain.Tier][]domain.LimitConfig{
			domain.TierWeb: {{Limit: 1, Window: time.Minute}},
		}),
	)

	require.True(t, l.CheckMultiple(context.Background(), "k", domain.TierWeb).Allowed)
	require.False(t, l.CheckMultiple(context.Background(), "k", domain.TierWeb).Allowed)

	// próxima janela de 1min: a chave muda e o contador recomeça.
	next := now.Add(2 * time.Second)
	clock = &next
	require.True(t, l.CheckMultiple(context.Background(), "k", domain.TierWeb).Allowed)
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	l := NewLimiter(errStore{})

	res := l.CheckMultiple(context.Background(), "k", domain.TierAuth)
	require.True(t, res.Allowed)
	assert.GreaterOrEqual(t, res.Remaining, int64(0))
}

func TestLimiter_FailsClosedForMarkedTier(t *testing.T) {
	l := NewLimiter(errStore{}, WithFailClosed(domain.TierAuth))

	res := l.CheckMultiple(context.Background(), "k", domain.TierAuth)
	require.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// tiers não marcados continuam fail-open.
	require.True(t, l.CheckMultiple(context.Background(), "k", domain.TierAPI).Allowed)
}

func TestLimiter_AtomicExpiryPrefersIncrementTTL(t *testing.T) {
	spy := newTTLSpyStore()
	l := NewLimiter(spy, WithAtomicExpiry(true))

	l.CheckMultiple(context.Background(), "k", domain.TierWeb)
	assert.Equal(t, 1, spy.atomic)
	assert.Equal(t, 0, spy.twoStep)
}

func TestLimiter_TwoStepIncrementWhenAtomicDisabled(t *testing.T) {
	spy := newTTLSpyStore()
	l := NewLimiter(spy, WithAtomicExpiry(false))

	l.CheckMultiple(context.Background(), "k", domain.TierWeb)
	assert.Equal(t, 0, spy.atomic)
	assert.Equal(t, 1, spy.twoStep)
}
