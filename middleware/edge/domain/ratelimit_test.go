package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTierForPath(t *testing.T) {
	assert.Equal(t, TierAuth, TierForPath("/api/auth/login"))
	assert.Equal(t, TierAuth, TierForPath("/api/auth"))
	assert.Equal(t, TierAPI, TierForPath("/api/contacts"))
	assert.Equal(t, TierWeb, TierForPath("/mail/inbox"))
	assert.Equal(t, TierWeb, TierForPath("/"))
	// /apixyz não é tier api: o prefixo inclui a barra.
	assert.Equal(t, TierWeb, TierForPath("/apixyz"))
}

func TestDefaultTierLimits(t *testing.T) {
	limits := DefaultTierLimits()

	assert.Equal(t, []LimitConfig{
		{Limit: 5, Window: time.Minute},
		{Limit: 20, Window: time.Hour},
	}, limits[TierAuth])
	assert.Len(t, limits[TierAPI], 2)
	assert.Len(t, limits[TierWeb], 1)

	// cada chamada devolve um mapa independente.
	limits[TierWeb] = nil
	assert.NotNil(t, DefaultTierLimits()[TierWeb])
}
