package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCSRFPolicy_OnlyMutatingMethods(t *testing.T) {
	p := NewCSRFPolicy()

	for _, m := range []string{"POST", "PUT", "DELETE", "PATCH"} {
		assert.True(t, p.RequiresCheck(m, "/api/contacts"), m)
	}
	for _, m := range []string{"GET", "HEAD", "OPTIONS"} {
		assert.False(t, p.RequiresCheck(m, "/api/contacts"), m)
	}
}

func TestCSRFPolicy_WebhooksAreExempt(t *testing.T) {
	p := NewCSRFPolicy()

	assert.False(t, p.RequiresCheck("POST", "/api/webhook/stripe"))
	assert.True(t, p.Exempt("/api/webhook/stripe"))
	assert.False(t, p.Exempt("/api/contacts"))
}

func TestCSRFPolicy_CustomExemptPrefixes(t *testing.T) {
	p := NewCSRFPolicy("/api/hooks", "/internal")

	assert.True(t, p.Exempt("/api/hooks/github"))
	assert.True(t, p.Exempt("/internal/ping"))
	assert.False(t, p.Exempt("/api/webhook/stripe"))
}

func TestTokensMatch(t *testing.T) {
	assert.True(t, TokensMatch("tok-1", "tok-1"))
	assert.False(t, TokensMatch("tok-1", "tok-2"))
	assert.False(t, TokensMatch("", "tok-1"))
	assert.False(t, TokensMatch("tok-1", ""))
	assert.False(t, TokensMatch("", ""))
}
