package application

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutePolicy_Decide(t *testing.T) {
	p := NewRoutePolicy("example.com")

	tests := []struct {
		name     string
		host     string
		path     string
		redirect bool
		location string
		status   int
	}{
		{
			name:     "app path on www goes to app subdomain",
			host:     "www.example.com",
			path:     "/mail/inbox",
			redirect: true,
			location: "https://mail.example.com/mail/inbox",
			status:   http.StatusPermanentRedirect,
		},
		{
			name:     "app path on apex goes to app subdomain",
			host:     "example.com",
			path:     "/calendar/week",
			redirect: true,
			location: "https://mail.example.com/calendar/week",
			status:   http.StatusPermanentRedirect,
		},
		{name: "marketing root stays", host: "www.example.com", path: "/"},
		{name: "login stays on marketing", host: "www.example.com", path: "/login"},
		{name: "register stays on marketing", host: "www.example.com", path: "/register"},
		{
			name:     "app root goes to default view",
			host:     "mail.example.com",
			path:     "/",
			redirect: true,
			location: "/mail/inbox",
			status:   http.StatusTemporaryRedirect,
		},
		{name: "canonical app url never redirects again", host: "mail.example.com", path: "/mail/inbox"},
		{name: "other app paths pass through", host: "mail.example.com", path: "/settings/filters"},
		{name: "unknown host passes through", host: "other.example.org", path: "/mail/inbox"},
		{name: "prefix boundary is respected", host: "www.example.com", path: "/mailing-list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := p.Decide(tt.host, tt.path)
			assert.Equal(t, tt.redirect, dec.Redirect)
			if tt.redirect {
				assert.Equal(t, tt.location, dec.Location)
				assert.Equal(t, tt.status, dec.Status)
			}
		})
	}
}

func TestRoutePolicy_HostWithPortAndCase(t *testing.T) {
	p := NewRoutePolicy("example.com")

	dec := p.Decide("WWW.Example.com:8080", "/mail/inbox")
	assert.True(t, dec.Redirect)
	assert.Equal(t, "https://mail.example.com/mail/inbox", dec.Location)

	dec = p.Decide("mail.example.com:443", "/")
	assert.True(t, dec.Redirect)
	assert.Equal(t, "/mail/inbox", dec.Location)
}
