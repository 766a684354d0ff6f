package application

import (
	"net"
	"net/http"
	"strings"

	"edge-gateway/middleware/edge/domain"
)

// DefaultAppPrefixes são as áreas de aplicação servidas no subdomínio de app.
func DefaultAppPrefixes() []string {
	return []string{"/mail", "/calendar", "/chat", "/contacts", "/settings"}
}

// RoutePolicy é a tabela fixa de roteamento por host+path.
//
// Paths de aplicação pedidos no host de marketing (apex/www) são
// redirecionados para o mesmo path no subdomínio de app (308); o root do
// subdomínio de app vai para a view canônica (307). Redirecionamentos são
// idempotentes: uma URL já canônica nunca redireciona de novo.
type RoutePolicy struct {
	// MarketingHosts cobre o apex e o www (ex: example.com, www.example.com).
	MarketingHosts []string
	// AppHost é o subdomínio de aplicação (ex: mail.example.com).
	AppHost string
	// AppPrefixes são os prefixos de área de aplicação (/mail, /calendar...).
	AppPrefixes []string
	// DefaultView é o destino do root do AppHost (ex: /mail/inbox).
	DefaultView string
	// Scheme usado nos redirecionamentos cross-host (padrão https).
	Scheme string
}

// NewRoutePolicy monta a política a partir do domínio base (ex: example.com).
func NewRoutePolicy(baseDomain string) RoutePolicy {
	return RoutePolicy{
		MarketingHosts: []string{baseDomain, "www." + baseDomain},
		AppHost:        "mail." + baseDomain,
		AppPrefixes:    DefaultAppPrefixes(),
		DefaultView:    "/mail/inbox",
		Scheme:         "https",
	}
}

// Decide aplica a tabela de roteamento ao par host+path.
func (p RoutePolicy) Decide(host, path string) domain.RouteDecision {
	h := normalizeHost(host)

	if h == strings.ToLower(p.AppHost) {
		if path == "/" || path == "" {
			return domain.RouteDecision{
				Redirect: true,
				Location: p.DefaultView,
				Status:   http.StatusTemporaryRedirect,
			}
		}
		return domain.RouteDecision{}
	}

	for _, mh := range p.MarketingHosts {
		if h != strings.ToLower(mh) {
			continue
		}
		if p.isAppPath(path) {
			scheme := p.Scheme
			if scheme == "" {
				scheme = "https"
			}
			return domain.RouteDecision{
				Redirect: true,
				Location: scheme + "://" + p.AppHost + path,
				Status:   http.StatusPermanentRedirect,
			}
		}
		return domain.RouteDecision{}
	}

	return domain.RouteDecision{}
}

func (p RoutePolicy) isAppPath(path string) bool {
	for _, prefix := range p.AppPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil && h != "" {
		host = h
	}
	return strings.ToLower(host)
}
