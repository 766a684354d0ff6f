package edge

import (
	"net/http"
	"strings"
)

// UnknownClient é o sentinela usado quando nenhum header de proxy identifica
// o cliente. Todas essas requisições dividem o mesmo balde.
const UnknownClient = "unknown"

// ClientIP extrai o IP do cliente na borda: x-real-ip tem prioridade, depois
// o primeiro IP de x-forwarded-for (cliente original), senão o sentinela.
//
// RemoteAddr não entra na conta: atrás do balanceador ele é sempre o próprio
// proxy e colocaria todo o tráfego no mesmo balde do jeito errado.
func ClientIP(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("x-real-ip")); v != "" {
		return v
	}

	if xff := r.Header.Get("x-forwarded-for"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
	}

	return UnknownClient
}

// Identifier combina IP e path: endpoints diferentes do mesmo cliente são
// contados de forma independente.
func Identifier(r *http.Request) string {
	return ClientIP(r) + ":" + r.URL.Path
}
