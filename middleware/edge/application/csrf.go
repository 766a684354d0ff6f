package application

import (
	"crypto/subtle"
	"strings"
)

const (
	DefaultCSRFHeader = "x-csrf-token"
	DefaultCSRFCookie = "csrf-token"
)

// CSRFPolicy descreve a checagem double-submit-cookie.
//
// A emissão do cookie é responsabilidade da aplicação upstream; aqui a
// validade é definida apenas pela igualdade entre o token do header e o do
// cookie. Paths sob um prefixo isento (webhooks autenticados por assinatura
// do provedor) pulam a checagem inteira.
type CSRFPolicy struct {
	HeaderName     string
	CookieName     string
	ExemptPrefixes []string
}

// NewCSRFPolicy cria a política com os nomes padrão e os prefixos isentos
// informados (padrão: /api/webhook).
func NewCSRFPolicy(exemptPrefixes ...string) CSRFPolicy {
	if len(exemptPrefixes) == 0 {
		exemptPrefixes = []string{"/api/webhook"}
	}
	return CSRFPolicy{
		HeaderName:     DefaultCSRFHeader,
		CookieName:     DefaultCSRFCookie,
		ExemptPrefixes: exemptPrefixes,
	}
}

// RequiresCheck diz se a requisição está sujeita à validação CSRF:
// apenas métodos mutantes, e nunca sob um prefixo isento.
func (p CSRFPolicy) RequiresCheck(method, path string) bool {
	switch method {
	case "POST", "PUT", "DELETE", "PATCH":
	default:
		return false
	}
	return !p.Exempt(path)
}

// Exempt verifica se o path cai em algum prefixo isento.
func (p CSRFPolicy) Exempt(path string) bool {
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// TokensMatch compara os dois tokens apresentados em tempo constante.
// Tokens ausentes nunca validam.
func TokensMatch(headerToken, cookieToken string) bool {
	if headerToken == "" || cookieToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookieToken)) == 1
}
