package application

import (
	"net/url"
	"strings"

	"edge-gateway/middleware/edge/domain"
)

// ScriptCDN é a origem fixa de scripts servidos por CDN, sempre presente em
// script-src junto com 'self' e o nonce da requisição.
const ScriptCDN = "https://cdn.jsdelivr.net"

// BuildCSPHeader monta o valor da Content-Security-Policy a partir da
// configuração imutável e do nonce gerado para a requisição corrente.
//
// A ordem das diretivas é fixa: default-src, script-src, style-src, font-src,
// img-src, connect-src, depois as diretivas de hardening e por fim o
// report-uri (se configurado).
func BuildCSPHeader(cfg domain.CSPConfig, nonce string) string {
	var nonceTok string
	if nonce != "" {
		nonceTok = "'nonce-" + nonce + "'"
	}

	script := []string{"'self'"}
	if nonceTok != "" {
		script = append(script, nonceTok)
	}
	script = append(script, ScriptCDN)
	script = append(script, cfg.ScriptDomains...)
	if cfg.Development {
		// hot reload injeta scripts inline e usa eval; só em desenvolvimento.
		script = append(script, "'unsafe-inline'", "'unsafe-eval'")
	}

	style := []string{"'self'"}
	if nonceTok != "" {
		style = append(style, nonceTok)
	}
	style = append(style, "'unsafe-inline'")
	style = append(style, cfg.StyleDomains...)
	style = append(style, cfg.FontDomains...)

	font := []string{"'self'"}
	font = append(font, cfg.FontDomains...)
	font = append(font, "data:")

	img := []string{"'self'", "data:", "https:", "blob:"}
	img = append(img, cfg.ImgDomains...)

	connect := []string{"'self'"}
	connect = append(connect, cfg.ConnectDomains...)
	if cfg.Development {
		connect = append(connect, "http://localhost:*", "ws://localhost:*")
	}

	directives := []string{
		"default-src 'self'",
		"script-src " + strings.Join(script, " "),
		"style-src " + strings.Join(style, " "),
		"font-src " + strings.Join(font, " "),
		"img-src " + strings.Join(img, " "),
		"connect-src " + strings.Join(connect, " "),
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
		"object-src 'none'",
		"worker-src 'self' blob:",
	}
	if cfg.ReportURI != "" {
		directives = append(directives, "report-uri "+cfg.ReportURI)
	}

	return strings.Join(directives, "; ")
}

// CSPHeaderName devolve o nome do header conforme o modo report-only.
func CSPHeaderName(cfg domain.CSPConfig) string {
	if cfg.ReportOnly {
		return "Content-Security-Policy-Report-Only"
	}
	return "Content-Security-Policy"
}

// ParseDomainList interpreta uma lista separada por vírgulas vinda do
// ambiente. Entradas malformadas são puladas em silêncio: um valor errado em
// uma variável de CSP não deve derrubar a inicialização.
func ParseDomainList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		u, err := url.Parse(item)
		if err != nil || u.Scheme == "" || u.Host == "" {
			continue
		}
		out = append(out, u.Scheme+"://"+u.Host)
	}
	return out
}

// ConnectSourcesFromAPI deriva as origens de connect-src a partir da URL
// primária da API: a própria origem mais a variante WebSocket
// (https -> wss, http -> ws).
func ConnectSourcesFromAPI(apiURL string) []string {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}

	origin := u.Scheme + "://" + u.Host
	wsScheme := "ws"
	if u.Scheme == "https" {
		wsScheme = "wss"
	}
	return []string{origin, wsScheme + "://" + u.Host}
}
