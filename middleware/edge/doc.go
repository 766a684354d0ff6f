// Package edge fornece os adapters HTTP (net/http) do middleware de borda da
// plataforma: rate limit por tier, headers de segurança com CSP+nonce,
// validação CSRF e roteamento por host.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, CSP, CSRF, rotas) sem net/http
//   - infra: implementações concretas (Redis, memória, nonce, stats)
//   - edge (este pacote): middlewares HTTP + extração de identidade + tradução
//     para status/headers/JSON
//
// Fluxo por requisição:
//
//  1. Paths da lista de bypass (ex: o endpoint de report da CSP) pulam o
//     pipeline inteiro
//  2. Teto opcional de requisições simultâneas (pode encerrar com 503)
//  3. Rate limit por tier (pode encerrar com 429 + Retry-After)
//  4. Headers de segurança + CSP com nonce novo por requisição
//  5. Checagem CSRF em métodos mutantes (pode encerrar com 403)
//  6. Roteamento por host (pode encerrar com 307/308)
//  7. Pass-through para o próximo handler
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o
// comportamento, como EDGE_REDIS_ADDR, CSP_CONNECT_DOMAINS e BASE_DOMAIN.
package edge
