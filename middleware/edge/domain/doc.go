// Package domain define contratos e tipos de domínio para o middleware de
// borda (rate limit por tier, CSP, CSRF e roteamento por host).
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar as regras de
// segurança de detalhes de infraestrutura (Redis, relógio, transporte).
package domain
