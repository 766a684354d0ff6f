// Package application contém os casos de uso do middleware de borda:
// decisão de rate limit por tier, montagem da CSP, validação CSRF e a
// política de roteamento por host.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Limiter.CheckMultiple(identifier, tier) retorna um domain.Result.
package application
