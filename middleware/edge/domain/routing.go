package domain

// RouteDecision é o resultado da política de roteamento por host+path.
//
// Quando Redirect=true, Location carrega o destino (absoluto ou relativo) e
// Status o código HTTP (307/308). Caso contrário a requisição segue intacta.
type RouteDecision struct {
	Redirect bool
	Location string
	Status   int
}
