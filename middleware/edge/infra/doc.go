// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - RedisCounterStore: contadores incrementa-e-expira no Redis (go-redis)
//   - LocalCounterStore: contadores em memória com varredura periódica
//   - NewNonce: nonce criptográfico por requisição (crypto/rand)
//   - RedisStatsStore / PromStatsStore: persistência de decisões do pipeline
package infra
