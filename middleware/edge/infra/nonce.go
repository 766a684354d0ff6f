package infra

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const nonceBytes = 16

// NewNonce gera o token aleatório por requisição usado nas permissões de
// script/style inline da CSP.
//
// A fonte é sempre crypto/rand e o valor nunca é reaproveitado: cada chamada
// produz 16 bytes novos codificados em base64.
func NewNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
