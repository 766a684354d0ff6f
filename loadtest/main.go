// Cliente de validação: dispara uma rajada de requisições contra o gateway e
// resume quantas passaram, quantas tomaram 429 e o primeiro Retry-After visto.
//
// Uso típico, com o gateway rodando local:
//
//	go run ./loadtest -url http://localhost:8080/api/auth/login -n 10
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	url := flag.String("url", "http://localhost:8080/api/auth/login", "URL alvo")
	n := flag.Int("n", 10, "número de requisições sequenciais")
	ip := flag.String("ip", "203.0.113.7", "valor enviado em x-real-ip")
	flag.Parse()

	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	var allowed, limited, other int
	firstRetryAfter := ""

	for i := 1; i <= *n; i++ {
		req, err := http.NewRequest(http.MethodGet, *url, nil)
		if err != nil {
			fmt.Printf("request inválida: %s\n", err)
			os.Exit(1)
		}
		req.Header.Set("x-real-ip", *ip)

		resp, err := client.Do(req)
		if err != nil {
			fmt.Printf("erro na requisição %d: %s\n", i, err)
			os.Exit(1)
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			limited++
			if firstRetryAfter == "" {
				firstRetryAfter = resp.Header.Get("Retry-After")
			}
		case resp.StatusCode < 400:
			allowed++
		default:
			other++
		}
		fmt.Printf("req %2d -> %d (remaining=%s)\n",
			i, resp.StatusCode, resp.Header.Get("X-RateLimit-Remaining"))
	}

	fmt.Printf("\npermitidas=%d limitadas=%d outras=%d\n", allowed, limited, other)
	if limited > 0 {
		fmt.Printf("primeiro Retry-After: %s\n", firstRetryAfter)
	}
}
