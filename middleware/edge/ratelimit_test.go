package edge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"
)

func TestRateLimitMiddleware_RemainingDecrements(t *testing.T) {
	limiter := application.NewLimiter(infra.NewLocalCounterStore())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := RateLimitMiddleware(RateLimitOptions{Limiter: limiter})(next)

	want := []string{"4", "3", "2"}
	for i, expect := range want {
		r := httptest.NewRequest(http.MethodGet, "http://example/api/auth/login", nil)
		r.Header.Set("x-real-ip", "1.2.3.4")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		if got := w.Header().Get("X-RateLimit-Remaining"); got != expect {
			t.Fatalf("request %d: expected remaining %s, got %q", i+1, expect, got)
		}
		if w.Header().Get("X-RateLimit-Reset") == "" {
			t.Fatalf("request %d: expected reset header", i+1)
		}
	}
}

func TestRateLimitMiddleware_BlockedResponseBody(t *testing.T) {
	limiter := application.NewLimiter(infra.NewLocalCounterStore())
	nextCalls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { nextCalls++ })
	h := RateLimitMiddleware(RateLimitOptions{Limiter: limiter})(next)

	var w *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/api/auth/login", nil)
		r.Header.Set("x-real-ip", "1.2.3.4")
		w = httptest.NewRecorder()
		h.ServeHTTP(w, r)
	}

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if nextCalls != 5 {
		t.Fatalf("expected next handler to run 5 times, ran %d", nextCalls)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}

	var body struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		RetryAfter int    `json:"retry_after"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Error != "rate_limited" {
		t.Fatalf("expected error rate_limited, got %q", body.Error)
	}
	if body.Message != "too many requests" {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if body.RetryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", body.RetryAfter)
	}
}

func TestRateLimitMiddleware_RecordsStats(t *testing.T) {
	limiter := application.NewLimiter(infra.NewLocalCounterStore())
	stats := &fakeStats{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := RateLimitMiddleware(RateLimitOptions{Limiter: limiter, Stats: stats})(next)

	for i := 0; i < 6; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/api/auth/login", nil)
		r.Header.Set("x-real-ip", "1.2.3.4")
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	if got := stats.byOutcome(domain.OutcomeAllowed); got != 5 {
		t.Fatalf("expected 5 allowed events, got %d", got)
	}
	if got := stats.byOutcome(domain.OutcomeRateLimited); got != 1 {
		t.Fatalf("expected 1 rate-limited event, got %d", got)
	}
	if ev := stats.events[0]; ev.Key != "1.2.3.4:/api/auth/login" || ev.Tier != domain.TierAuth {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestRateLimitMiddleware_NilLimiterPassesThrough(t *testing.T) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ })
	h := RateLimitMiddleware(RateLimitOptions{})(next)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example/", nil))
	if calls != 1 {
		t.Fatalf("expected pass-through without limiter")
	}
}
