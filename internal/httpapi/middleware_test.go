package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEdgePoolSweepsIdleClients(t *testing.T) {
	p := newEdgePool(10, 10)
	base := time.Now()

	p.get("1.1.1.1", base)
	p.get("2.2.2.2", base)
	if p.size() != 2 {
		t.Fatalf("pool size = %d, want 2", p.size())
	}

	// The first client stays active; the second goes quiet past the TTL.
	p.get("1.1.1.1", base.Add(5*time.Minute))
	p.get("3.3.3.3", base.Add(6*time.Minute+time.Second))

	if p.size() != 2 {
		t.Fatalf("pool size after sweep = %d, want 2", p.size())
	}
	p.mu.Lock()
	_, stale := p.buckets["2.2.2.2"]
	_, fresh := p.buckets["1.1.1.1"]
	p.mu.Unlock()
	if stale {
		t.Fatal("idle client survived the sweep")
	}
	if !fresh {
		t.Fatal("active client was swept")
	}
}

func TestRateLimitMiddlewareCapsBurst(t *testing.T) {
	handler := RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), 2, 1)

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Forwarded-For", "9.9.9.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if send() != http.StatusNoContent || send() != http.StatusNoContent {
		t.Fatal("burst of 2 should pass")
	}
	if send() != http.StatusTooManyRequests {
		t.Fatal("third immediate request should be limited")
	}

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Forwarded-For", "8.8.8.8")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("fresh client: expected 204, got %d", rec.Code)
	}
}
