package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	l := NewMemoryLimiter(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("request %d: got (%v, %v), want allowed", i+1, ok, err)
		}
	}
	ok, err := l.Allow(ctx, "1.2.3.4")
	if err != nil || ok {
		t.Fatalf("4th request: got (%v, %v), want denied", ok, err)
	}

	// A different caller has its own window.
	ok, err = l.Allow(ctx, "5.6.7.8")
	if err != nil || !ok {
		t.Fatalf("other caller: got (%v, %v), want allowed", ok, err)
	}
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:4312"
	if got := clientKey(r); got != "10.0.0.9" {
		t.Errorf("remote addr key = %q, want 10.0.0.9", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientKey(r); got != "203.0.113.7" {
		t.Errorf("forwarded key = %q, want 203.0.113.7", got)
	}
}

func TestWithRateLimit_Denies(t *testing.T) {
	l := NewMemoryLimiter(1, time.Hour)
	h := WithRateLimit(l, nil, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:999"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request: got %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rec.Code)
	}
}
