package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitConcurrentClients(t *testing.T) {
	l := NewLimiter(100, 100)
	defer l.Stop()
	h := RateLimit(okHandler(), l)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ip := fmt.Sprintf("10.0.0.%d", n)
			for j := 0; j < 20; j++ {
				rec := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
				req.Header.Set("X-Forwarded-For", ip)
				h.ServeHTTP(rec, req)
				if rec.Code != http.StatusOK {
					t.Errorf("client %s request %d: status %d", ip, j, rec.Code)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestRateLimitThrottlesAfterBurst(t *testing.T) {
	l := NewLimiter(2, 1)
	defer l.Stop()
	h := RateLimit(okHandler(), l)

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests rejected: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", codes[2])
	}

	// A different client has its own bucket.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.2")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("second client throttled: %d", rec.Code)
	}
}

func TestLimiterSweepDropsIdleBuckets(t *testing.T) {
	l := NewLimiter(5, 5)
	defer l.Stop()

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	if n := l.size(); n != 2 {
		t.Fatalf("buckets = %d, want 2", n)
	}

	l.sweepOnce(time.Now())
	if n := l.size(); n != 2 {
		t.Fatalf("fresh buckets swept: %d left", n)
	}

	l.sweepOnce(time.Now().Add(10 * time.Minute))
	if n := l.size(); n != 0 {
		t.Fatalf("idle buckets not swept: %d left", n)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:4312"
	if ip := clientIP(req); ip != "192.168.1.9" {
		t.Fatalf("remote addr ip = %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := clientIP(req); ip != "203.0.113.7" {
		t.Fatalf("forwarded ip = %q", ip)
	}
}

func TestIsLocalOrigin(t *testing.T) {
	for _, origin := range []string{
		"http://localhost:3000",
		"http://127.0.0.1:5173",
		"http://[::1]:8080",
	} {
		if !isLocalOrigin(origin) {
			t.Errorf("%s not recognised as local", origin)
		}
	}
	if isLocalOrigin("https://example.com") {
		t.Error("remote origin accepted")
	}
}
