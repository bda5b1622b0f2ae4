package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func allowed(rl *RateLimiter, ip string) bool {
	ok, _ := rl.allow(ip)
	return ok
}

func TestRateLimiterWithinLimit(t *testing.T) {
	rl := NewRateLimiter(5, 1*time.Minute)
	defer rl.Stop()
	for i := 0; i < 5; i++ {
		if !allowed(rl, "1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiterOverLimit(t *testing.T) {
	rl := NewRateLimiter(2, 1*time.Minute)
	defer rl.Stop()
	rl.allow("1.2.3.4") // 1
	rl.allow("1.2.3.4") // 2
	ok, wait := rl.allow("1.2.3.4")
	if ok {
		t.Fatal("should be rate limited")
	}
	if wait <= 0 || wait > 30*time.Second {
		t.Errorf("expected wait within one refill interval, got %v", wait)
	}
}

func TestRateLimiterTokenRefill(t *testing.T) {
	// Use a very short duration so tokens refill quickly
	rl := NewRateLimiter(1, 50*time.Millisecond)
	defer rl.Stop()
	rl.allow("1.2.3.4") // consume token
	if allowed(rl, "1.2.3.4") {
		t.Fatal("should be rate limited immediately")
	}
	time.Sleep(60 * time.Millisecond) // wait for refill
	if !allowed(rl, "1.2.3.4") {
		t.Fatal("token should have refilled")
	}
}

func TestRateLimiterDifferentIPs(t *testing.T) {
	rl := NewRateLimiter(1, 1*time.Minute)
	defer rl.Stop()
	rl.allow("1.1.1.1")
	if !allowed(rl, "2.2.2.2") {
		t.Fatal("different IP should have its own bucket")
	}
}

func TestRateLimiterEvictStale(t *testing.T) {
	rl := NewRateLimiter(1, 1*time.Minute)
	defer rl.Stop()
	rl.allow("1.1.1.1")

	rl.evictStale(time.Now().Add(11*time.Minute), 10*time.Minute)

	rl.mu.Lock()
	n := len(rl.clients)
	rl.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected stale entry to be evicted, %d remain", n)
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 1*time.Minute)
	rl.Stop()
	rl.Stop()
}

func TestRateLimiterMiddleware429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1, 1*time.Minute)
	defer rl.Stop()

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	// First request should pass
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest("GET", "/test", nil))
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}

	// Second request should be rate limited
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest("GET", "/test", nil))
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if w2.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
}
