package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func limitedRouter(counter Counter, limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/awards", func(c *gin.Context) {
		c.Set("caller", c.GetHeader("X-Caller"))
		c.Next()
	}, RateLimit(counter, "award", limit, time.Hour), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func hit(r http.Handler, caller string) int {
	req := httptest.NewRequest(http.MethodPost, "/awards", nil)
	req.Header.Set("X-Caller", caller)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit(t *testing.T) {
	counter := newFakeCounter()
	r := limitedRouter(counter, 2)

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		if got := hit(r, "chatbot"); got != want {
			t.Fatalf("request %d = %d, want %d", i+1, got, want)
		}
	}
	if got := hit(r, "quiz"); got != http.StatusOK {
		t.Errorf("other caller = %d, want %d", got, http.StatusOK)
	}

	if len(counter.expires) != 2 {
		t.Fatalf("expiry set for %d keys, want 2", len(counter.expires))
	}
	for key, ttl := range counter.expires {
		if ttl != time.Hour {
			t.Errorf("expiry for %s = %v, want 1h", key, ttl)
		}
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	tests := []struct {
		name    string
		counter Counter
		limit   int64
	}{
		{"nil counter", nil, 1},
		{"disabled", newFakeCounter(), 0},
		{"redis down", &fakeCounter{err: errors.New("connection refused")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := limitedRouter(tt.counter, tt.limit)
			for i := 0; i < 3; i++ {
				if got := hit(r, "chatbot"); got != http.StatusOK {
					t.Fatalf("request %d = %d, want %d", i+1, got, http.StatusOK)
				}
			}
		})
	}
}
