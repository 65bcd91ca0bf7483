package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Counter is the subset of *redis.Client used by RateLimit.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func rateLimitKey(caller, action string, window time.Duration, now time.Time) string {
	bucket := now.Unix() / int64(window/time.Second)
	return fmt.Sprintf("rate_limit:caller:%s:%s:%d", caller, action, bucket)
}

// RateLimit allows limit requests per caller per fixed window. It must run
// after RequireAuth. A nil counter, a non-positive limit or a Redis failure
// lets the request through.
func RateLimit(counter Counter, action string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 || window < time.Second {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := rateLimitKey(c.GetString("caller"), action, window, time.Now())
		current, err := counter.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("⚠️ Rate limit check failed: %v", err)
			c.Next()
			return
		}
		if current == 1 {
			if err := counter.Expire(ctx, key, window).Err(); err != nil {
				log.Printf("⚠️ Rate limit expiry failed: %v", err)
			}
		}

		if current > limit {
			c.Header("Retry-After", strconv.Itoa(int(window/time.Second)))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
