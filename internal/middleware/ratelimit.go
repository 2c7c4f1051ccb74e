package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyedLimiter keeps one token bucket per key (client IP, staff id, ...).
type KeyedLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*rate.Limiter
}

func NewKeyedLimiter(perMinute float64, burst int) *KeyedLimiter {
	perSecond := perMinute / 60.0
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &KeyedLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		visitors: make(map[string]*rate.Limiter),
	}
}

func (k *KeyedLimiter) obtain(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()
	limiter, ok := k.visitors[key]
	if !ok {
		limiter = rate.NewLimiter(k.limit, k.burst)
		k.visitors[key] = limiter
	}
	return limiter
}

// Allow consumes one token for key.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.obtain(key).Allow()
}

// Exhausted reports whether key has no token left, without consuming one.
func (k *KeyedLimiter) Exhausted(key string) bool {
	return k.obtain(key).Tokens() < 1
}

// RateLimitMiddleware throttles requests per client IP.
func RateLimitMiddleware(k *KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !k.Allow(c.ClientIP()) {
			c.JSON(429, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
