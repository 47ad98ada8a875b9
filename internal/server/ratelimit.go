package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimiter hands out one token-bucket limiter per client address, refilled
// at perMinute tokens/min with a burst equal to that same rate.
type rateLimiter struct {
	mu        sync.Mutex
	perMinute int
	buckets   map[string]*rate.Limiter
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &rateLimiter{
		perMinute: perMinute,
		buckets:   make(map[string]*rate.Limiter),
	}
}

func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		interval := time.Minute / time.Duration(l.perMinute)
		b = rate.NewLimiter(rate.Every(interval), l.perMinute)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

// rateLimitMiddleware enforces RateLimitPerMinute requests per minute per
// remote address, using the token buckets above (golang.org/x/time/rate);
// it is not a sliding window, so a full burst is allowed at any point once
// the bucket has refilled.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(c.ClientIP()) {
			writeError(c, http.StatusTooManyRequests, 429, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
