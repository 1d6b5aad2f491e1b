package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"roomclean/internal/pkg/response"
)

const visitorIdle = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *RateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// Cleanup drops idle callers every minute until ctx is done.
func (l *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *RateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-visitorIdle)
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
		}
	}
}

// Middleware keys authenticated callers by user id and everyone else by IP.
// Mount it after JWTAuth so the user id is known.
func (l *RateLimiter) Middleware(tier string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := "ip:" + c.ClientIP()
		if id := c.GetInt64(ctxUserID); id > 0 {
			identity = fmt.Sprintf("user:%d", id)
		}

		if !l.get(identity + ":" + tier).Allow() {
			c.Header("Retry-After", "1")
			response.Abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}
		c.Next()
	}
}
