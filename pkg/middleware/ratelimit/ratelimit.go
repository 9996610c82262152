// Package ratelimit provides a per-client token bucket for gin routes.
package ratelimit

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
	"github.com/sankalp-sachan/ATTENDLY/pkg/response"
)

// KeyFunc extracts the bucket key for a request.
type KeyFunc func(c *gin.Context) string

// ClientIP keys buckets by the resolved client IP.
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}

type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newLimiterSet(requests int, window time.Duration) *limiterSet {
	if requests <= 0 {
		requests = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	burst := requests / 2
	if burst < 1 {
		burst = 1
	}
	return &limiterSet{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(requests) / window.Seconds()),
		burst:    burst,
	}
}

func (l *limiterSet) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.rate, l.burst)
	l.limiters[key] = limiter
	return limiter
}

// Middleware rejects requests exceeding requests per window for the same key.
func Middleware(requests int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ClientIP
	}
	set := newLimiterSet(requests, window)
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(c *gin.Context) {
		if !set.get(key(c)).Allow() {
			c.Header("Retry-After", retryAfter)
			response.Abort(c, appErrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
