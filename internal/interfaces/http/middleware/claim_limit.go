// internal/interfaces/http/middleware/claim_limit.go
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ClaimLimiter throttles gift claims per client address. State is in-process
// and resets on restart.
type ClaimLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastGC   time.Time
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClaimLimiter allows burst claims per window, refilling evenly across it.
func NewClaimLimiter(burst int, window time.Duration) *ClaimLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ClaimLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(burst)),
		burst:    burst,
		idleTTL:  window,
		now:      time.Now,
	}
}

// Allow reports whether key may claim now, and otherwise how long to wait.
func (l *ClaimLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.gc(now)

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// gc drops visitors idle for longer than a full window; their buckets are full again anyway.
func (l *ClaimLimiter) gc(now time.Time) {
	if now.Sub(l.lastGC) < l.idleTTL {
		return
	}
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idleTTL {
			delete(l.visitors, k)
		}
	}
	l.lastGC = now
}

// Middleware rejects over-limit claims with 429
func (l *ClaimLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := l.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			abort(c, http.StatusTooManyRequests, "CLAIM_RATE_LIMITED", "Too many claim attempts, please try again later")
			return
		}
		c.Next()
	}
}
