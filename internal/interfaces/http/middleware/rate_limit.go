// internal/interfaces/http/middleware/rate_limit.go
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// WindowCounter counts hits in a fixed expiring window. The Redis client implements it.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit allows limit requests per client IP per minute, shared across
// instances through counter. With no counter, or when it errors, requests pass.
func RateLimit(counter WindowCounter, limit int, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}

		window := time.Now().Unix() / 60
		key := "rate_limit:" + c.ClientIP() + ":" + strconv.FormatInt(window, 10)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		current, err := counter.IncrWindow(ctx, key, time.Minute)
		cancel()
		if err != nil {
			log.WithError(err).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		remaining := int64(limit) - current
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if current > int64(limit) {
			retryAfter := 60 - time.Now().Unix()%60
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded, please slow down")
			return
		}

		c.Next()
	}
}
