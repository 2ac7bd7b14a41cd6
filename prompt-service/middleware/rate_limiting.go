package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"promptmaker-backend/shared/logger"
	"promptmaker-backend/shared/utils/metrics"
	"promptmaker-backend/shared/utils/ratelimit"
)

const fallbackClientKey = "127.0.0.1"

// ClientKey derives the rate limit key from X-Forwarded-For. Only meaningful
// behind a trusted proxy: direct clients all share the loopback key.
func ClientKey(c *gin.Context) string {
	forwarded := c.GetHeader("X-Forwarded-For")
	if forwarded == "" {
		return fallbackClientKey
	}
	first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
	if first == "" {
		return fallbackClientKey
	}
	return first
}

// RateLimitMiddleware - Throttles mutating requests per client key. GET requests pass untouched.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	cfg := limiter.Config()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		key := ClientKey(c)
		decision := limiter.Allow(c.Request.Context(), key)

		if decision.Degraded() {
			metrics.RateLimitDecisions.WithLabelValues("degraded").Inc()
			logger.Log.Warn("rate limiter store unavailable",
				zap.String("client", key),
				zap.String("policy", cfg.Policy.String()),
				zap.Error(decision.Err),
			)
			if decision.Allowed {
				c.Next()
				return
			}
			c.Header("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
			return
		}

		setRateLimitHeaders(c, decision)

		if !decision.Allowed {
			metrics.RateLimitDecisions.WithLabelValues("limited").Inc()
			logger.Log.Info("rate limit exceeded",
				zap.String("client", key),
				zap.String("path", c.FullPath()),
			)
			c.Header("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": cfg.Message})
			return
		}

		metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()
		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, d ratelimit.Decision) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}
