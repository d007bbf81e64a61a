package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/metrics"
	"github.com/feek13/mini-social-sub003/internal/ratelimit"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitIdentifier keys the caller by user id when authenticated, by
// client IP otherwise.
func RateLimitIdentifier(c *gin.Context) string {
	if userID := util.OptionalUserID(c); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// RateLimit throttles a route with rule. Limiter failures are logged and the
// request goes through: the throttle is best-effort, not a security boundary.
func RateLimit(limiter ratelimit.Limiter, rule ratelimit.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		identifier := RateLimitIdentifier(c)
		metrics.RecordRateLimitCheck(rule.String(), limiter.Backend())

		res, err := limiter.Check(c.Request.Context(), identifier, rule)
		if err != nil {
			logger.Log.Error("Rate limit check failed, allowing request",
				zap.String("identifier", identifier),
				zap.String("rule", rule.String()),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			retryAfter := res.RetryAfter(time.Now())
			metrics.RecordRateLimitExceeded(rule.String(), c.Request.Method)
			logger.Log.Warn("Rate limit exceeded",
				zap.String("identifier", identifier),
				zap.String("rule", rule.String()),
				zap.String("path", c.FullPath()),
			)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"code":        "RATE_LIMITED",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}
