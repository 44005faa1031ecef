package middleware

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"erinnerungslicht-backend/pkg/apperror"
	"erinnerungslicht-backend/pkg/i18n"
	"erinnerungslicht-backend/pkg/metrics"
	"erinnerungslicht-backend/pkg/ratelimit"
	"erinnerungslicht-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Limiter ratelimit.Limiter
	// Custom key extractor (default: client IP)
	KeyFunc  func(*gin.Context) string
	Metrics  *metrics.Metrics
	Security *security.SecurityLogger
	Now      func() time.Time
}

// RateLimitMiddleware admits a bounded number of requests per key. Rejected
// requests never reach the handler; their error is written by ErrorHandler.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return func(c *gin.Context) {
		lang := GetLanguage(c)
		decision, err := config.Limiter.Allow(c.Request.Context(), config.KeyFunc(c))
		if err != nil {
			if errors.Is(err, ratelimit.ErrUnavailable) {
				slog.Error("Rate limiter unavailable", "request_id", GetRequestID(c), "error", err)
				c.Error(apperror.Unavailable(i18n.T(lang, i18n.MsgServerError), err))
				c.Abort()
				return
			}
			// any other limiter error admits the request
			slog.Warn("Rate limiter error, admitting request", "request_id", GetRequestID(c), "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter(config.Now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			config.Metrics.Submission(metrics.OutcomeRateLimited)
			config.Security.LogRateLimitTriggered(
				c.Request.Context(),
				c.ClientIP(),
				c.GetHeader("User-Agent"),
				GetRequestID(c),
				c.FullPath(),
			)

			c.Error(apperror.TooManyRequests(i18n.T(lang, i18n.MsgRateLimited), nil))
			c.Abort()
			return
		}

		c.Next()
	}
}
