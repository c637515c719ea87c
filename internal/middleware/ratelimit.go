package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/ratelimit"
)

// RateLimitConfig holds configuration for the edge rate limiter
type RateLimitConfig struct {
	// Limit is reported in X-RateLimit-Limit; the window itself lives in
	// the limiter backend
	Limit int

	// KeyFunc generates the rate limit subject (default: IP-based)
	KeyFunc func(*gin.Context) string

	// ErrorHandler is called when rate limit is exceeded
	ErrorHandler func(*gin.Context)

	// SkipFunc determines if rate limiting should be skipped for this request
	SkipFunc func(*gin.Context) bool
}

// RateLimiter applies a sliding-window limiter in front of routes
type RateLimiter struct {
	limiter ratelimit.Limiter
	config  *RateLimitConfig
	log     zerolog.Logger
}

// NewRateLimiter creates a new rate limiter middleware
func NewRateLimiter(limiter ratelimit.Limiter, config *RateLimitConfig, log zerolog.Logger) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = IPBasedKey
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = defaultErrorHandler
	}
	if config.SkipFunc == nil {
		config.SkipFunc = func(c *gin.Context) bool {
			return false
		}
	}

	return &RateLimiter{
		limiter: limiter,
		config:  config,
		log:     log,
	}
}

// Middleware returns a Gin middleware function
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.config.SkipFunc(c) {
			c.Next()
			return
		}

		key := rl.config.KeyFunc(c)
		d, err := rl.limiter.CheckAndRecord(c.Request.Context(), key)

		// fail open: a limiter outage must not take redirects down
		if err != nil {
			rl.log.Warn().Err(err).Str("key", key).Msg("edge rate limiter error, failing open")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			c.Header("Retry-After", strconv.FormatInt(retryAfterSeconds(d.ResetAt, time.Now()), 10))
			rl.config.ErrorHandler(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

// retryAfterSeconds rounds up so clients never retry early
func retryAfterSeconds(resetAt, now time.Time) int64 {
	wait := resetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	return int64((wait + time.Second - 1) / time.Second)
}

func defaultErrorHandler(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error": "Rate limit exceeded. Please try again later.",
	})
}

// IPBasedKey generates a rate limit key based on client IP only
func IPBasedKey(c *gin.Context) string {
	return fmt.Sprintf("ip:%s", c.ClientIP())
}
