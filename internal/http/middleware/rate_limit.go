package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/youwow/affiliate/internal/app/ratelimit"
	infraPrometheus "github.com/youwow/affiliate/internal/infra/prometheus"
	httpUtil "github.com/youwow/affiliate/internal/http/util"
	"go.uber.org/zap"
)

// RateLimitConfig describes one logical limit applied per client identity.
type RateLimitConfig struct {
	Key    string
	Limit  int
	Window time.Duration
	// FailClosed rejects the request with 500 when the store is unavailable
	// instead of letting it through.
	FailClosed bool
}

// DefaultRateLimitConfig returns the generic API limit (60 requests per minute).
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Key:    "api",
		Limit:  60,
		Window: time.Minute,
	}
}

// RateLimit throttles requests by client identity using a fixed-window limiter.
// Rejections short-circuit with 429 and a Retry-After hint.
func RateLimit(limiter *ratelimit.Limiter, config RateLimitConfig, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := ratelimit.Options{
		Key:    config.Key,
		Limit:  config.Limit,
		Window: config.Window,
	}

	return func(c *fiber.Ctx) error {
		ip := httpUtil.ClientIP(c)

		result, err := limiter.Check(c.UserContext(), ip, opts)
		if err != nil {
			logger.Error("rate limit store error",
				zap.String("key", config.Key),
				zap.String("ip", ip),
				zap.Error(err),
			)
			if config.FailClosed {
				return httpUtil.Fail(c, fiber.StatusInternalServerError, "Internal Server Error")
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := result.RetryAfter(limiter.Now())
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retryAfter/time.Second)))
			infraPrometheus.RateLimitRejections.WithLabelValues(config.Key).Inc()
			logger.Warn("rate limit exceeded",
				zap.String("key", config.Key),
				zap.String("ip", ip),
			)
			return httpUtil.Fail(c, fiber.StatusTooManyRequests, "Too many requests, please try again later")
		}

		return c.Next()
	}
}
