package middleware

import (
	"time"

	"github.com/arcade/backend/pkg/logger"
	"github.com/arcade/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
)

const MessageTooManyRequests = "Too many requests, please try again later"

// RateLimit caps requests per client IP within window. With a Redis client the
// counters are shared across instances; without one they live in process.
func RateLimit(redisClient *redis.Client, scope string, maxRequests int, window time.Duration) fiber.Handler {
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	if redisClient == nil {
		return limiter.New(limiter.Config{
			Max:        maxRequests,
			Expiration: window,
			KeyGenerator: func(c *fiber.Ctx) string {
				return scope + ":" + c.IP()
			},
			LimitReached: rejectRateLimited,
		})
	}

	return func(c *fiber.Ctx) error {
		key := "ratelimit:" + scope + ":" + c.IP()
		ctx := c.UserContext()

		pipe := redisClient.TxPipeline()
		incr := pipe.Incr(ctx, key)
		ttl := pipe.TTL(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			// Redis trouble lets the request through.
			logger.Error("rate_limit_redis_failed", err, map[string]interface{}{
				"scope": scope,
				"ip":    c.IP(),
			})
			return c.Next()
		}

		// The window starts with the first hit; later hits must not extend it.
		if windowUnset(ttl.Val()) {
			if err := redisClient.Expire(ctx, key, window).Err(); err != nil {
				logger.Error("rate_limit_redis_failed", err, map[string]interface{}{
					"scope": scope,
					"ip":    c.IP(),
				})
			}
		}

		if incr.Val() > int64(maxRequests) {
			return rejectRateLimited(c)
		}
		return c.Next()
	}
}

// windowUnset reports a TTL reply for a key without an expiry (-1) or one that
// vanished between commands (-2).
func windowUnset(ttl time.Duration) bool {
	return ttl < 0
}

func rejectRateLimited(c *fiber.Ctx) error {
	logger.Warn("rate_limit_exceeded", map[string]interface{}{
		"ip":   c.IP(),
		"path": c.Path(),
	})
	return utils.Error(c, fiber.StatusTooManyRequests, MessageTooManyRequests)
}
