package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitMiddleware allows limit requests per window per route and
// client. It fails open when redis is unavailable or not configured.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || limit <= 0 {
			return c.Next()
		}

		key := fmt.Sprintf("rl:%s:%s", c.Route().Path, c.IP())
		ctx := c.UserContext()

		pipe := rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Debug("rate limit check failed", zap.Error(err))
			return c.Next()
		}

		count := incr.Val()
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		if remaining := int64(limit) - count; remaining > 0 {
			c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		} else {
			c.Set("X-RateLimit-Remaining", "0")
		}

		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}

		return c.Next()
	}
}
