package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter in Redis, keyed per caller.
type RateLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (r *RateLimiter) ByUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if claims := Claims(c); claims != nil {
			key = claims.UserID
		}
		redisKey := fmt.Sprintf("%s:ratelimit:%s", r.prefix, key)
		count, err := r.rdb.Incr(c.Context(), redisKey).Result()
		if err != nil {
			// limiter outage must not take the API down
			return c.Next()
		}
		if count == 1 {
			r.rdb.Expire(c.Context(), redisKey, r.window)
		}
		if count > int64(r.limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
