package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimit is a fixed-window per-IP limiter backed by Redis. When Redis is
// unreachable requests are let through.
func RateLimit(client *redis.Client, name string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || limit <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("ratelimit:%s:%s", name, c.ClientIP())

		// A counter left without expiry is repaired by the next hit.
		var incr *redis.IntCmd
		var ttlCmd *redis.DurationCmd
		_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttlCmd = pipe.TTL(ctx, key)
			return nil
		})
		ttl := window
		if err == nil {
			if ttlCmd.Val() < 0 {
				err = client.Expire(ctx, key, window).Err()
			} else {
				ttl = ttlCmd.Val()
			}
		}
		if err != nil {
			GetLoggerFromContext(c).Warn("Rate limiter unavailable", map[string]interface{}{
				"limiter": name,
				"error":   err.Error(),
			})
			c.Next()
			return
		}

		count := int(incr.Val())
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > limit {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			apperrors.TooManyRequests(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
