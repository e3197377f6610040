package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/evergift/evergift/app/models"
	"github.com/evergift/evergift/internal/pkg/audit"
	"github.com/evergift/evergift/internal/pkg/ratelimit"
)

// RateLimit guards an endpoint with a fixed-window quota keyed on
// endpoint, client IP and user agent. Store failures surface as 500
// rather than letting traffic through unmetered.
func RateLimit(limiter *ratelimit.Limiter, sink *audit.Sink, endpoint string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := ratelimit.DeriveKey(endpoint, c.IP(), c.Get(fiber.HeaderUserAgent))

		result, err := limiter.CheckAndConsume(key, limit, window)
		if err != nil {
			log.Errorf("rate limiter store failure on %s: %v", endpoint, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal_server_error",
				"message": "Please try again later",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", result.ResetAt.UTC().Format(time.RFC3339))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			if sink != nil {
				sink.Record(audit.Event{
					Action:    models.AuditActionRateLimited,
					IPAddress: c.IP(),
					UserAgent: c.Get(fiber.HeaderUserAgent),
					Metadata:  map[string]any{"endpoint": endpoint},
				})
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests, please slow down",
			})
		}

		return c.Next()
	}
}
