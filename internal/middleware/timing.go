package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const requestStartKey = "requestStart"

// RequestTimer stamps the request start so handlers can report latency.
func RequestTimer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(requestStartKey, time.Now())
		return c.Next()
	}
}

// Elapsed returns the time since RequestTimer ran, or zero without it.
func Elapsed(c *fiber.Ctx) time.Duration {
	start, ok := c.Locals(requestStartKey).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}
