package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/spothole/spothole-api/internal/config"
	"github.com/spothole/spothole-api/internal/handlers"
	"github.com/spothole/spothole-api/internal/metrics"
	"github.com/spothole/spothole-api/internal/middleware"
)

type Handlers struct {
	Pothole *handlers.PotholeHandler
	Comment *handlers.CommentHandler
	Upvote  *handlers.UpvoteHandler
	Upload  *handlers.UploadHandler
	Geocode *handlers.GeocodeHandler
	Health  *handlers.HealthHandler
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers, m *metrics.Metrics) {
	if m != nil {
		app.Get("/metrics", m.Handler())
	}

	api := app.Group("/api")

	// General API rate limit per IP
	api.Use(perIPLimiter(cfg.RateLimitPerMinute))

	api.Get("/health", h.Health.Check)

	// Writes get a stricter per-IP limit on top
	writes := perIPLimiter(cfg.WriteLimitPerMinute)

	potholes := api.Group("/potholes")
	potholes.Get("", h.Pothole.List)
	potholes.Post("", writes, middleware.OptionalSession(cfg), h.Pothole.Create)
	potholes.Get("/:id", h.Pothole.Get)

	potholes.Get("/:id/comments", h.Comment.List)
	potholes.Post("/:id/comments", writes, middleware.JWTProtected(cfg), h.Comment.Create)
	potholes.Post("/:id/upvote", writes, middleware.JWTProtected(cfg), h.Upvote.Toggle)

	api.Post("/s3-upload", writes, h.Upload.Presign)
	api.Get("/geocode", h.Geocode.Reverse)
}

func perIPLimiter(max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests",
			})
		},
	})
}
