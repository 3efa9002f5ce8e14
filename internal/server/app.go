package server

import (
	"errors"
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spothole/spothole-api/internal/cache"
	"github.com/spothole/spothole-api/internal/config"
	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/handlers"
	"github.com/spothole/spothole-api/internal/metrics"
	"github.com/spothole/spothole-api/internal/middleware"
	"github.com/spothole/spothole-api/internal/routes"
	"github.com/spothole/spothole-api/internal/services"
	"github.com/spothole/spothole-api/internal/store"
)

// Deps are the collaborators the HTTP app is built from. Cache, Geocoder,
// Presigner and Metrics are optional.
type Deps struct {
	Store     store.PotholeStore
	Users     store.UserDirectory
	Cache     cache.ListCache
	Geocoder  services.AddressLookup
	Presigner services.Presigner
	Metrics   *metrics.Metrics

	// Sentry wires the error-tracking middleware.
	Sentry bool
	// AccessLog enables the per-request log line.
	AccessLog bool
}

// New builds the Fiber app with middleware and routes.
func New(cfg *config.Config, deps Deps) *fiber.App {
	potholeService := services.NewPotholeService(deps.Store, deps.Cache, storeGeocoder(cfg, deps.Geocoder))
	if deps.Metrics != nil {
		potholeService.ObserveCache(deps.Metrics.RecordCacheLookup)
	}

	var filter *services.ContentFilter
	if cfg.CommentFilterEnabled {
		filter = services.NewContentFilter()
	}
	commentService := services.NewCommentService(deps.Store, deps.Users, filter, potholeService, cfg.CommentsPageSize)
	upvoteService := services.NewUpvoteService(deps.Store, deps.Users, potholeService)

	var uploadService *services.UploadService
	if deps.Presigner != nil {
		uploadService = services.NewUploadService(deps.Presigner, cfg.S3Bucket, cfg.UploadURLExpiry)
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: ErrorHandler,
	})

	if deps.Sentry {
		app.Use(sentryfiber.New(sentryfiber.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}

	app.Use(middleware.RequestTimer())
	app.Use(recover.New())
	app.Use(requestid.New())
	if deps.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
		}))
	}
	if deps.Metrics != nil {
		app.Use(middleware.Metrics(deps.Metrics))
	}
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	routes.Setup(app, cfg, routes.Handlers{
		Pothole: handlers.NewPotholeHandler(potholeService, deps.Metrics),
		Comment: handlers.NewCommentHandler(commentService, deps.Metrics),
		Upvote:  handlers.NewUpvoteHandler(upvoteService, deps.Metrics),
		Upload:  handlers.NewUploadHandler(uploadService),
		Geocode: handlers.NewGeocodeHandler(deps.Geocoder),
		Health:  handlers.NewHealthHandler(deps.Store),
	}, deps.Metrics)

	return app
}

// storeGeocoder returns the lookup used at report creation, which only
// runs when enabled in config.
func storeGeocoder(cfg *config.Config, g services.AddressLookup) services.AddressLookup {
	if !cfg.GeocoderEnabled {
		return nil
	}
	return g
}

// ErrorHandler answers errors that escape handlers (unknown routes, body
// limits, recovered panics) with the standard envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Server Error"
	}

	return c.Status(code).JSON(dto.Fail(message))
}
