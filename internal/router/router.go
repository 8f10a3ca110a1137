package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/unitmetrics/internal/config"
	"github.com/soltixdb/unitmetrics/internal/handlers"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/middleware"
	"github.com/soltixdb/unitmetrics/internal/services"
	"github.com/soltixdb/unitmetrics/internal/store"
	"github.com/soltixdb/unitmetrics/internal/telemetry"
)

// Dependencies are the components the routes are served from
type Dependencies struct {
	Metrics   *services.MetricsService
	Store     store.Store
	Telemetry *telemetry.Metrics
	Version   string
}

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, deps Dependencies, cfg config.Config) *handlers.Handler {
	h := handlers.New(logger, deps.Metrics, deps.Store, deps.Version)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID,user-id,userid",
	}))
	app.Use(logging.FiberMiddlewareWithConfig(logger, logging.MiddlewareConfig{
		SkipPaths: []string{"/health", cfg.Metrics.Path},
	}))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	if cfg.Metrics.Enabled && deps.Telemetry != nil {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(deps.Telemetry.Handler()))
	}

	// API v1 routes (API key, then owner header)
	v1 := app.Group("/v1",
		middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled),
		middleware.RequireUserID(logger),
	)

	v1.Post("/metrics", h.CreateMetric)
	v1.Get("/metrics", h.QueryMetrics)
	v1.Post("/metrics/query", h.QueryMetricsPost)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, deps Dependencies, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "unitmetrics",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, deps, cfg)

	return app
}
