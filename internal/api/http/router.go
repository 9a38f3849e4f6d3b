package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/meal-tickets/internal/api/http/handlers"
	"github.com/spec-kit/meal-tickets/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	tickets := app.Group("/api/tickets")
	tickets.Post("/", cfg.Tickets.CreateTickets)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/consume", cfg.Tickets.ConsumeTicket)
	tickets.Get("/stats", cfg.Tickets.Stats)
}

// NewApp builds the fiber app with global middlewares and routes.
func NewApp(appName string, mw MiddlewareConfig, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, mw)
	RegisterRoutes(app, routes)
	return app
}
