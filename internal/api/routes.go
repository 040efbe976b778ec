package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	_ "push-dispatcher/docs"

	"push-dispatcher/internal/auth"
	"push-dispatcher/internal/observability"
	"push-dispatcher/internal/rate"
)

func SetupRoutes(
	app *fiber.App,
	logger *zap.Logger,
	metrics *observability.Metrics,
	handlers *Handlers,
	authService *auth.Service,
	rateLimiter *rate.Limiter,
) {
	// Set up middleware
	SetupMiddleware(app, logger, metrics, rateLimiter)

	// Health endpoints (no auth required)
	app.Get("/health", handlers.Health)
	app.Get("/readyz", handlers.Ready)

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// OpenAPI spec (served from the generated docs package)
	app.Get("/swagger/doc.json", func(c *fiber.Ctx) error {
		doc, err := swag.ReadDoc()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "spec unavailable"})
		}
		c.Set("Content-Type", "application/json")
		return c.SendString(doc)
	})

	// Notification endpoints (requires auth)
	notifications := app.Group("/notifications", authService.RequireAPIKey())
	notifications.Post("/", handlers.CreateNotification)
	notifications.Get("/", handlers.ListNotifications)
	notifications.Get("/:id", handlers.GetNotification)
	notifications.Post("/:id/requeue", handlers.RequeueNotification)
}
