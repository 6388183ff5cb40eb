package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	controller "funnelbot/controllers"
	"funnelbot/middleware"
)

// SetupRoutes registers the admin API and the Stripe webhook.
func SetupRoutes(app *fiber.App, fc *controller.FunnelController, pc *controller.PaymentController) {
	requestLog := logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	})

	// Public auth endpoints
	auth := app.Group("/auth", requestLog)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.Refresh)

	// Stripe webhook (authenticated by signature, not JWT)
	app.Post("/payment/webhook", requestLog, pc.StripeWebhook)

	// Admin API
	api := app.Group("/api/v1", requestLog, middleware.APIRateLimiter(), middleware.Protected())
	api.Get("/funnel/stats", fc.GetStats)
	api.Get("/funnel/templates", fc.ListTemplates)
	api.Post("/funnel/broadcast", fc.Broadcast)
	api.Post("/logs/prune", fc.PruneLogs)

	// Live delivery feed for the dashboard
	api.Use("/funnel/live", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/funnel/live", websocket.New(fc.LiveFeedWS))
}
