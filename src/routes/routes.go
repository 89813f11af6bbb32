package routes

import (
	"github.com/gofiber/fiber/v2"

	"prediction-engine/src/config"
	"prediction-engine/src/handlers"
	"prediction-engine/src/middleware"
)

func SetupRoutes(app *fiber.App, cfg *config.Config, marketHandler *handlers.MarketHandler) {
	serviceAvailability := middleware.NewServiceAvailability(cfg.MaxConcurrentRequests, cfg.MaintenanceMode)
	app.Use(serviceAvailability.Middleware())
	app.Use(middleware.RequestLogger(cfg.RequestLoggingDisabled))

	api := app.Group("/api/v1")

	if !cfg.RateLimitDisabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		api.Use(rateLimiter.Middleware())
	}

	api.Post("/markets", marketHandler.CreateMarket)
	api.Get("/markets", marketHandler.ListMarkets)
	api.Get("/markets/:id", marketHandler.GetMarket)

	api.Post("/markets/:id/orders", marketHandler.PlaceOrder)
	api.Delete("/markets/:id/orders/:outcome/:orderID", marketHandler.CancelOrder)
	api.Get("/markets/:id/orders/:outcome", marketHandler.GetOrders)
	api.Get("/markets/:id/depth/:outcome", marketHandler.GetSellDepth)
	api.Post("/markets/:id/sell", marketHandler.MarketSell)
	api.Get("/markets/:id/shares/:outcome", marketHandler.GetShareBalance)

	api.Post("/markets/:id/resolute", marketHandler.Resolute)
	api.Post("/markets/:id/dispute", marketHandler.Dispute)
	api.Post("/markets/:id/finalize", marketHandler.Finalize)
	api.Post("/markets/:id/withdraw-stake", marketHandler.WithdrawStake)
	api.Get("/markets/:id/resolution-window", marketHandler.GetResolutionWindow)
	api.Get("/markets/:id/claimable", marketHandler.GetClaimable)
	api.Post("/markets/:id/claim", marketHandler.Claim)

	api.Post("/faucet", marketHandler.Faucet)
	api.Post("/allowance", marketHandler.SetAllowance)
	api.Get("/balance/:account", marketHandler.GetBalance)

	app.Get("/health", marketHandler.HealthCheck)
	app.Get("/metrics", marketHandler.Metrics)
}
