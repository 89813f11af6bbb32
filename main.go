package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"prediction-engine/src/config"
	"prediction-engine/src/engine"
	"prediction-engine/src/handlers"
	"prediction-engine/src/logger"
	"prediction-engine/src/routes"
	"prediction-engine/src/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.InitLogger("info", "json", "")
		lg := logger.GetLogger()
		lg.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.InitLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	log := logger.GetLogger()

	log.Info().Msg("Initializing Prediction Market Engine")

	ledger := token.NewInMemory()
	marketEngine := engine.New(log, ledger, cfg.EscrowAccount, cfg.JudgeAccount)
	marketHandler := handlers.NewMarketHandler(marketEngine, ledger, cfg.EscrowAccount, cfg.FaucetAmount, cfg.MetricsMaxLatencies)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Str("error", err.Error()).
				Msg("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	routes.SetupRoutes(app, cfg, marketHandler)

	port := ":" + cfg.Port

	serverError := make(chan error, 1)

	go func() {
		if err := app.Listen(port); err != nil {
			// edge case: ignore shutdown errors, only report real errors
			errStr := err.Error()
			if errStr != "server is shutting down" {
				serverError <- err
			}
		}
	}()

	select {
	case err := <-serverError:
		log.Fatal().
			Err(err).
			Str("port", port).
			Str("hint", "Port may be already in use. Try: PORT=3000 go run main.go").
			Msg("Server failed to start")
	default:
		log.Info().
			Str("port", port).
			Str("judge", cfg.JudgeAccount).
			Msg("Prediction Market Engine started")

		log.Info().
			Strs("endpoints", []string{
				"POST   /api/v1/markets",
				"GET    /api/v1/markets",
				"GET    /api/v1/markets/:id",
				"POST   /api/v1/markets/:id/orders",
				"DELETE /api/v1/markets/:id/orders/:outcome/:orderID",
				"GET    /api/v1/markets/:id/orders/:outcome",
				"GET    /api/v1/markets/:id/depth/:outcome",
				"POST   /api/v1/markets/:id/sell",
				"GET    /api/v1/markets/:id/shares/:outcome",
				"POST   /api/v1/markets/:id/resolute",
				"POST   /api/v1/markets/:id/dispute",
				"POST   /api/v1/markets/:id/finalize",
				"POST   /api/v1/markets/:id/withdraw-stake",
				"GET    /api/v1/markets/:id/resolution-window",
				"GET    /api/v1/markets/:id/claimable",
				"POST   /api/v1/markets/:id/claim",
				"POST   /api/v1/faucet",
				"GET    /health",
				"GET    /metrics",
			}).
			Msg("API endpoints registered")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info().Msg("Received shutdown signal, shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		// edge case: timeout during shutdown is acceptable
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Dur("timeout", cfg.ShutdownTimeout).
				Msg("Timeout exceeded, shutting down...")
		} else {
			log.Error().
				Err(err).
				Msg("Error during shutdown")
		}
	} else {
		log.Info().Msg("Shutdown complete")
	}

	logger.CloseLogger()
}
