package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"svend-go-be/config"
	"svend-go-be/database"
	"svend-go-be/handlers"
	"svend-go-be/plaid"
	"svend-go-be/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Seed(db); err != nil {
		log.Fatalf("seed categories: %v", err)
	}

	st := store.New(db, cfg.Sync.BatchSize, time.Duration(cfg.Sync.BatchDelayMilli)*time.Millisecond)
	plaidClient := plaid.NewHTTPClient(cfg.Plaid.BaseURL, cfg.Plaid.ClientID, cfg.Plaid.Secret)
	h := handlers.New(st, plaidClient, cfg.Gemini)

	app := fiber.New()

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-User-ID",
	}))

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Linked accounts
	api.Post("/plaid/exchange", h.PlaidExchange)
	api.Post("/plaid/sync", h.PlaidSync)
	api.Delete("/plaid/items/:id", h.PlaidDisconnect)

	// Transactions
	api.Post("/transactions", h.CreateManualTransaction)
	api.Put("/transactions/recategorize", h.Recategorize)
	api.Post("/import/csv", h.ImportCSV)

	// Spending analysis
	api.Post("/budgets/:id/analyze-spending", h.AnalyzeSpending)
	api.Get("/budgets/:id/recommendations", h.GetRecommendations)
	api.Get("/analyze", h.AnalyzeUncategorized)

	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
