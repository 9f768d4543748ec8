package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/shelfscan/shelfscan/internal/config"
	"github.com/shelfscan/shelfscan/internal/database"
	"github.com/shelfscan/shelfscan/internal/handlers"
	"github.com/shelfscan/shelfscan/internal/middleware"
	"github.com/shelfscan/shelfscan/internal/services"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	// Load configuration
	cfg := config.Load()
	config.SetupLogger(cfg)

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Initialize S3 photo storage, if configured. Without it, scans still
	// work but photos are not retained.
	var storage *services.StorageService
	if cfg.StorageConfigured() {
		storage, err = services.NewStorageService(
			cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey,
			cfg.S3Bucket, cfg.S3Region, cfg.S3UseSSL,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize photo storage")
		}
		if err := storage.EnsureBucket(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure photo bucket")
		}
	} else {
		log.Warn().Msg("S3 storage not configured, product photos will not be retained")
	}

	// OCR and attribute extraction. Ollama first, regex heuristics as the
	// degraded path when no model is reachable.
	ocr := services.NewOCRService(cfg.OCRLanguage, cfg.OCRWorkers)
	chain := services.NewExtractionChain(
		services.NewOllamaExtractor(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaTimeout),
		services.NewHeuristicExtractor(),
	)

	matcher := services.NewMatcher()
	reconciler := services.NewReconciler(db, matcher)
	report := services.NewReportService()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    32 << 20, // three photos plus form overhead
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Create handler with dependencies
	h := handlers.New(db, cfg, storage, ocr, chain, reconciler, report)

	// Health check
	app.Get("/health", h.Health)

	// API routes
	api := app.Group("/api")

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.Post("/login", h.Login)

	// Inventory routes (authenticated)
	inventory := api.Group("/inventory", middleware.AuthRequired(cfg))
	inventory.Post("/from-images", h.FromImages)
	inventory.Post("/save", h.SaveProduct)

	// Product routes (authenticated)
	products := api.Group("/products", middleware.AuthRequired(cfg))
	products.Get("/", h.ListProducts)
	products.Get("/barcode/:barcode", h.GetProductByBarcode)
	products.Get("/:id", h.GetProduct)
	products.Get("/:id/photos/:type", h.GetProductPhoto)
	products.Delete("/:id", h.DeactivateProduct)

	// Report routes (authenticated)
	reports := api.Group("/reports", middleware.AuthRequired(cfg))
	reports.Get("/stock", h.StockReport)

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
