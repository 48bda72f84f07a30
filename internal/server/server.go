// Package server assembles the fiber application from its services.
package server

import (
	"context"

	"bookshelf/internal/apierror"
	"bookshelf/internal/cache"
	"bookshelf/internal/config"
	"bookshelf/internal/database"
	"bookshelf/internal/features"
	"bookshelf/internal/handlers"
	"bookshelf/internal/middleware"
	"bookshelf/internal/repositories"
	"bookshelf/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP app is built from. Cache, Publisher
// and Scraper are optional.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Cache     cache.Cache
	Publisher services.EventPublisher
	Scraper   handlers.CatalogScraper
	Log       logrus.FieldLogger
}

// New wires repositories, services and handlers into a fiber app with every
// route mounted under /api/v1.
func New(d Deps) *fiber.App {
	cfg := d.Config

	// --- Repositories ---
	bookRepo := repositories.NewGORMBookRepository(d.DB)
	userRepo := repositories.NewGORMUserRepository(d.DB)
	runRepo := repositories.NewGORMIngestRunRepository(d.DB)

	// --- Services ---
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, d.Log)
	bookService := services.NewBookService(bookRepo, d.Cache)
	ingestService := services.NewIngestService(bookRepo, runRepo, d.Cache, d.Publisher, d.Log)
	featureService := services.NewFeatureService(bookRepo, features.DefaultEncoder())

	// --- Handlers ---
	healthHandler := handlers.NewHealthHandler(func(ctx context.Context) error {
		return database.Ping(ctx, d.DB)
	})
	authHandler := handlers.NewAuthHandler(authService, d.Log)
	bookHandler := handlers.NewBookHandler(bookService, d.Log)
	statsHandler := handlers.NewStatsHandler(bookService, d.Log)
	ingestHandler := handlers.NewIngestHandler(ingestService, bookService, d.Scraper, handlers.IngestConfig{
		CatalogPath: cfg.CatalogCSVPath,
		RootURL:     cfg.ScraperRootURL,
	}, d.Log)
	mlHandler := handlers.NewMLHandler(featureService, d.Log)

	app := fiber.New(fiber.Config{
		AppName:      "bookshelf",
		ErrorHandler: apierror.ErrorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(d.Log))

	apiV1 := app.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(cfg.RateLimitMax, cfg.RateLimitWindow))
	protect := middleware.AuthRequired(authService)

	// --- Routes ---
	healthHandler.RegisterRoutes(apiV1)
	authHandler.RegisterRoutes(apiV1, protect, middleware.RateLimit(cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow))
	bookHandler.RegisterRoutes(apiV1)
	statsHandler.RegisterRoutes(apiV1)
	ingestHandler.RegisterRoutes(apiV1, protect)
	mlHandler.RegisterRoutes(apiV1)

	return app
}
