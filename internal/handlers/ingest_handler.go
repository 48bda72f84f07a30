package handlers

import (
	"context"
	"errors"

	"bookshelf/internal/apierror"
	"bookshelf/internal/scraper"
	"bookshelf/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// CatalogScraper refreshes the catalog file from the catalog site.
type CatalogScraper interface {
	Run(ctx context.Context, rootURL, outPath string) (scraper.Summary, error)
}

// IngestConfig names the catalog file and the site it is scraped from.
type IngestConfig struct {
	CatalogPath string
	RootURL     string
}

// IngestHandler triggers ingestion and reports past runs.
type IngestHandler struct {
	ingestService *services.IngestService
	bookService   *services.BookService
	scraper       CatalogScraper
	cfg           IngestConfig
	log           logrus.FieldLogger
}

// NewIngestHandler creates a new IngestHandler. s may be nil, in which case
// scrape=true is rejected.
func NewIngestHandler(ingestService *services.IngestService, bookService *services.BookService, s CatalogScraper, cfg IngestConfig, log logrus.FieldLogger) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		bookService:   bookService,
		scraper:       s,
		cfg:           cfg,
		log:           log,
	}
}

// RegisterRoutes registers the ingestion and cache routes behind protect.
func (h *IngestHandler) RegisterRoutes(router fiber.Router, protect fiber.Handler) {
	router.Post("/scraping/trigger", protect, h.Trigger)
	router.Get("/scraping/runs", protect, h.Runs)
	router.Post("/cache/clear", protect, h.ClearCache)
}

// Trigger handles POST /scraping/trigger. With scrape=true the catalog site
// is scraped into the catalog file before the load.
func (h *IngestHandler) Trigger(c *fiber.Ctx) error {
	ctx := c.UserContext()
	resp := fiber.Map{}

	if c.QueryBool("scrape") {
		if h.scraper == nil {
			return apierror.Respond(c, fiber.StatusBadRequest, apierror.BadRequest, "scraping is not configured")
		}
		sum, err := h.scraper.Run(ctx, h.cfg.RootURL, h.cfg.CatalogPath)
		if err != nil {
			if errors.Is(err, scraper.ErrRootUnreachable) {
				return apierror.Respond(c, fiber.StatusBadGateway, apierror.UpstreamUnavailable, err.Error())
			}
			h.log.WithError(err).Error("Scrape failed")
			return apierror.Respond(c, fiber.StatusInternalServerError, apierror.Internal, "scrape failed")
		}
		resp["scrape"] = sum
	}

	sum, err := h.ingestService.Load(ctx, h.cfg.CatalogPath)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	resp["message"] = "Ingestion completed"
	resp["load"] = sum
	return c.JSON(resp)
}

// Runs handles GET /scraping/runs?limit=.
func (h *IngestHandler) Runs(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return badRequest(c, err)
	}
	runs, err := h.ingestService.RecentRuns(c.UserContext(), limit)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"data": runs, "count": len(runs)})
}

// ClearCache handles POST /cache/clear.
func (h *IngestHandler) ClearCache(c *fiber.Ctx) error {
	if err := h.bookService.ClearCache(c.UserContext()); err != nil {
		h.log.WithError(err).Error("Cache clear failed")
		return apierror.Respond(c, fiber.StatusInternalServerError, apierror.Internal, "cache clear failed")
	}
	return c.JSON(fiber.Map{"message": "Cache cleared"})
}
