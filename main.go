package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bookshelf/internal/cache"
	"bookshelf/internal/config"
	"bookshelf/internal/database"
	"bookshelf/internal/logger"
	"bookshelf/internal/repositories"
	"bookshelf/internal/scraper"
	"bookshelf/internal/server"
	"bookshelf/internal/services"
	"bookshelf/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is what every command shares: configuration, logger and the store.
type app struct {
	cfg *config.Config
	log *logrus.Logger
	db  *gorm.DB
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "bookshelf",
		Short:         "Scrape the book catalog, load it and serve it over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.New(cfg.LogLevel)
			return nil
		},
	}
	root.AddCommand(
		a.serveCmd(),
		a.scrapeCmd(),
		a.ingestCmd(),
		a.eventsCmd(),
	)
	return root
}

// openStore opens and migrates the configured database.
func (a *app) openStore() error {
	db, err := database.Open(a.cfg.DBDriver, a.cfg.DatabaseDSN, a.log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *app) closeStore() {
	if a.db == nil {
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// openCache returns the shared Redis cache when REDIS_ADDR is set and a
// process-local one otherwise.
func (a *app) openCache(ctx context.Context) (cache.Cache, func(), error) {
	if a.cfg.RedisAddr == "" {
		return cache.NewMemory(a.cfg.CacheTTL), func() {}, nil
	}
	r, err := cache.NewRedis(ctx, a.cfg.RedisAddr, a.cfg.CacheTTL)
	if err != nil {
		return nil, nil, err
	}
	a.log.WithField("addr", a.cfg.RedisAddr).Info("Using Redis response cache")
	return r, func() { r.Close() }, nil
}

// openPublisher connects to RabbitMQ when RABBITMQ_URL is set. A broker that
// cannot be reached only disables events.
func (a *app) openPublisher() (services.EventPublisher, func()) {
	if a.cfg.RabbitMQURL == "" {
		return nil, func() {}
	}
	mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: a.cfg.RabbitMQURL}, a.log)
	if err != nil {
		a.log.WithError(err).Warn("RabbitMQ unavailable, ingestion events disabled")
		return nil, func() {}
	}
	return mq, func() { mq.Close() }
}

func (a *app) newScraper() *scraper.Scraper {
	client := &http.Client{Timeout: a.cfg.ScraperTimeout}
	ext := scraper.NewExtractor(client, a.cfg.ScraperUserAgent, a.cfg.ScraperRPS, a.log)
	return scraper.New(ext, a.log)
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.openStore(); err != nil {
				return err
			}
			defer a.closeStore()

			c, closeCache, err := a.openCache(ctx)
			if err != nil {
				return err
			}
			defer closeCache()
			publisher, closePublisher := a.openPublisher()
			defer closePublisher()

			srv := server.New(server.Deps{
				Config:    a.cfg,
				DB:        a.db,
				Cache:     c,
				Publisher: publisher,
				Scraper:   a.newScraper(),
				Log:       a.log,
			})

			// Graceful shutdown handling
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			listenErr := make(chan error, 1)
			go func() {
				a.log.WithField("addr", a.cfg.AppPort).Info("Starting server")
				listenErr <- srv.Listen(a.cfg.AppPort)
			}()

			select {
			case err := <-listenErr:
				return fmt.Errorf("server failed: %w", err)
			case <-quit:
			}
			a.log.Info("Shutting down server...")
			if err := srv.Shutdown(); err != nil {
				a.log.WithError(err).Error("Error during Fiber shutdown")
			}
			a.log.Info("Server gracefully stopped")
			return nil
		},
	}
}

func (a *app) scrapeCmd() *cobra.Command {
	var out, root string
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the catalog site into the catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = a.cfg.CatalogCSVPath
			}
			if root == "" {
				root = a.cfg.ScraperRootURL
			}
			sum, err := a.newScraper().Run(cmd.Context(), root, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scraped %d pages (%d failed), wrote %d books to %s\n",
				sum.PagesVisited, sum.PagesFailed, sum.RecordsWritten, sum.Output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "catalog file to write (default CATALOG_CSV_PATH)")
	cmd.Flags().StringVar(&root, "root", "", "first listing page (default SCRAPER_ROOT_URL)")
	return cmd
}

func (a *app) ingestCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the catalog file into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if file == "" {
				file = a.cfg.CatalogCSVPath
			}
			if err := a.openStore(); err != nil {
				return err
			}
			defer a.closeStore()

			var c cache.Cache
			if a.cfg.RedisAddr != "" {
				shared, closeCache, err := a.openCache(ctx)
				if err != nil {
					return err
				}
				defer closeCache()
				c = shared
			}
			publisher, closePublisher := a.openPublisher()
			defer closePublisher()

			svc := services.NewIngestService(
				repositories.NewGORMBookRepository(a.db),
				repositories.NewGORMIngestRunRepository(a.db),
				c, publisher, a.log,
			)
			sum, err := svc.Load(ctx, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d rows: %d upserted, %d failed\n",
				sum.RowsProcessed, sum.RowsUpserted, sum.RowsFailed)
			for _, f := range sum.Failures {
				fmt.Fprintf(cmd.OutOrStdout(), "  line %d: %s\n", f.Line, f.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog file to load (default CATALOG_CSV_PATH)")
	return cmd
}

func (a *app) eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow ingestion events and clear the shared cache after each load",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.RabbitMQURL == "" {
				return fmt.Errorf("RABBITMQ_URL is required")
			}
			mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: a.cfg.RabbitMQURL}, a.log)
			if err != nil {
				return err
			}
			defer mq.Close()

			var c cache.Cache
			if a.cfg.RedisAddr != "" {
				shared, closeCache, err := a.openCache(cmd.Context())
				if err != nil {
					return err
				}
				defer closeCache()
				c = shared
			}

			go func() {
				quit := make(chan os.Signal, 1)
				signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
				<-quit
				mq.Close()
			}()
			return mq.ConsumeEvents(ingestionEventHandler(cmd.Context(), c, a.log))
		},
	}
}

// ingestionEventHandler logs every event; after a completed load it clears c
// when one is configured.
func ingestionEventHandler(ctx context.Context, c cache.Cache, log logrus.FieldLogger) func(rabbitmq.Event) error {
	return func(ev rabbitmq.Event) error {
		entry := log.WithFields(logrus.Fields{"type": ev.Type, "occurred_at": ev.OccurredAt})
		if ev.Type != services.EventIngestionCompleted {
			entry.Debug("Ignoring event")
			return nil
		}
		entry.WithField("summary", string(ev.Data)).Info("Ingestion completed")
		if c == nil {
			return nil
		}
		return c.Clear(ctx)
	}
}
