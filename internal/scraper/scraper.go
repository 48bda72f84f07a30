package scraper

import (
	"context"
	"fmt"

	"bookshelf/internal/catalogfile"
	"bookshelf/internal/models"

	"github.com/sirupsen/logrus"
)

// Summary is the outcome of one scrape run.
type Summary struct {
	Result
	RecordsWritten int    `json:"records_written"`
	Output         string `json:"output"`
}

// Scraper runs the whole scrape phase: walk, normalize, write the catalog file.
type Scraper struct {
	extractor *Extractor
	log       logrus.FieldLogger
}

// New creates a Scraper around an extractor.
func New(extractor *Extractor, log logrus.FieldLogger) *Scraper {
	return &Scraper{extractor: extractor, log: log}
}

// Run scrapes rootURL and replaces the catalog file at outPath. Nothing is
// written when the root page cannot be fetched.
func (s *Scraper) Run(ctx context.Context, rootURL, outPath string) (Summary, error) {
	var books []models.Book
	res, err := s.extractor.Walk(ctx, rootURL, func(p Page) error {
		for _, raw := range p.Books {
			books = append(books, Normalize(raw))
		}
		return nil
	})
	sum := Summary{Result: res, Output: outPath}
	if err != nil {
		return sum, err
	}

	if err := catalogfile.Write(outPath, books); err != nil {
		return sum, fmt.Errorf("write catalog file: %w", err)
	}
	sum.RecordsWritten = len(books)

	s.log.WithFields(logrus.Fields{
		"pages":        res.PagesVisited,
		"pages_failed": res.PagesFailed,
		"records":      sum.RecordsWritten,
		"failed_urls":  len(res.FailedURLs),
		"output":       outPath,
	}).Info("Scrape finished")
	return sum, nil
}
