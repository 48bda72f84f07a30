package services_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bookshelf/internal/cache"
	"bookshelf/internal/database/dbtest"
	"bookshelf/internal/logger"
	"bookshelf/internal/models"
	"bookshelf/internal/repositories"
	"bookshelf/internal/scraper"
	"bookshelf/internal/scraper/scrapertest"
	"bookshelf/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(eventType string, payload interface{}) error {
	args := m.Called(eventType, payload)
	return args.Error(0)
}

// failingRepo lets the first n upserts through and then fails.
type failingRepo struct {
	*repositories.GORMBookRepository
	n int
}

func (r *failingRepo) InTransaction(ctx context.Context, fn func(w repositories.BookWriter) error) error {
	return r.GORMBookRepository.InTransaction(ctx, func(w repositories.BookWriter) error {
		return fn(&failingWriter{BookWriter: w, left: r.n})
	})
}

type failingWriter struct {
	repositories.BookWriter
	left int
}

func (w *failingWriter) Upsert(b *models.Book) error {
	if w.left == 0 {
		return errors.New("disk I/O error")
	}
	w.left--
	return w.BookWriter.Upsert(b)
}

type ingestFixture struct {
	db      *gorm.DB
	books   *repositories.GORMBookRepository
	runs    *repositories.GORMIngestRunRepository
	cache   *cache.Memory
	service *services.IngestService
}

func newIngestFixture(t *testing.T, publisher services.EventPublisher) *ingestFixture {
	db := dbtest.New(t)
	f := &ingestFixture{
		db:    db,
		books: repositories.NewGORMBookRepository(db),
		runs:  repositories.NewGORMIngestRunRepository(db),
		cache: cache.NewMemory(0),
	}
	f.service = services.NewIngestService(f.books, f.runs, f.cache, publisher, logger.Discard())
	return f
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const catalogHeader = "title,category,price,price_excl_tax,price_incl_tax,rating,upc,availability,description,image_url,book_url,number_of_reviews,product_type,tax\n"

func TestIngestService_RoundTripFromScrape(t *testing.T) {
	site := scrapertest.NewSite(
		[]scrapertest.Book{
			{Slug: "attic_1000", Title: "A Light in the Attic", Category: "Poetry", Price: "£51.77", RatingWord: "Three", UPC: "a897fe39b1053632", Availability: 22, Description: "Poems."},
			{Slug: "velvet_999", Title: "Tipping the Velvet", Category: "Historical Fiction", Price: "£53.74", RatingWord: "One", UPC: "90fa61229261140a", Availability: 20},
		},
		[]scrapertest.Book{
			{Slug: "soumission_998", Title: "Soumission", Category: "Fiction", Price: "£50.10", RatingWord: "Five", UPC: "6957f44c3847a760", Availability: 0, Reviews: 7},
		},
	)
	defer site.Close()

	out := filepath.Join(t.TempDir(), "books.csv")
	ext := scraper.NewExtractor(&http.Client{Timeout: 5 * time.Second}, "bookshelf-test", 1000, logger.Discard())
	_, err := scraper.New(ext, logger.Discard()).Run(context.Background(), site.RootURL(), out)
	require.NoError(t, err)

	f := newIngestFixture(t, nil)
	sum, err := f.service.Load(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.RowsProcessed)
	assert.Equal(t, 3, sum.RowsUpserted)
	assert.Equal(t, 0, sum.RowsFailed)

	stored, err := f.books.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 3)

	want := map[string]struct {
		price  float64
		rating int
	}{
		"a897fe39b1053632": {51.77, 3},
		"90fa61229261140a": {53.74, 1},
		"6957f44c3847a760": {50.10, 5},
	}
	for _, b := range stored {
		w, ok := want[b.UPC]
		require.True(t, ok, b.UPC)
		assert.Equal(t, w.price, b.Price, b.UPC)
		assert.Equal(t, w.rating, b.Rating, b.UPC)
	}
	assert.Equal(t, "Historical Fiction", stored[1].Category)
	assert.Equal(t, 7, stored[2].NumberOfReviews)
	assert.Equal(t, 0, stored[2].Availability)
}

func TestIngestService_LoadIsIdempotent(t *testing.T) {
	path := writeCatalog(t, catalogHeader+
		"Dune,Science Fiction,20.00,20.00,20.00,5,u1,3,Spice,,,0,Books,0.00\n"+
		"Emma,Classics,8.50,8.50,8.50,4,u2,0,,,,2,Books,0.00\n")
	f := newIngestFixture(t, nil)
	ctx := context.Background()

	_, err := f.service.Load(ctx, path)
	require.NoError(t, err)
	first, err := f.books.ListAll(ctx)
	require.NoError(t, err)

	_, err = f.service.Load(ctx, path)
	require.NoError(t, err)
	second, err := f.books.ListAll(ctx)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		a, b := first[i], second[i]
		a.CreatedAt, a.UpdatedAt, b.CreatedAt, b.UpdatedAt = time.Time{}, time.Time{}, time.Time{}, time.Time{}
		assert.Equal(t, a, b)
	}
}

func TestIngestService_SkipsMalformedRows(t *testing.T) {
	path := writeCatalog(t, catalogHeader+
		"Dune,Science Fiction,20.00,20.00,20.00,5,u1,3,,,,0,Books,0.00\n"+
		",Classics,8.50,8.50,8.50,4,u2,0,,,,2,Books,0.00\n"+
		"Emma,Classics,cheap,8.50,8.50,4,u3,0,,,,2,Books,0.00\n"+
		"Short row,,1.00,,,2,u4\n")
	f := newIngestFixture(t, nil)

	sum, err := f.service.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.RowsProcessed)
	assert.Equal(t, 2, sum.RowsUpserted)
	assert.Equal(t, 2, sum.RowsFailed)
	require.Len(t, sum.Failures, 2)
	assert.Equal(t, 3, sum.Failures[0].Line)
	assert.Contains(t, sum.Failures[0].Reason, "missing title")
	assert.Equal(t, 4, sum.Failures[1].Line)

	book, total, err := f.books.Search(context.Background(), "short row", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, book, 1)
	assert.Equal(t, models.UnknownCategory, book[0].Category)
}

func TestIngestService_LoadsDisplayFormattedCells(t *testing.T) {
	path := writeCatalog(t, catalogHeader+
		"A Light in the Attic,Poetry,£51.77,£51.77,£51.77,3,a897fe39b1053632,In stock (22 available),,,,0,Books,£0.00\n"+
		"Tipping the Velvet,Historical Fiction,Â£53.74,Â£53.74,Â£53.74,1,90fa61229261140a,Out of stock,,,,0,Books,Â£0.00\n")
	f := newIngestFixture(t, nil)

	sum, err := f.service.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.RowsUpserted)
	assert.Equal(t, 0, sum.RowsFailed)

	stored, err := f.books.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 51.77, stored[0].Price)
	assert.Equal(t, 22, stored[0].Availability)
	assert.Equal(t, 53.74, stored[1].Price)
	assert.Equal(t, 0, stored[1].Availability)
}

func TestIngestService_MissingFile(t *testing.T) {
	f := newIngestFixture(t, nil)

	_, err := f.service.Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, services.ErrCatalogFile)

	runs, err := f.runs.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.IngestStatusFailed, runs[0].Status)
}

func TestIngestService_StoreFailureCommitsNothing(t *testing.T) {
	path := writeCatalog(t, catalogHeader+
		"Dune,Science Fiction,20.00,20.00,20.00,5,u1,3,,,,0,Books,0.00\n"+
		"Emma,Classics,8.50,8.50,8.50,4,u2,0,,,,2,Books,0.00\n"+
		"Ulysses,Classics,9.00,9.00,9.00,2,u3,1,,,,0,Books,0.00\n")
	f := newIngestFixture(t, nil)
	publisher := new(MockPublisher)
	svc := services.NewIngestService(&failingRepo{GORMBookRepository: f.books, n: 2}, f.runs, f.cache, publisher, logger.Discard())
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, "categories", []string{"stale"}))

	sum, err := svc.Load(ctx, path)
	assert.ErrorIs(t, err, services.ErrStoreUnavailable)
	assert.Equal(t, 0, sum.RowsUpserted)

	stored, err := f.books.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored, "a failed load leaves no partial rows")
	assert.Equal(t, 1, f.cache.Len(), "cache survives a failed load")
	publisher.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything)
}

func TestIngestService_ClosedStore(t *testing.T) {
	path := writeCatalog(t, catalogHeader+"Dune,Science Fiction,20.00,20.00,20.00,5,u1,3,,,,0,Books,0.00\n")
	f := newIngestFixture(t, nil)
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = f.service.Load(context.Background(), path)
	assert.ErrorIs(t, err, services.ErrStoreUnavailable)
}

func TestIngestService_ClearsCacheAndPublishes(t *testing.T) {
	path := writeCatalog(t, catalogHeader+"Dune,Science Fiction,20.00,20.00,20.00,5,u1,3,,,,0,Books,0.00\n")
	publisher := new(MockPublisher)
	f := newIngestFixture(t, publisher)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, "categories", []string{"stale"}))

	publisher.On("PublishEvent", services.EventIngestionCompleted, mock.MatchedBy(func(s services.LoadSummary) bool {
		return s.RowsUpserted == 1 && s.RunID != ""
	})).Return(errors.New("broker down")).Once()

	sum, err := f.service.Load(ctx, path)
	require.NoError(t, err, "a publish failure does not fail the load")
	assert.Equal(t, 0, f.cache.Len())
	publisher.AssertExpectations(t)

	runs, err := f.service.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, sum.RunID, runs[0].ID)
	assert.Equal(t, models.IngestStatusCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].RowsUpserted)
}
