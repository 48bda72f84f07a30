package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// ErrRootUnreachable aborts a walk: without the first page there is nothing to follow.
var ErrRootUnreachable = errors.New("catalog root page unreachable")

const maxPageBytes = 2 << 20

// Page is one listing page with its items already merged with their detail pages.
type Page struct {
	URL    string
	Number int
	Books  []RawBook
}

// Result summarizes a walk. Lost pages and items only show up here.
type Result struct {
	PagesVisited   int      `json:"pages_visited"`
	PagesFailed    int      `json:"pages_failed"`
	BooksExtracted int      `json:"books_extracted"`
	FailedURLs     []string `json:"failed_urls,omitempty"`
}

func (r *Result) fail(u string) {
	r.FailedURLs = append(r.FailedURLs, u)
}

// Extractor walks a paginated catalog site. Requests are paced by a token
// bucket; there is no retry, a failed page is simply lost.
type Extractor struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	log       logrus.FieldLogger
}

// NewExtractor creates an Extractor issuing at most rps requests per second.
func NewExtractor(client *http.Client, userAgent string, rps float64, log logrus.FieldLogger) *Extractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Extractor{
		client:    client,
		userAgent: userAgent,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		log:       log,
	}
}

// Walk fetches rootURL and every listing page reachable through "next" links,
// calling fn once per page in order. Only a root failure, a context
// cancellation or an error from fn stops the walk early.
func (e *Extractor) Walk(ctx context.Context, rootURL string, fn func(Page) error) (Result, error) {
	var res Result

	doc, err := e.fetch(ctx, rootURL)
	if err != nil {
		res.PagesFailed++
		res.fail(rootURL)
		return res, fmt.Errorf("%w: %s: %v", ErrRootUnreachable, rootURL, err)
	}

	pageURL, number := rootURL, 1
	visited := map[string]bool{rootURL: true}
	for {
		books := e.extractListing(ctx, doc, pageURL, &res)
		res.PagesVisited++
		res.BooksExtracted += len(books)
		e.log.WithFields(logrus.Fields{"page": number, "url": pageURL, "books": len(books)}).Info("Listing page extracted")

		if err := fn(Page{URL: pageURL, Number: number, Books: books}); err != nil {
			return res, err
		}

		next := resolve(pageURL, attr(findFirst(findFirst(doc, "li", "next"), "a"), "href"))
		if next == "" || visited[next] {
			return res, nil
		}

		// A failed page is skipped by guessing its numbered successor once;
		// two failures in a row end the walk.
		doc = nil
		for failures := 0; doc == nil; {
			pageURL, number = next, number+1
			visited[pageURL] = true
			doc, err = e.fetch(ctx, pageURL)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			e.log.WithError(err).WithField("url", pageURL).Warn("Listing page skipped")
			res.PagesFailed++
			res.fail(pageURL)
			failures++
			next = numberedSuccessor(pageURL)
			if failures >= 2 || next == "" || visited[next] {
				return res, nil
			}
		}
	}
}

func (e *Extractor) extractListing(ctx context.Context, doc *html.Node, pageURL string, res *Result) []RawBook {
	var books []RawBook
	for _, pod := range findAll(doc, "article", "product_pod") {
		link := findFirst(findFirst(pod, "h3"), "a")
		raw := RawBook{
			Title:        attr(link, "title"),
			BookURL:      resolve(pageURL, attr(link, "href")),
			ListingPrice: text(findFirst(pod, "p", "price_color")),
			RatingClass:  attr(findFirst(pod, "p", "star-rating"), "class"),
		}
		if raw.Title == "" {
			raw.Title = text(link)
		}
		if raw.BookURL == "" {
			e.log.WithField("page", pageURL).Warn("Listing item without detail link skipped")
			continue
		}

		detail, err := e.fetch(ctx, raw.BookURL)
		if err != nil {
			e.log.WithError(err).WithField("url", raw.BookURL).Warn("Detail page skipped")
			res.fail(raw.BookURL)
			continue
		}
		fillDetail(&raw, detail)
		books = append(books, raw)
	}
	return books
}

// fillDetail merges the detail page fields the listing does not carry.
func fillDetail(raw *RawBook, doc *html.Node) {
	main := findFirst(doc, "div", "product_main")
	if h1 := text(findFirst(main, "h1")); h1 != "" {
		raw.Title = h1
	}
	if raw.ListingPrice == "" {
		raw.ListingPrice = text(findFirst(main, "p", "price_color"))
	}
	if raw.RatingClass == "" {
		raw.RatingClass = attr(findFirst(main, "p", "star-rating"), "class")
	}
	raw.AvailabilityText = text(findFirst(main, "p", "availability"))
	raw.Description = text(nextElement(findByID(doc, "product_description"), "p"))

	if img := findFirst(findByID(doc, "product_gallery"), "img"); img != nil {
		raw.ImageURL = resolve(raw.BookURL, attr(img, "src"))
	}

	raw.Breadcrumb = nil
	for _, li := range findAll(findFirst(doc, "ul", "breadcrumb"), "li") {
		raw.Breadcrumb = append(raw.Breadcrumb, text(li))
	}

	raw.Info = make(map[string]string)
	for _, tr := range findAll(findFirst(doc, "table", "table-striped"), "tr") {
		th, td := findFirst(tr, "th"), findFirst(tr, "td")
		if th == nil || td == nil {
			continue
		}
		raw.Info[text(th)] = text(td)
	}
}

func (e *Extractor) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func resolve(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(h).String()
}

var pageNumber = regexp.MustCompile(`page-(\d+)\.html$`)

// numberedSuccessor maps ".../page-7.html" to ".../page-8.html".
func numberedSuccessor(pageURL string) string {
	loc := pageNumber.FindStringSubmatchIndex(pageURL)
	if loc == nil {
		return ""
	}
	n, err := strconv.Atoi(pageURL[loc[2]:loc[3]])
	if err != nil {
		return ""
	}
	return pageURL[:loc[2]] + strconv.Itoa(n+1) + pageURL[loc[3]:]
}
