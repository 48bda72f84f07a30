// Package scrapertest serves a tiny catalog site shaped like books.toscrape.com
// for extractor and ingestion tests.
package scrapertest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Book is one item of the fake catalog.
type Book struct {
	Slug         string
	Title        string
	Category     string
	Price        string // as displayed, e.g. "£51.77"
	RatingWord   string // One..Five
	UPC          string
	Availability int
	Reviews      int
	Description  string
}

// Site is a running fake catalog. Pages[i] holds the books of page-(i+1).html.
type Site struct {
	*httptest.Server

	mu     sync.Mutex
	pages  [][]Book
	broken map[string]bool
	hits   map[string]int
}

// NewSite starts a server for the given pages.
func NewSite(pages ...[]Book) *Site {
	s := &Site{pages: pages, broken: map[string]bool{}, hits: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// RootURL is the first listing page.
func (s *Site) RootURL() string {
	return s.URL + "/catalogue/page-1.html"
}

// Break makes the given path answer 500.
func (s *Site) Break(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken[path] = true
}

// Hits returns how many times path was requested.
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	broken := s.broken[r.URL.Path]
	s.mu.Unlock()
	if broken {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	var n int
	if _, err := fmt.Sscanf(r.URL.Path, "/catalogue/page-%d.html", &n); err == nil {
		if n < 1 || n > len(s.pages) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, s.listing(n))
		return
	}
	for _, page := range s.pages {
		for _, b := range page {
			if r.URL.Path == "/catalogue/"+b.Slug+"/index.html" {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				fmt.Fprint(w, detail(b))
				return
			}
		}
	}
	http.NotFound(w, r)
}

func (s *Site) listing(n int) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><section><ol class="row">`)
	for _, b := range s.pages[n-1] {
		fmt.Fprintf(&sb, `
<li><article class="product_pod">
  <div class="image_container"><a href="%[1]s/index.html"><img src="../media/%[1]s.jpg" class="thumbnail"></a></div>
  <p class="star-rating %[2]s"><i class="icon-star"></i></p>
  <h3><a href="%[1]s/index.html" title="%[3]s">%[3]s</a></h3>
  <div class="product_price">
    <p class="price_color">%[4]s</p>
    <p class="instock availability"><i class="icon-ok"></i> In stock</p>
  </div>
</article></li>`, b.Slug, b.RatingWord, b.Title, b.Price)
	}
	sb.WriteString(`</ol>`)
	if n < len(s.pages) {
		fmt.Fprintf(&sb, `<ul class="pager"><li class="current">Page %d of %d</li><li class="next"><a href="page-%d.html">next</a></li></ul>`, n, len(s.pages), n+1)
	}
	sb.WriteString(`</section></body></html>`)
	return sb.String()
}

func detail(b Book) string {
	stock := "Out of stock"
	if b.Availability > 0 {
		stock = fmt.Sprintf("In stock (%d available)", b.Availability)
	}
	desc := ""
	if b.Description != "" {
		desc = fmt.Sprintf(`<div id="product_description" class="sub-header"><h2>Product Description</h2></div>
<p>%s</p>`, b.Description)
	}
	return fmt.Sprintf(`<html><body>
<ul class="breadcrumb">
  <li><a href="../../index.html">Home</a></li>
  <li><a href="../category/books_1/index.html">Books</a></li>
  <li><a href="../category/books/x_2/index.html">%[2]s</a></li>
  <li class="active">%[1]s</li>
</ul>
<div class="row">
  <div class="col-sm-6"><div id="product_gallery" class="carousel"><div class="item active"><img src="../../media/cache/%[8]s.jpg" alt="%[1]s" /></div></div></div>
  <div class="col-sm-6 product_main">
    <h1>%[1]s</h1>
    <p class="price_color">%[3]s</p>
    <p class="instock availability"><i class="icon-ok"></i> %[5]s</p>
    <p class="star-rating %[4]s"><i class="icon-star"></i></p>
  </div>
</div>
%[6]s
<div class="sub-header"><h2>Product Information</h2></div>
<table class="table table-striped">
  <tr><th>UPC</th><td>%[7]s</td></tr>
  <tr><th>Product Type</th><td>Books</td></tr>
  <tr><th>Price (excl. tax)</th><td>%[3]s</td></tr>
  <tr><th>Price (incl. tax)</th><td>%[3]s</td></tr>
  <tr><th>Tax</th><td>£0.00</td></tr>
  <tr><th>Availability</th><td>%[5]s</td></tr>
  <tr><th>Number of reviews</th><td>%[9]d</td></tr>
</table>
</body></html>`, b.Title, b.Category, b.Price, b.RatingWord, stock, desc, b.UPC, b.Slug, b.Reviews)
}
