package browser

import (
	"fmt"
	"net/url"
	"strings"

	"catalog-scraper/fetcher"

	"github.com/PuerkitoBio/goquery"
)

// DocumentFetcher adapts a Renderer to fetcher.Fetcher so rendered pages can
// be paginated like plain HTTP ones
type DocumentFetcher struct {
	renderer Renderer
}

var _ fetcher.Fetcher = (*DocumentFetcher)(nil)

// NewDocumentFetcher wraps r
func NewDocumentFetcher(r Renderer) *DocumentFetcher {
	return &DocumentFetcher{renderer: r}
}

// Fetch implements fetcher.Fetcher
func (df *DocumentFetcher) Fetch(rawURL string) (*goquery.Document, error) {
	html, err := df.renderer.Render(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", fetcher.ErrFetch, rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parse html: %v", fetcher.ErrFetch, rawURL, err)
	}
	if u, err := url.Parse(rawURL); err == nil {
		doc.Url = u
	}
	return doc, nil
}
