// Package catalog implements the site level operations of the scraper:
// category discovery, product link collection and product extraction.
package catalog

import (
	"context"
	"net/url"
	"strings"

	"catalog-scraper/config"
	"catalog-scraper/fetcher"
	"catalog-scraper/models"
	"catalog-scraper/paginator"
	"catalog-scraper/parser"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
)

// Options holds the collaborators a Scraper can be given in place of the defaults
type Options struct {
	Clock  clock.Clock
	Logger *logrus.Entry
}

// Scraper scrapes one e-commerce site
type Scraper struct {
	cfg       *config.Config
	fetcher   fetcher.Fetcher
	listing   *parser.Extractor
	detail    *parser.Extractor
	paginator *paginator.Paginator
	clock     clock.Clock
	logger    *logrus.Entry
}

// New creates a Scraper for the site described by cfg
func New(cfg *config.Config, f fetcher.Fetcher, opts Options) *Scraper {
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	sel := cfg.Selectors
	listing := parser.NewExtractor(parser.CSSStrategy{
		RootSelector:   sel.ListingRoot,
		CardSelector:   sel.Card,
		AnchorSelector: sel.CardAnchor,
		NextSelector:   sel.NextAnchor,
	}, opts.Logger.WithField("component", "listing-extractor"))
	detail := parser.NewExtractor(parser.CSSStrategy{
		RootSelector:   sel.DetailRoot,
		CardSelector:   sel.Card,
		AnchorSelector: sel.CardAnchor,
		NextSelector:   sel.NextAnchor,
	}, opts.Logger.WithField("component", "detail-extractor"))

	return &Scraper{
		cfg:     cfg,
		fetcher: f,
		listing: listing,
		detail:  detail,
		paginator: paginator.New(f, listing, paginator.Config{
			BaseURL:  cfg.Site.BaseURL,
			Delay:    cfg.Crawl.PageDelay,
			MaxPages: cfg.Crawl.MaxPages,
			Clock:    opts.Clock,
			Logger:   opts.Logger.WithField("component", "paginator"),
		}),
		clock:  opts.Clock,
		logger: opts.Logger,
	}
}

// siteURL joins a path onto the configured base URL. Absolute URLs are
// returned unchanged.
func (s *Scraper) siteURL(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return strings.TrimSuffix(s.cfg.Site.BaseURL, "/") + path
}

// CategoryURLs returns every category linked from the page at path
func (s *Scraper) CategoryURLs(path string) []models.Category {
	indexURL := s.siteURL(path)
	doc, err := s.fetcher.Fetch(indexURL)
	if err != nil {
		s.logger.WithField("url", indexURL).WithError(err).Error("failed to retrieve category index")
		return []models.Category{}
	}

	categories := parser.ExtractCategories(doc, s.cfg.Site.BaseURL, s.cfg.Site.CategoryMarker)
	s.logger.WithFields(logrus.Fields{"url": indexURL, "categories": len(categories)}).Info("found categories")
	return categories
}

// ProductLinks returns the product links on a single listing page
func (s *Scraper) ProductLinks(listingURL string) []models.LinkRecord {
	doc, err := s.fetcher.Fetch(listingURL)
	if err != nil {
		s.logger.WithField("url", listingURL).WithError(err).Error("failed to fetch listing page")
		return []models.LinkRecord{}
	}
	links, _ := s.listing.ExtractLinks(doc)
	return links
}

// CollectProductLinks follows the listing's pagination from listingURL and returns
// the product links of every page. On a fetch failure the links gathered so
// far are returned with the error.
func (s *Scraper) CollectProductLinks(ctx context.Context, listingURL string) ([]models.LinkRecord, error) {
	return s.paginator.Collect(ctx, listingURL)
}

// ProductDetails returns the card links on the product page at path, which
// may also be an absolute URL
func (s *Scraper) ProductDetails(path string) []models.LinkRecord {
	pageURL := s.siteURL(path)
	doc, err := s.fetcher.Fetch(pageURL)
	if err != nil {
		s.logger.WithField("url", pageURL).WithError(err).Error("failed to fetch product page")
		return []models.LinkRecord{}
	}
	links, _ := s.detail.ExtractLinks(doc)
	return links
}

// ProductDetail is the result of ProductDetails for one product link
type ProductDetail struct {
	Link  models.LinkRecord
	Links []models.LinkRecord
}

// CollectProductDetails collects every product link reachable from
// listingURL, then runs ProductDetails for each of them with the page delay
// between fetches. A pagination failure still processes the links gathered
// before it and is returned with the results.
func (s *Scraper) CollectProductDetails(ctx context.Context, listingURL string) ([]ProductDetail, error) {
	links, collectErr := s.CollectProductLinks(ctx, listingURL)
	if collectErr != nil {
		s.logger.WithError(collectErr).WithField("links", len(links)).Warn("pagination stopped early, fetching details gathered so far")
	}

	details := make([]ProductDetail, 0, len(links))
	for _, link := range links {
		// every detail fetch follows another fetch, so each one waits
		if err := s.pause(ctx); err != nil {
			return details, err
		}
		details = append(details, ProductDetail{Link: link, Links: s.ProductDetails(string(link))})
	}
	return details, collectErr
}

// ScrapeCategory extracts the products listed on the category page at path,
// then pauses for the page delay
func (s *Scraper) ScrapeCategory(ctx context.Context, path string) ([]models.Product, error) {
	categoryURL := s.siteURL(path)
	s.logger.WithField("url", categoryURL).Info("scraping category")

	doc, err := s.fetcher.Fetch(categoryURL)
	if err != nil {
		s.logger.WithField("url", categoryURL).WithError(err).Error("failed to fetch category page")
		return []models.Product{}, nil
	}

	products := parser.ExtractProducts(doc, parser.ProductSelectors{
		Card:  s.cfg.Selectors.Product,
		Name:  s.cfg.Selectors.ProductName,
		Price: s.cfg.Selectors.ProductPrice,
	})
	return products, s.pause(ctx)
}

// ScrapeCategories runs ScrapeCategory for each path and returns every
// product found, in path order
func (s *Scraper) ScrapeCategories(ctx context.Context, paths []string) ([]models.Product, error) {
	products := []models.Product{}
	for _, path := range paths {
		found, err := s.ScrapeCategory(ctx, path)
		products = append(products, found...)
		if err != nil {
			return products, err
		}
	}
	return products, nil
}

func (s *Scraper) pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Crawl.PageDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(s.cfg.Crawl.PageDelay):
		return nil
	}
}
