// Package paginator follows a chain of listing pages and accumulates the
// card links found on each of them.
package paginator

import (
	"context"
	"time"

	"catalog-scraper/fetcher"
	"catalog-scraper/models"
	"catalog-scraper/parser"

	"github.com/PuerkitoBio/goquery"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
)

// LinkExtractor is implemented by objects that read card links and the next
// page target from a document.
type LinkExtractor interface {
	ExtractLinks(doc *goquery.Document) ([]models.LinkRecord, error)
	NextLink(doc *goquery.Document) (string, bool)
}

// Config encapsulates the settings for a Paginator
type Config struct {
	// BaseURL is the site origin root-relative next links are joined with
	BaseURL string

	// Delay is the pause before every fetch after the first
	Delay time.Duration

	// MaxPages bounds the number of pages fetched; zero means no bound
	MaxPages int

	// Clock used for the pause. Defaults to the wall clock
	Clock clock.Clock

	Logger *logrus.Entry
}

// Paginator drives a Fetcher and a LinkExtractor across a chain of pages
type Paginator struct {
	fetcher   fetcher.Fetcher
	extractor LinkExtractor
	cfg       Config
}

// New creates a Paginator
func New(f fetcher.Fetcher, e LinkExtractor, cfg Config) *Paginator {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Paginator{fetcher: f, extractor: e, cfg: cfg}
}

// Collect fetches startURL and every page reachable through its next links,
// returning all card links in page-visit order. The crawl ends when a page
// has no next link, a next link points to a page already visited, MaxPages is
// reached or a fetch fails. On fetch failure the links gathered so far are
// returned together with the error. ctx is checked between pages only.
func (p *Paginator) Collect(ctx context.Context, startURL string) ([]models.LinkRecord, error) {
	links := []models.LinkRecord{}
	visited := make(map[string]struct{})
	logger := p.cfg.Logger.WithField("start_url", startURL)

	for cursor, page := startURL, 1; cursor != ""; page++ {
		if p.cfg.MaxPages > 0 && page > p.cfg.MaxPages {
			logger.WithField("max_pages", p.cfg.MaxPages).Warn("page limit reached, stopping pagination")
			break
		}
		if page > 1 {
			if err := p.pause(ctx); err != nil {
				return links, err
			}
		}
		visited[cursor] = struct{}{}

		doc, err := p.fetcher.Fetch(cursor)
		if err != nil {
			logger.WithFields(logrus.Fields{"url": cursor, "page": page}).WithError(err).Error("failed to fetch page, stopping pagination")
			return links, err
		}

		pageLinks, err := p.extractor.ExtractLinks(doc)
		if err != nil {
			logger.WithField("url", cursor).WithError(err).Warn("no links extracted from page")
		}
		links = append(links, pageLinks...)
		logger.WithFields(logrus.Fields{"url": cursor, "page": page, "links": len(pageLinks)}).Info("processed page")

		cursor = p.next(doc, cursor, visited, logger)
	}

	logger.WithField("links", len(links)).Info("pagination finished")
	return links, nil
}

// next returns the URL of the following page, or "" when the crawl is done
func (p *Paginator) next(doc *goquery.Document, current string, visited map[string]struct{}, logger *logrus.Entry) string {
	target, ok := p.extractor.NextLink(doc)
	if !ok {
		return ""
	}

	nextURL, err := parser.ResolveNext(p.cfg.BaseURL, current, target)
	if err != nil {
		logger.WithField("next", target).WithError(err).Warn("could not resolve next page link")
		return ""
	}
	if _, seen := visited[nextURL]; seen {
		logger.WithField("next", nextURL).Warn("next page already visited, stopping pagination")
		return ""
	}
	return nextURL
}

func (p *Paginator) pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.cfg.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.cfg.Clock.After(p.cfg.Delay):
		return nil
	}
}
