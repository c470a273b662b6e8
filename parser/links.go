package parser

import (
	"errors"

	"catalog-scraper/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// ErrStructureNotFound reports that the expected container is missing from a page
var ErrStructureNotFound = errors.New("structure not found")

// Extractor pulls card links out of listing pages
type Extractor struct {
	strategy Strategy
	logger   *logrus.Entry
}

// NewExtractor creates a new Extractor using the given strategy
func NewExtractor(strategy Strategy, logger *logrus.Entry) *Extractor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Extractor{strategy: strategy, logger: logger}
}

// ExtractLinks returns the link of every card under the root container, in
// document order. Cards without a link are skipped. A missing root yields an
// empty slice and an error wrapping ErrStructureNotFound.
func (e *Extractor) ExtractLinks(doc *goquery.Document) ([]models.LinkRecord, error) {
	links := []models.LinkRecord{}

	root := e.strategy.Root(doc)
	if root.Length() == 0 {
		e.logger.WithField("url", documentURL(doc)).Warn("root container not found on page")
		return links, ErrStructureNotFound
	}

	e.strategy.Cards(root).Each(func(_ int, card *goquery.Selection) {
		if href, ok := e.strategy.CardLink(card); ok {
			links = append(links, models.LinkRecord(href))
		}
	})
	return links, nil
}

// NextLink returns the raw target of the page's "next" anchor
func (e *Extractor) NextLink(doc *goquery.Document) (string, bool) {
	return e.strategy.NextLink(doc)
}

func documentURL(doc *goquery.Document) string {
	if doc.Url == nil {
		return ""
	}
	return doc.Url.String()
}
