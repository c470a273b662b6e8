package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy locates the site-specific structures on a listing page.
// Swapping the strategy changes what is matched without touching traversal.
type Strategy interface {
	// Root returns the container wrapping every card; empty if absent
	Root(doc *goquery.Document) *goquery.Selection
	// Cards returns the repeated card elements under root in document order
	Cards(root *goquery.Selection) *goquery.Selection
	// CardLink returns the target of the card's first anchor
	CardLink(card *goquery.Selection) (string, bool)
	// NextLink returns the target of the "next page" anchor
	NextLink(doc *goquery.Document) (string, bool)
}

// CSSStrategy implements Strategy with CSS selectors
type CSSStrategy struct {
	RootSelector   string
	CardSelector   string
	AnchorSelector string
	NextSelector   string
}

// Root implements Strategy
func (s CSSStrategy) Root(doc *goquery.Document) *goquery.Selection {
	return doc.Find(s.RootSelector).First()
}

// Cards implements Strategy
func (s CSSStrategy) Cards(root *goquery.Selection) *goquery.Selection {
	return root.Find(s.CardSelector)
}

// CardLink implements Strategy
func (s CSSStrategy) CardLink(card *goquery.Selection) (string, bool) {
	return firstHref(card.Find(s.AnchorSelector))
}

// NextLink implements Strategy
func (s CSSStrategy) NextLink(doc *goquery.Document) (string, bool) {
	return firstHref(doc.Find(s.NextSelector))
}

// firstHref reads the href of the first element in sel that carries the
// attribute. An empty href still ends the search and yields no link.
func firstHref(sel *goquery.Selection) (string, bool) {
	var href string
	sel.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		v, ok := a.Attr("href")
		if !ok {
			return true
		}
		href = strings.TrimSpace(v)
		return false
	})
	return href, href != ""
}
